package services

import (
	"context"
	"errors"

	"github.com/DAVIPRADIPTA/anemia-app/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by store lookups when no row matches. The lifecycle
// engine maps it onto its own error taxonomy.
var ErrNotFound = errors.New("record not found")

// ConsultationStore persists consultations, payments and chat messages.
//
// Transact runs fn against a store bound to a single database transaction and
// rolls everything back when fn returns an error. The *ForUpdate lookups take
// a row lock inside a transaction, serializing conflicting lifecycle
// mutations (concurrent webhook deliveries, expiry-on-read) per consultation.
type ConsultationStore interface {
	Transact(ctx context.Context, fn func(tx ConsultationStore) error) error

	UserByID(ctx context.Context, id uint) (*models.User, error)

	CreateConsultation(ctx context.Context, consultation *models.Consultation) error
	ConsultationByID(ctx context.Context, id uint) (*models.Consultation, error)
	ConsultationByIDForUpdate(ctx context.Context, id uint) (*models.Consultation, error)
	SaveConsultation(ctx context.Context, consultation *models.Consultation) error

	CreatePayment(ctx context.Context, payment *models.Payment) error
	PaymentByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error

	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	MessagesByConsultationID(ctx context.Context, consultationID uint) ([]models.ChatMessage, error)
}

// GormConsultationStore implements ConsultationStore on Postgres.
type GormConsultationStore struct {
	db *gorm.DB
}

func NewConsultationStore(db *gorm.DB) *GormConsultationStore {
	return &GormConsultationStore{db: db}
}

func (s *GormConsultationStore) Transact(ctx context.Context, fn func(tx ConsultationStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormConsultationStore{db: tx})
	})
}

func (s *GormConsultationStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapGormError(err)
	}
	return &user, nil
}

func (s *GormConsultationStore) CreateConsultation(ctx context.Context, consultation *models.Consultation) error {
	return s.db.WithContext(ctx).Create(consultation).Error
}

func (s *GormConsultationStore) ConsultationByID(ctx context.Context, id uint) (*models.Consultation, error) {
	var consultation models.Consultation
	if err := s.db.WithContext(ctx).First(&consultation, id).Error; err != nil {
		return nil, mapGormError(err)
	}
	return &consultation, nil
}

func (s *GormConsultationStore) ConsultationByIDForUpdate(ctx context.Context, id uint) (*models.Consultation, error) {
	var consultation models.Consultation
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&consultation, id).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &consultation, nil
}

func (s *GormConsultationStore) SaveConsultation(ctx context.Context, consultation *models.Consultation) error {
	return s.db.WithContext(ctx).Save(consultation).Error
}

func (s *GormConsultationStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *GormConsultationStore) PaymentByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&payment).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &payment, nil
}

func (s *GormConsultationStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Save(payment).Error
}

func (s *GormConsultationStore) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *GormConsultationStore) MessagesByConsultationID(ctx context.Context, consultationID uint) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("consultation_id = ?", consultationID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func mapGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
