package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DAVIPRADIPTA/anemia-app/internal/models"
	"github.com/DAVIPRADIPTA/anemia-app/internal/payment"
	"github.com/DAVIPRADIPTA/anemia-app/internal/services"

	"github.com/stretchr/testify/mock"
)

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateTransaction(orderID string, amount int64, customer payment.CustomerDetails) (*payment.Transaction, error) {
	args := m.Called(orderID, amount, customer)
	if transaction := args.Get(0); transaction != nil {
		return transaction.(*payment.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// memStore is an in-memory ConsultationStore. Transact snapshots all state
// up front and restores it when fn fails, giving the same rollback behavior
// the real store gets from the database.
type memStore struct {
	mu            sync.Mutex
	users         map[uint]models.User
	consultations map[uint]models.Consultation
	payments      map[uint]models.Payment
	messages      []models.ChatMessage

	nextConsultationID uint
	nextPaymentID      uint
	nextMessageID      uint
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uint]models.User),
		consultations: make(map[uint]models.Consultation),
		payments:      make(map[uint]models.Payment),
	}
}

var _ services.ConsultationStore = (*memStore)(nil)

func (s *memStore) AddUser(user models.User) {
	s.users[user.ID] = user
}

func (s *memStore) snapshot() *memStore {
	clone := newMemStore()
	for id, u := range s.users {
		clone.users[id] = u
	}
	for id, c := range s.consultations {
		clone.consultations[id] = c
	}
	for id, p := range s.payments {
		clone.payments[id] = p
	}
	clone.messages = append([]models.ChatMessage(nil), s.messages...)
	clone.nextConsultationID = s.nextConsultationID
	clone.nextPaymentID = s.nextPaymentID
	clone.nextMessageID = s.nextMessageID
	return clone
}

func (s *memStore) restore(from *memStore) {
	s.users = from.users
	s.consultations = from.consultations
	s.payments = from.payments
	s.messages = from.messages
	s.nextConsultationID = from.nextConsultationID
	s.nextPaymentID = from.nextPaymentID
	s.nextMessageID = from.nextMessageID
}

func (s *memStore) Transact(ctx context.Context, fn func(tx services.ConsultationStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func (s *memStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &user, nil
}

func (s *memStore) CreateConsultation(ctx context.Context, consultation *models.Consultation) error {
	s.nextConsultationID++
	consultation.ID = s.nextConsultationID
	consultation.CreatedAt = time.Now()
	s.consultations[consultation.ID] = *consultation
	return nil
}

func (s *memStore) ConsultationByID(ctx context.Context, id uint) (*models.Consultation, error) {
	consultation, ok := s.consultations[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &consultation, nil
}

func (s *memStore) ConsultationByIDForUpdate(ctx context.Context, id uint) (*models.Consultation, error) {
	return s.ConsultationByID(ctx, id)
}

func (s *memStore) SaveConsultation(ctx context.Context, consultation *models.Consultation) error {
	s.consultations[consultation.ID] = *consultation
	return nil
}

func (s *memStore) CreatePayment(ctx context.Context, pay *models.Payment) error {
	s.nextPaymentID++
	pay.ID = s.nextPaymentID
	pay.CreatedAt = time.Now()
	s.payments[pay.ID] = *pay
	return nil
}

func (s *memStore) PaymentByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error) {
	for _, pay := range s.payments {
		if pay.TransactionID == transactionID {
			found := pay
			return &found, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *memStore) SavePayment(ctx context.Context, pay *models.Payment) error {
	s.payments[pay.ID] = *pay
	return nil
}

func (s *memStore) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	s.nextMessageID++
	message.ID = s.nextMessageID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, *message)
	return nil
}

func (s *memStore) MessagesByConsultationID(ctx context.Context, consultationID uint) ([]models.ChatMessage, error) {
	var result []models.ChatMessage
	for _, msg := range s.messages {
		if msg.ConsultationID == consultationID {
			result = append(result, msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
