package services

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/DAVIPRADIPTA/anemia-app/internal/errors"
	"github.com/DAVIPRADIPTA/anemia-app/internal/models"
	"github.com/DAVIPRADIPTA/anemia-app/internal/payment"

	"github.com/rs/zerolog/log"
)

// PaymentGateway is the outbound contract to the payment provider.
type PaymentGateway interface {
	CreateTransaction(orderID string, amount int64, customer payment.CustomerDetails) (*payment.Transaction, error)
}

// Publisher is the live-notification side of the messaging gateway. Publish
// is fire-and-forget; a failed or missed delivery is never an error here.
type Publisher interface {
	Publish(topic string, msg interface{})
}

// Gateway vocabulary for webhook notifications.
const (
	TransactionCapture    = "capture"
	TransactionSettlement = "settlement"
	TransactionPending    = "pending"
	TransactionCancel     = "cancel"
	TransactionDeny       = "deny"
	TransactionExpire     = "expire"

	FraudChallenge = "challenge"
)

// SessionDuration is how long a consultation stays open once activated.
const SessionDuration = time.Hour

// ChannelName is the broadcast topic for one consultation's live events.
func ChannelName(consultationID uint) string {
	return fmt.Sprintf("consultation_%d", consultationID)
}

// BookingResult is what a successful booking hands back to the patient:
// the created rows plus the gateway's checkout handle.
type BookingResult struct {
	ConsultationID uint
	PaymentID      uint
	Amount         int64
	Status         models.ConsultationStatus
	PaymentURL     string
	PaymentToken   string
}

// ChatMessagePayload is the broadcast form of a persisted message.
type ChatMessagePayload struct {
	ID             uint      `json:"id"`
	ConsultationID uint      `json:"consultation_id"`
	SenderID       uint      `json:"sender_id"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// HistoryEntry annotates a stored message with whether the requester wrote it.
type HistoryEntry struct {
	ID        uint      `json:"id"`
	SenderID  uint      `json:"sender_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsMe      bool      `json:"is_me"`
}

// ConsultationService drives the consultation lifecycle:
// booking -> payment -> activation -> expiry -> completion.
//
// Every mutation runs inside a store transaction with the consultation row
// locked, so concurrent webhook deliveries and expiry-on-read cannot race.
type ConsultationService struct {
	store   ConsultationStore
	gateway PaymentGateway
	broker  Publisher
}

func NewConsultationService(store ConsultationStore, gateway PaymentGateway, broker Publisher) *ConsultationService {
	return &ConsultationService{
		store:   store,
		gateway: gateway,
		broker:  broker,
	}
}

// Book creates a pending consultation with its payment row and registers the
// order with the payment gateway. The three steps share one transaction: a
// gateway failure rolls back both rows, leaving nothing behind.
func (s *ConsultationService) Book(ctx context.Context, patient *models.User, doctorID uint) (*BookingResult, error) {
	doctor, err := s.store.UserByID(ctx, doctorID)
	if err != nil || doctor.Role != models.RoleDoctor {
		return nil, apperrors.NewNotFoundError("Doctor not found")
	}

	var result BookingResult
	err = s.store.Transact(ctx, func(tx ConsultationStore) error {
		consultation := &models.Consultation{
			PatientID: patient.ID,
			DoctorID:  doctorID,
			Status:    models.ConsultationPending,
		}
		if err := tx.CreateConsultation(ctx, consultation); err != nil {
			return apperrors.New500Error(err)
		}

		// The gateway rejects reused order ids, so the id must be unique
		// across bookings: ORDER-<unixTimestamp>-<consultationID>.
		orderID := fmt.Sprintf("ORDER-%d-%d", time.Now().Unix(), consultation.ID)

		pay := &models.Payment{
			ConsultationID: consultation.ID,
			Amount:         doctor.ConsultationPrice,
			Status:         models.PaymentPending,
			PaymentMethod:  "midtrans",
			TransactionID:  orderID,
		}
		if err := tx.CreatePayment(ctx, pay); err != nil {
			return apperrors.New500Error(err)
		}

		transaction, err := s.gateway.CreateTransaction(orderID, pay.Amount, payment.CustomerDetails{
			FullName: patient.FullName,
			Email:    patient.Email,
		})
		if err != nil {
			return apperrors.NewGatewayError(err)
		}

		result = BookingResult{
			ConsultationID: consultation.ID,
			PaymentID:      pay.ID,
			Amount:         pay.Amount,
			Status:         consultation.Status,
			PaymentURL:     transaction.RedirectURL,
			PaymentToken:   transaction.Token,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// HandlePaymentNotification applies a gateway webhook to the payment and its
// consultation. It is idempotent: replaying a notification finds the rows
// already in their target state and leaves them untouched, so expired_at is
// stamped at most once.
func (s *ConsultationService) HandlePaymentNotification(ctx context.Context, orderID, transactionStatus, fraudStatus string) error {
	return s.store.Transact(ctx, func(tx ConsultationStore) error {
		pay, err := tx.PaymentByTransactionIDForUpdate(ctx, orderID)
		if err != nil {
			if err == ErrNotFound {
				return apperrors.NewNotFoundError("Order ID not found")
			}
			return apperrors.New500Error(err)
		}

		consultation, err := tx.ConsultationByIDForUpdate(ctx, pay.ConsultationID)
		if err != nil {
			return apperrors.New500Error(err)
		}

		switch transactionStatus {
		case TransactionCapture:
			if fraudStatus == FraudChallenge {
				pay.Status = models.PaymentChallenge
			} else {
				pay.Status = models.PaymentSuccess
				activateConsultation(consultation)
			}
		case TransactionSettlement:
			pay.Status = models.PaymentSuccess
			activateConsultation(consultation)
		case TransactionCancel, TransactionDeny, TransactionExpire:
			pay.Status = models.PaymentFailed
			if consultation.Status == models.ConsultationPending {
				consultation.Status = models.ConsultationFailed
			}
		case TransactionPending:
			pay.Status = models.PaymentPending
		default:
			log.Warn().
				Str("order_id", orderID).
				Str("transaction_status", transactionStatus).
				Msg("Unhandled transaction status")
			return nil
		}

		if err := tx.SavePayment(ctx, pay); err != nil {
			return apperrors.New500Error(err)
		}
		if err := tx.SaveConsultation(ctx, consultation); err != nil {
			return apperrors.New500Error(err)
		}
		return nil
	})
}

// activateConsultation opens the chat window. Only a pending session can be
// activated, which is what makes webhook replays harmless: an already-active
// (or failed) session keeps its status and its original deadline.
func activateConsultation(consultation *models.Consultation) {
	if consultation.Status != models.ConsultationPending {
		return
	}
	consultation.Status = models.ConsultationActive
	expiredAt := time.Now().Add(SessionDuration)
	consultation.ExpiredAt = &expiredAt
}

// SendMessage persists a chat message and broadcasts it to the session's
// channel. A send past the deadline closes the session and is rejected; the
// message is never persisted.
func (s *ConsultationService) SendMessage(ctx context.Context, consultationID, senderID uint, text string) (*models.ChatMessage, error) {
	if text == "" {
		return nil, apperrors.NewValidationError("Message must not be empty")
	}

	var (
		message *models.ChatMessage
		expired bool
	)
	err := s.store.Transact(ctx, func(tx ConsultationStore) error {
		consultation, err := tx.ConsultationByIDForUpdate(ctx, consultationID)
		if err != nil {
			if err == ErrNotFound {
				return apperrors.NewNotFoundError("Consultation session not found")
			}
			return apperrors.New500Error(err)
		}
		if !consultation.IsParty(senderID) {
			return apperrors.NewForbiddenError()
		}
		if consultation.Status != models.ConsultationActive {
			return apperrors.NewInvalidStateError("Consultation session is not active")
		}
		if consultation.ExpiredAt != nil && time.Now().After(*consultation.ExpiredAt) {
			// Close the session. Returning nil commits the flip; the
			// expiry error is surfaced after the transaction.
			consultation.Status = models.ConsultationCompleted
			if err := tx.SaveConsultation(ctx, consultation); err != nil {
				return apperrors.New500Error(err)
			}
			expired = true
			return nil
		}

		message = &models.ChatMessage{
			ConsultationID: consultationID,
			SenderID:       senderID,
			Message:        text,
		}
		if err := tx.CreateMessage(ctx, message); err != nil {
			return apperrors.New500Error(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, apperrors.NewExpiredError()
	}

	// Persistence is done; the broadcast is best-effort.
	s.broker.Publish(ChannelName(consultationID), ChatMessagePayload{
		ID:             message.ID,
		ConsultationID: message.ConsultationID,
		SenderID:       message.SenderID,
		Message:        message.Message,
		Timestamp:      message.CreatedAt,
	})

	return message, nil
}

// GetHistory returns the session's messages oldest-first, each flagged with
// whether the requester sent it. Reading past the deadline also closes the
// session, but the transcript stays readable in any state.
func (s *ConsultationService) GetHistory(ctx context.Context, consultationID, requesterID uint) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := s.store.Transact(ctx, func(tx ConsultationStore) error {
		consultation, err := tx.ConsultationByIDForUpdate(ctx, consultationID)
		if err != nil {
			if err == ErrNotFound {
				return apperrors.NewNotFoundError("Consultation session not found")
			}
			return apperrors.New500Error(err)
		}
		if !consultation.IsParty(requesterID) {
			return apperrors.NewForbiddenError()
		}
		if consultation.Status == models.ConsultationActive &&
			consultation.ExpiredAt != nil && time.Now().After(*consultation.ExpiredAt) {
			consultation.Status = models.ConsultationCompleted
			if err := tx.SaveConsultation(ctx, consultation); err != nil {
				return apperrors.New500Error(err)
			}
		}

		messages, err := tx.MessagesByConsultationID(ctx, consultationID)
		if err != nil {
			return apperrors.New500Error(err)
		}
		entries = make([]HistoryEntry, 0, len(messages))
		for _, msg := range messages {
			entries = append(entries, HistoryEntry{
				ID:        msg.ID,
				SenderID:  msg.SenderID,
				Message:   msg.Message,
				Timestamp: msg.CreatedAt,
				IsMe:      msg.SenderID == requesterID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Consultation loads a session on behalf of one of its parties. Used by the
// WebSocket handler to authorize a live subscription.
func (s *ConsultationService) Consultation(ctx context.Context, consultationID, requesterID uint) (*models.Consultation, error) {
	consultation, err := s.store.ConsultationByID(ctx, consultationID)
	if err != nil {
		if err == ErrNotFound {
			return nil, apperrors.NewNotFoundError("Consultation session not found")
		}
		return nil, apperrors.New500Error(err)
	}
	if !consultation.IsParty(requesterID) {
		return nil, apperrors.NewForbiddenError()
	}
	return consultation, nil
}
