package models

import "time"

type ConsultationStatus string

const (
	ConsultationPending   ConsultationStatus = "pending"
	ConsultationActive    ConsultationStatus = "active"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationFailed    ConsultationStatus = "failed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSuccess   PaymentStatus = "success"
	PaymentChallenge PaymentStatus = "challenge"
	PaymentFailed    PaymentStatus = "failed"
)

// Consultation is a time-boxed chat session between a patient and a doctor.
// ExpiredAt is nil until the session is activated by a settled payment.
type Consultation struct {
	ID        uint               `gorm:"primaryKey"`
	PatientID uint               `gorm:"index;not null"`
	DoctorID  uint               `gorm:"index;not null"`
	Status    ConsultationStatus `gorm:"size:20;not null;default:pending"`
	ExpiredAt *time.Time
	CreatedAt time.Time
}

// IsParty reports whether userID is one of the two session parties.
func (c *Consultation) IsParty(userID uint) bool {
	return userID == c.PatientID || userID == c.DoctorID
}

// Payment is one-to-one with a Consultation. TransactionID holds the order id
// sent to the gateway and correlates webhook notifications back to the row.
type Payment struct {
	ID             uint          `gorm:"primaryKey"`
	ConsultationID uint          `gorm:"index;not null"`
	Amount         int64         `gorm:"not null"`
	Status         PaymentStatus `gorm:"size:20;not null;default:pending"`
	PaymentMethod  string        `gorm:"size:50"`
	TransactionID  string        `gorm:"size:100;uniqueIndex"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChatMessage is append-only: rows are never updated or deleted.
type ChatMessage struct {
	ID             uint   `gorm:"primaryKey"`
	ConsultationID uint   `gorm:"index;not null"`
	SenderID       uint   `gorm:"not null"`
	Message        string `gorm:"type:text;not null"`
	CreatedAt      time.Time
}
