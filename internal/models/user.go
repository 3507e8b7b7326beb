package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RolePatient Role = "PASIEN"
	RoleDoctor  Role = "DOKTER"
	RoleAdmin   Role = "ADMIN"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:256;not null"`
	FullName     string `gorm:"size:100;not null"`
	Role         Role   `gorm:"size:20;not null"`
	CreatedAt    time.Time

	// Doctor-only columns, zero-valued for patients and admins.
	Specialization    string `gorm:"size:100"`
	ConsultationPrice int64  `gorm:"default:0"` // rupiah
	IsOnline          bool   `gorm:"default:false"`
	Bio               string `gorm:"type:text"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
