package services

import (
	"context"
	"errors"

	apperrors "github.com/DAVIPRADIPTA/anemia-app/internal/errors"
	"github.com/DAVIPRADIPTA/anemia-app/internal/models"

	"gorm.io/gorm"
)

// UserService resolves accounts for authentication and booking. Registration
// and profile management beyond this live elsewhere; the consultation core
// only needs id, role, price and the authenticated identity.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Register(ctx context.Context, email, password, fullName string, role models.Role) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Email and password are required")
	}
	if fullName == "" {
		fullName = "User Tanpa Nama"
	}
	if role == "" {
		role = models.RolePatient
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperrors.NewValidationError("Email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New500Error(err)
	}

	user := &models.User{
		Email:    email,
		FullName: fullName,
		Role:     role,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, apperrors.New500Error(err)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperrors.New500Error(err)
	}
	return user, nil
}

// Authenticate returns the user when email and password match. The same
// error covers an unknown email and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, apperrors.New500Error(err)
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}
	return &user, nil
}

func (s *UserService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, apperrors.New500Error(err)
	}
	return &user, nil
}
