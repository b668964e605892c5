// Package accountservice manages operator logins for the administrative
// surface. Platform customers authenticate upstream; only operators hold
// local credentials.
package accountservice

import (
	"context"
	"errors"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AccountService struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(database *gorm.DB, log *zap.Logger) *AccountService {
	return &AccountService{db: database, log: log}
}

type CreateAccountParams struct {
	Username string
	Password string
	Email    string
}

// Create registers a new operator account.
func (s *AccountService) Create(ctx context.Context, params CreateAccountParams) (*models.Account, error) {
	if params.Username == "" || params.Password == "" {
		return nil, apperrors.Validation("account", "create", "username and password are required")
	}

	var existing models.Account
	err := s.db.WithContext(ctx).Where("username = ?", params.Username).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("account", "create", "username "+params.Username+" is taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("account", "create", err)
	}

	hash, err := models.HashPassword(params.Password)
	if err != nil {
		return nil, apperrors.Internal("account", "create", err)
	}

	account := models.Account{
		Username:     params.Username,
		PasswordHash: hash,
		Email:        params.Email,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, apperrors.Internal("account", "create", err)
	}

	s.log.Info("operator account created", zap.String("username", params.Username))
	account.PasswordHash = ""
	return &account, nil
}

// Authenticate checks credentials and returns the account. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Validation("account", "login", "invalid credentials")
	}
	if err != nil {
		return nil, apperrors.Internal("account", "login", err)
	}

	if !account.CheckPassword(password) {
		return nil, apperrors.Validation("account", "login", "invalid credentials")
	}
	return &account, nil
}
