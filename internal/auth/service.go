package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/grcdash/grcdash/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CreateAccount hashes the password and stores the account with a profile.
func (s *Service) CreateAccount(ctx context.Context, acct NewAccount) (*User, error) {
	acct.Username = strings.TrimSpace(acct.Username)
	acct.Email = strings.TrimSpace(acct.Email)
	if err := s.validate.Struct(acct); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid account: %s failed %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(acct.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateAccount(ctx, acct, string(hash))
}

// SetPassword changes the password of an existing account.
func (s *Service) SetPassword(ctx context.Context, userID int64, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.SetPassword(ctx, userID, string(hash))
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
