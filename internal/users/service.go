package users

import (
	"context"
	"errors"

	"github.com/grcdash/grcdash/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	EnsureProfile(ctx context.Context, userID int64, departmentID *int64) (Profile, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// Principal resolves the user behind a session. Inactive or missing
// accounts yield nil without an error.
func (s *Service) Principal(ctx context.Context, userID int64) (*User, error) {
	if userID <= 0 {
		return nil, nil
	}
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}
	return &u, nil
}

// AuthorizePOAM resolves the user and applies the PO&AM gate.
func (s *Service) AuthorizePOAM(ctx context.Context, userID int64) (Decision, error) {
	u, err := s.Principal(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return CheckPOAMAccess(u), nil
}

// AssignDepartment places a user in a department, creating the profile when
// it does not exist yet.
func (s *Service) AssignDepartment(ctx context.Context, userID int64, departmentID *int64) (Profile, error) {
	return s.repo.EnsureProfile(ctx, userID, departmentID)
}
