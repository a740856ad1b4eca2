package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount describes an account to create. The profile is created in the
// same transaction, optionally attached to DepartmentID.
type NewAccount struct {
	Username     string `validate:"required,max=150"`
	Email        string `validate:"omitempty,email,max=254"`
	Password     string `validate:"required,min=8"`
	IsStaff      bool
	IsSuperuser  bool
	DepartmentID *int64
}
