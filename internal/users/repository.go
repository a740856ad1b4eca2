package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/grcdash/grcdash/internal/shared"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db DBTX
}

// NewRepository constructs a repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const selectUser = `SELECT u.id, u.username, u.email, u.is_active, u.is_staff, u.is_superuser,
	p.department_id, COALESCE(d.name, ''), u.created_at, u.updated_at
FROM users u
LEFT JOIN user_profiles p ON p.user_id = u.id
LEFT JOIN departments d ON d.id = p.department_id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.IsStaff, &u.IsSuperuser,
		&u.DepartmentID, &u.DepartmentName, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUser+` ORDER BY u.username, u.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser returns a user with its profile department.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// EnsureProfile creates the profile for a user or, when departmentID is
// set, moves the existing profile to that department.
func (r *Repository) EnsureProfile(ctx context.Context, userID int64, departmentID *int64) (Profile, error) {
	return EnsureProfile(ctx, r.db, userID, departmentID)
}

// EnsureProfile upserts a profile using db, which may be a transaction.
func EnsureProfile(ctx context.Context, db DBTX, userID int64, departmentID *int64) (Profile, error) {
	p := Profile{UserID: userID}
	err := db.QueryRow(ctx, `INSERT INTO user_profiles (user_id, department_id)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE
SET department_id = COALESCE(EXCLUDED.department_id, user_profiles.department_id), updated_at = NOW()
RETURNING id, department_id, created_at, updated_at`, userID, departmentID).
		Scan(&p.ID, &p.DepartmentID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("ensure profile for user %d: %w", userID, err)
	}
	if p.DepartmentID != nil {
		if err := db.QueryRow(ctx, `SELECT name FROM departments WHERE id = $1`, *p.DepartmentID).Scan(&p.DepartmentName); err != nil {
			return Profile{}, fmt.Errorf("profile department: %w", err)
		}
	}
	return p, nil
}
