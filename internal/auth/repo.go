package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grcdash/grcdash/internal/platform/db"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/users"
)

// ErrUsernameTaken is returned when an account with the username exists.
var ErrUsernameTaken = errors.New("auth: username already taken")

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	CreateAccount(ctx context.Context, acct NewAccount, passwordHash string) (*User, error)
	SetPassword(ctx context.Context, userID int64, passwordHash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_active, is_staff, is_superuser, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, ua)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`,
		id, userID, now, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return err
}

// CreateAccount inserts the user and its profile in one transaction.
func (r *PGRepository) CreateAccount(ctx context.Context, acct NewAccount, passwordHash string) (*User, error) {
	var created *User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, is_staff, is_superuser)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns, acct.Username, acct.Email, passwordHash, acct.IsStaff, acct.IsSuperuser))
		if err != nil {
			if _, ok := db.UniqueViolation(err); ok {
				return ErrUsernameTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := users.EnsureProfile(ctx, tx, user.ID, acct.DepartmentID); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetPassword replaces the password hash of a user. Saving an account also
// re-saves its profile, creating one for accounts that predate profiles.
func (r *PGRepository) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = users.EnsureProfile(ctx, tx, userID, nil)
		return err
	})
}

var _ Repository = (*PGRepository)(nil)
