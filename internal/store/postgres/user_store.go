package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userSelectCols = `id, username, password_hash, is_active, created_at, last_login`

func scanUserRow(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Create inserts the user account. A duplicate username surfaces as
// domain.ErrAlreadyExists.
func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (id, username, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := s.pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.IsActive)
	if err != nil {
		return fmt.Errorf("postgres: create user %s: %w", u.Username, mapErr(err))
	}
	return nil
}

// GetByID returns a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectCols)

	u, err := scanUserRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", id, mapErr(err))
	}
	return u, nil
}

// GetByUsername returns a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userSelectCols)

	u, err := scanUserRow(s.pool.QueryRow(ctx, query, username))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user %q: %w", username, mapErr(err))
	}
	return u, nil
}

// Count returns the number of user accounts.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count users: %w", err)
	}
	return count, nil
}

// UpdatePassword replaces a user's password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET password_hash = $2 WHERE id = $1", id, passwordHash)
	if err != nil {
		return fmt.Errorf("postgres: update password for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateLastLogin records the time of a successful login.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET last_login = $2 WHERE id = $1", id, at)
	if err != nil {
		return fmt.Errorf("postgres: update last login for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
