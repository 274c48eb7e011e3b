package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ideadesk/ideadesk/internal/domain"
)

const sessionTokenBytes = 32

// AuthService handles the single-user account: first-time setup, login with
// opaque session tokens, and password changes.
type AuthService struct {
	users      domain.UserStore
	sessions   domain.SessionStore
	audit      domain.AuditStore
	bcryptCost int
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users domain.UserStore,
	sessions domain.SessionStore,
	audit domain.AuditStore,
	bcryptCost int,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		audit:      audit,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// SetupRequired reports whether no account exists yet.
func (s *AuthService) SetupRequired(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("auth_service: count users: %w", err)
	}
	return count == 0, nil
}

// Setup creates the one and only account. A second call returns
// ErrAlreadyExists.
func (s *AuthService) Setup(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("auth_service: username is required: %w", domain.ErrValidation)
	}
	if len(password) < 8 {
		return domain.User{}, fmt.Errorf("auth_service: password must be at least 8 characters: %w", domain.ErrValidation)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: count users: %w", err)
	}
	if count > 0 {
		return domain.User{}, fmt.Errorf("auth_service: account already set up: %w", domain.ErrAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: hash password: %w", err)
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("auth_service: create user: %w", err)
	}

	s.logAudit(ctx, "user_created", map[string]any{"username": username})
	return u, nil
}

// Login verifies the credentials and issues an opaque session token. Unknown
// users, bad passwords, and disabled accounts all collapse into
// ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("auth_service: login: %w", domain.ErrUnauthorized)
		}
		return "", fmt.Errorf("auth_service: get user: %w", err)
	}
	if !u.IsActive {
		return "", fmt.Errorf("auth_service: login: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("auth_service: login: %w", domain.ErrUnauthorized)
	}

	token, err := newSessionToken()
	if err != nil {
		return "", fmt.Errorf("auth_service: generate token: %w", err)
	}
	if err := s.sessions.Put(ctx, token, u.ID, s.sessionTTL); err != nil {
		return "", fmt.Errorf("auth_service: store session: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("last login update failed", "user_id", u.ID, "error", err)
	}
	s.logAudit(ctx, "user_logged_in", map[string]any{"username": u.Username})
	return token, nil
}

// Logout invalidates a session token. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("auth_service: delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to its user. Expired or unknown
// tokens return ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, fmt.Errorf("auth_service: authenticate: %w", domain.ErrUnauthorized)
	}
	userID, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("auth_service: authenticate: %w", domain.ErrUnauthorized)
		}
		return domain.User{}, fmt.Errorf("auth_service: get session: %w", err)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: get user %s: %w", userID, err)
	}
	if !u.IsActive {
		return domain.User{}, fmt.Errorf("auth_service: authenticate: %w", domain.ErrUnauthorized)
	}
	return u, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("auth_service: password must be at least 8 characters: %w", domain.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth_service: get user %s: %w", userID, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("auth_service: change password: %w", domain.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("auth_service: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return fmt.Errorf("auth_service: update password: %w", err)
	}

	s.logAudit(ctx, "password_changed", map[string]any{"username": u.Username})
	return nil
}

// newSessionToken returns a hex-encoded random token.
func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *AuthService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log write failed", "event", event, "error", err)
	}
}
