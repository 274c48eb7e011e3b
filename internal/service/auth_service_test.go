package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ideadesk/ideadesk/internal/domain"
)

type fakeUserStore struct {
	byID map[string]domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[string]domain.User)}
}

func (s *fakeUserStore) Create(_ context.Context, u domain.User) error {
	s.byID[u.ID] = u
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (domain.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *fakeUserStore) Count(_ context.Context) (int64, error) {
	return int64(len(s.byID)), nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.byID[id] = u
	return nil
}

func (s *fakeUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastLogin = &at
	s.byID[id] = u
	return nil
}

type fakeSessionStore struct {
	byToken map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byToken: make(map[string]string)}
}

func (s *fakeSessionStore) Put(_ context.Context, token, userID string, _ time.Duration) error {
	s.byToken[token] = userID
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, token string) (string, error) {
	userID, ok := s.byToken[token]
	if !ok {
		return "", domain.ErrNotFound
	}
	return userID, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, token string) error {
	if _, ok := s.byToken[token]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byToken, token)
	return nil
}

var (
	_ domain.UserStore    = (*fakeUserStore)(nil)
	_ domain.SessionStore = (*fakeSessionStore)(nil)
)

func newTestAuthService() (*AuthService, *fakeUserStore, *fakeSessionStore) {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	svc := NewAuthService(users, sessions, &fakeAuditStore{}, bcrypt.MinCost, time.Hour, discardLogger())
	return svc, users, sessions
}

func TestSetupOnlyOnce(t *testing.T) {
	svc, _, _ := newTestAuthService()

	required, err := svc.SetupRequired(context.Background())
	require.NoError(t, err)
	assert.True(t, required)

	u, err := svc.Setup(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	required, err = svc.SetupRequired(context.Background())
	require.NoError(t, err)
	assert.False(t, required)

	_, err = svc.Setup(context.Background(), "second", "another password")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSetupValidation(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Setup(context.Background(), "   ", "long enough pw")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Setup(context.Background(), "analyst", "short")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _, _ := newTestAuthService()
	_, err := svc.Setup(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)
	assert.Len(t, token, sessionTokenBytes*2) // hex

	u, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "analyst", u.Username)
}

func TestLoginFailuresCollapseToUnauthorized(t *testing.T) {
	svc, users, _ := newTestAuthService()
	_, err := svc.Setup(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "nobody", "correct horse battery")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "analyst", "wrong password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	for id, u := range users.byID {
		u.IsActive = false
		users.byID[id] = u
	}
	_, err = svc.Login(context.Background(), "analyst", "correct horse battery")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	_, err := svc.Setup(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Unknown tokens log out cleanly.
	assert.NoError(t, svc.Logout(context.Background(), "gone"))
}

func TestAuthenticateEmptyToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestAuthService()
	u, err := svc.Setup(context.Background(), "analyst", "correct horse battery")
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), u.ID, "wrong", "new password here")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = svc.ChangePassword(context.Background(), u.ID, "correct horse battery", "tiny")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "correct horse battery", "new password here"))

	_, err = svc.Login(context.Background(), "analyst", "correct horse battery")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Login(context.Background(), "analyst", "new password here")
	assert.NoError(t, err)
}
