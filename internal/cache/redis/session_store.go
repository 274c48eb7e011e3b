package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// SessionStore implements domain.SessionStore using plain Redis keys with a
// TTL. The key is the opaque session token; the value is the user ID. Expiry
// is handled entirely by Redis, so a lookup after the TTL behaves exactly
// like an unknown token.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a SessionStore backed by the given Client.
func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{rdb: c.rdb}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Put stores a session token for the given user with the given TTL.
func (ss *SessionStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := ss.rdb.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put session: %w", err)
	}
	return nil
}

// Get returns the user ID for a session token, or domain.ErrNotFound for
// unknown or expired tokens.
func (ss *SessionStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := ss.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get session: %w", err)
	}
	return userID, nil
}

// Delete removes a session token. Deleting an unknown token is not an error.
func (ss *SessionStore) Delete(ctx context.Context, token string) error {
	if err := ss.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SessionStore = (*SessionStore)(nil)
