package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// RateLimiter implements domain.RateLimiter using a fixed-window counter:
// INCR on a per-key, per-window counter plus an EXPIRE on first increment.
// Fixed windows admit up to 2x the limit across a window boundary, which is
// acceptable for protecting a single-user API.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.rdb}
}

func rateLimitKey(key string, window time.Duration) string {
	bucket := time.Now().UnixNano() / int64(window)
	return fmt.Sprintf("ratelimit:%s:%d", key, bucket)
}

// Allow reports whether a request for the given key is permitted under
// limit requests per window. A Redis failure fails open: the request is
// allowed and the error returned for logging.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	k := rateLimitKey(key, window)

	pipe := rl.rdb.Pipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
