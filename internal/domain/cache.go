package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteCache provides fast access to recently fetched quotes so repeated P&L
// requests do not hammer the market-data provider.
type QuoteCache interface {
	SetQuote(ctx context.Context, ticker string, price decimal.Decimal, ts time.Time) error
	// GetQuote returns ErrNotFound when no fresh quote is cached.
	GetQuote(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error)
	// GetQuotes returns the cached subset; tickers without a fresh quote are
	// omitted from the result.
	GetQuotes(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// SessionStore holds opaque login session tokens.
type SessionStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	// Get returns ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// RateLimiter provides request rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
