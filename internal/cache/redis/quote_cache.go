package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// QuoteCache implements domain.QuoteCache using Redis hashes. Each ticker's
// latest quote is stored as a hash at key "quote:{ticker}" with fields
// "price" (decimal string) and "ts" (Unix nanosecond timestamp), expiring
// after the configured TTL so stale quotes fall through to the provider.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. A zero ttl
// disables expiry.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.rdb, ttl: ttl}
}

func quoteKey(ticker string) string {
	return "quote:" + ticker
}

// SetQuote stores the latest price and timestamp for a ticker.
func (qc *QuoteCache) SetQuote(ctx context.Context, ticker string, price decimal.Decimal, ts time.Time) error {
	key := quoteKey(ticker)
	fields := map[string]interface{}{
		"price": price.String(),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if qc.ttl > 0 {
		pipe.Expire(ctx, key, qc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", ticker, err)
	}
	return nil
}

// GetQuote retrieves the cached price and timestamp for a ticker. It returns
// domain.ErrNotFound when no fresh quote exists.
func (qc *QuoteCache) GetQuote(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(ticker)).Result()
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: get quote %s: %w", ticker, err)
	}
	if len(vals) == 0 {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: parse quote %s: %w", ticker, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: parse quote ts %s: %w", ticker, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// GetQuotes retrieves cached prices for multiple tickers using a pipeline.
// Tickers without a fresh quote are silently omitted from the result map.
func (qc *QuoteCache) GetQuotes(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	pipe := qc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(tickers))
	for _, t := range tickers {
		cmds[t] = pipe.HGetAll(ctx, quoteKey(t))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes pipeline: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(tickers))
	for t, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		priceStr, ok := vals["price"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			continue
		}
		result[t] = price
	}

	return result, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
