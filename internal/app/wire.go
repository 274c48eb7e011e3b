package app

import (
	"context"
	"fmt"
	"strings"

	s3blob "github.com/ideadesk/ideadesk/internal/blob/s3"
	"github.com/ideadesk/ideadesk/internal/cache/redis"
	"github.com/ideadesk/ideadesk/internal/config"
	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/platform/eodhd"
	"github.com/ideadesk/ideadesk/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	DB    *postgres.Client
	Cache *redis.Client

	// Stores
	Folders      domain.FolderStore
	Ideas        domain.IdeaStore
	Observations domain.ObservationStore
	Earnings     domain.EarningsStore
	Guidance     domain.GuidanceStore
	Notes        domain.NoteStore
	Attachments  domain.AttachmentStore
	Users        domain.UserStore
	Audit        domain.AuditStore

	// Caches
	Quotes      domain.QuoteCache
	Sessions    domain.SessionStore
	RateLimiter domain.RateLimiter

	// Blob storage
	BlobWriter  domain.BlobWriter
	BlobReader  domain.BlobReader
	BlobDeleter domain.BlobDeleter
	Archiver    domain.Archiver

	// Market data
	Market domain.MarketData
}

// needsS3 returns true for modes that require object storage. The backfill
// mode only talks to the database and the provider.
func needsS3(mode string) bool {
	switch strings.ToLower(mode) {
	case "serve", "archive":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.DB = pgClient
	deps.Folders = postgres.NewFolderStore(pool)
	deps.Ideas = postgres.NewIdeaStore(pool)
	deps.Observations = postgres.NewObservationStore(pool)
	deps.Earnings = postgres.NewEarningsStore(pool)
	deps.Guidance = postgres.NewGuidanceStore(pool)
	deps.Notes = postgres.NewNoteStore(pool)
	deps.Attachments = postgres.NewAttachmentStore(pool)
	deps.Users = postgres.NewUserStore(pool)
	deps.Audit = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Cache = redisClient
	deps.Quotes = redis.NewQuoteCache(redisClient, cfg.Provider.QuoteTTL.Duration)
	deps.Sessions = redis.NewSessionStore(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- S3 blob storage ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.BlobDeleter = reader
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Observations, deps.Audit)
	}

	// --- Market data provider ---
	deps.Market = eodhd.New(
		cfg.Provider.BaseURL,
		cfg.Provider.APIToken,
		cfg.Provider.Exchange,
		cfg.Provider.Timeout.Duration,
	)

	return deps, cleanup, nil
}
