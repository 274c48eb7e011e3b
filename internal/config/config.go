// Package config defines the top-level configuration for the ideadesk
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by IDEADESK_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Provider ProviderConfig `toml:"provider"`
	Auth     AuthConfig     `toml:"auth"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Archive  ArchiveConfig  `toml:"archive"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	RateLimit     int      `toml:"rate_limit"`
	RateLimitWin  duration `toml:"rate_limit_window"`
	SecureCookies bool     `toml:"secure_cookies"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ProviderConfig holds market-data provider parameters.
type ProviderConfig struct {
	BaseURL  string   `toml:"base_url"`
	APIToken string   `toml:"api_token"`
	Exchange string   `toml:"exchange"`
	Timeout  duration `toml:"timeout"`
	QuoteTTL duration `toml:"quote_ttl"`
}

// AuthConfig holds session parameters for the single-user login.
type AuthConfig struct {
	SessionTTL        duration `toml:"session_ttl"`
	MinPasswordLength int      `toml:"min_password_length"`
	BcryptCost        int      `toml:"bcrypt_cost"`
}

// UploadsConfig constrains attachment uploads.
type UploadsConfig struct {
	MaxSizeBytes      int64    `toml:"max_size_bytes"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// ArchiveConfig holds parameters for the one-shot observation archive mode.
type ArchiveConfig struct {
	RetentionDays int `toml:"retention_days"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:     240,
			RateLimitWin:  duration{time.Minute},
			SecureCookies: false,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "ideadesk",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ideadesk-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Provider: ProviderConfig{
			BaseURL:  "https://eodhd.com/api",
			Exchange: "US",
			Timeout:  duration{15 * time.Second},
			QuoteTTL: duration{5 * time.Minute},
		},
		Auth: AuthConfig{
			SessionTTL:        duration{24 * time.Hour},
			MinPasswordLength: 8,
			BcryptCost:        12,
		},
		Uploads: UploadsConfig{
			MaxSizeBytes: 25 * 1024 * 1024,
			AllowedExtensions: []string{
				".pdf", ".png", ".jpg", ".jpeg", ".gif", ".csv",
				".xlsx", ".xls", ".docx", ".txt", ".md",
			},
		},
		Archive: ArchiveConfig{
			RetentionDays: 365,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":    true,
	"backfill": true,
	"archive":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, backfill, archive)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0 (0 disables limiting)")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required for modes that touch object storage, but a partial
	// section is always a mistake worth rejecting early.
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Provider
	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider: base_url must not be empty")
	}
	if c.Provider.APIToken == "" {
		errs = append(errs, "provider: api_token must not be empty")
	}
	if c.Provider.Timeout.Duration <= 0 {
		errs = append(errs, "provider: timeout must be > 0")
	}

	// Auth
	if c.Auth.SessionTTL.Duration <= 0 {
		errs = append(errs, "auth: session_ttl must be > 0")
	}
	if c.Auth.MinPasswordLength < 8 {
		errs = append(errs, "auth: min_password_length must be >= 8")
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 16 {
		errs = append(errs, fmt.Sprintf("auth: bcrypt_cost must be 10-16, got %d", c.Auth.BcryptCost))
	}

	// Uploads
	if c.Uploads.MaxSizeBytes <= 0 {
		errs = append(errs, "uploads: max_size_bytes must be > 0")
	}

	// Archive
	if c.Archive.RetentionDays < 1 {
		errs = append(errs, "archive: retention_days must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
