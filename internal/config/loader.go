package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies IDEADESK_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known IDEADESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "IDEADESK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "IDEADESK_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "IDEADESK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWin, "IDEADESK_SERVER_RATE_LIMIT_WINDOW")
	setBool(&cfg.Server.SecureCookies, "IDEADESK_SERVER_SECURE_COOKIES")

	// ── Database ──
	setStr(&cfg.Database.DSN, "IDEADESK_DATABASE_DSN")
	setStr(&cfg.Database.Host, "IDEADESK_DATABASE_HOST")
	setInt(&cfg.Database.Port, "IDEADESK_DATABASE_PORT")
	setStr(&cfg.Database.Database, "IDEADESK_DATABASE_NAME")
	setStr(&cfg.Database.User, "IDEADESK_DATABASE_USER")
	setStr(&cfg.Database.Password, "IDEADESK_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "IDEADESK_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "IDEADESK_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "IDEADESK_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "IDEADESK_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "IDEADESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "IDEADESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "IDEADESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "IDEADESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "IDEADESK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "IDEADESK_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "IDEADESK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "IDEADESK_S3_REGION")
	setStr(&cfg.S3.Bucket, "IDEADESK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "IDEADESK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "IDEADESK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "IDEADESK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "IDEADESK_S3_FORCE_PATH_STYLE")

	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "IDEADESK_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.APIToken, "IDEADESK_PROVIDER_API_TOKEN")
	setStr(&cfg.Provider.Exchange, "IDEADESK_PROVIDER_EXCHANGE")
	setDuration(&cfg.Provider.Timeout, "IDEADESK_PROVIDER_TIMEOUT")
	setDuration(&cfg.Provider.QuoteTTL, "IDEADESK_PROVIDER_QUOTE_TTL")

	// ── Auth ──
	setDuration(&cfg.Auth.SessionTTL, "IDEADESK_AUTH_SESSION_TTL")
	setInt(&cfg.Auth.MinPasswordLength, "IDEADESK_AUTH_MIN_PASSWORD_LENGTH")
	setInt(&cfg.Auth.BcryptCost, "IDEADESK_AUTH_BCRYPT_COST")

	// ── Uploads ──
	setInt64(&cfg.Uploads.MaxSizeBytes, "IDEADESK_UPLOADS_MAX_SIZE_BYTES")
	setStringSlice(&cfg.Uploads.AllowedExtensions, "IDEADESK_UPLOADS_ALLOWED_EXTENSIONS")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "IDEADESK_ARCHIVE_RETENTION_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "IDEADESK_MODE")
	setStr(&cfg.LogLevel, "IDEADESK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
