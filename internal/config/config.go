// Package config defines the ledger daemon's configuration and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PMS_* environment variables.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Wallet     WalletConfig     `toml:"wallet"`
	MarketData MarketDataConfig `toml:"market_data"`
	Lock       LockConfig       `toml:"lock"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Archive    ArchiveConfig    `toml:"archive"`
	LogLevel   string           `toml:"log_level"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `toml:"driver"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters. Redis backs the mark cache,
// the event bus, the distributed lock and API rate limiting.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`

	// Namespace prefixes every key, channel and stream.
	Namespace    string `toml:"namespace"`
	StreamMaxLen int    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for the archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// WalletConfig sets up the wallet singleton on first start.
type WalletConfig struct {
	InitialBalance decimal.Decimal `toml:"initial_balance"`
	Currency       string          `toml:"currency"`
}

// MarketDataConfig points at the quote and history service.
type MarketDataConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
	// MarkTTL is the Redis expiry for cached marks.
	MarkTTL duration `toml:"mark_ttl"`
	// MaxAge is how old a cached mark may be before it is refetched.
	MaxAge duration `toml:"max_age"`
	// Interval schedules background mark refreshes; zero disables them.
	Interval duration `toml:"interval"`
}

// LockConfig enables the distributed portfolio lock.
type LockConfig struct {
	Enabled bool     `toml:"enabled"`
	Key     string   `toml:"key"`
	TTL     duration `toml:"ttl"`
	Wait    duration `toml:"wait"`
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKeyHash is the output of `pmsd hash-key`. Empty disables auth.
	APIKeyHash string `toml:"api_key_hash"`
	// RateLimit is requests per RateWindow per client; zero disables.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken       string          `toml:"telegram_token"`
	TelegramChatID      string          `toml:"telegram_chat_id"`
	DiscordWebhookURL   string          `toml:"discord_webhook_url"`
	Events              []string        `toml:"events"`
	LowBalanceThreshold decimal.Decimal `toml:"low_balance_threshold"`
}

// ArchiveConfig schedules the transaction-log export to S3.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{Driver: DriverMemory},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pms",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			Namespace:    "pms",
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "pms-archive",
			ForcePathStyle: true,
		},
		Wallet: WalletConfig{
			InitialBalance: decimal.NewFromInt(10000),
			Currency:       "USD",
		},
		MarketData: MarketDataConfig{
			BaseURL: "http://localhost:5000",
			Timeout: duration{10 * time.Second},
			MarkTTL: duration{24 * time.Hour},
			MaxAge:  duration{time.Minute},
		},
		Lock: LockConfig{
			Key:  "portfolio",
			TTL:  duration{10 * time.Second},
			Wait: duration{5 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events:              []string{"trade_filled", "low_balance"},
			LowBalanceThreshold: decimal.Zero,
		},
		Archive: ArchiveConfig{
			Interval: duration{24 * time.Hour},
		},
		LogLevel: "info",
	}
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

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Storage
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: memory, postgres)", c.Storage.Driver))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.StreamMaxLen < 0 {
			errs = append(errs, "redis: stream_max_len must not be negative")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}
	if c.Lock.Enabled {
		if !c.Redis.Enabled {
			errs = append(errs, "lock: requires redis.enabled")
		}
		if c.Lock.TTL.Duration <= 0 {
			errs = append(errs, "lock: ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}
	if c.Archive.Enabled {
		if !c.S3.Enabled {
			errs = append(errs, "archive: requires s3.enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Wallet
	if c.Wallet.InitialBalance.IsNegative() {
		errs = append(errs, "wallet: initial_balance must not be negative")
	}
	if len(c.Wallet.Currency) != 3 {
		errs = append(errs, fmt.Sprintf("wallet: currency must be an ISO 4217 code, got %q", c.Wallet.Currency))
	}
	if c.Notify.LowBalanceThreshold.IsNegative() {
		errs = append(errs, "notify: low_balance_threshold must not be negative")
	}

	// Market data
	if c.MarketData.BaseURL == "" && c.MarketData.Interval.Duration > 0 {
		errs = append(errs, "market_data: base_url is required when interval is set")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
