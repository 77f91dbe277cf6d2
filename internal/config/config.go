// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"treasury/internal/core/security"
	"treasury/internal/infrastructure/storage/postgres"
)

// Prefix is prepended to every environment variable, e.g. TREASURY_HTTP_ADDR.
const Prefix = "TREASURY"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration for the treasury binaries.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	StorageDriver    string        `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	DBMaxConns       int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns       int32         `envconfig:"DB_MIN_CONNS" default:"5"`
	StatementTimeout time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"30s"`
	MigrateOnStart   bool          `envconfig:"MIGRATE_ON_START" default:"true"`

	// JWTSecret enables bearer authentication when set.
	JWTSecret string `envconfig:"JWT_SECRET"`
	// AuthRequired rejects anonymous API requests.
	AuthRequired bool `envconfig:"AUTH_REQUIRED" default:"false"`
	// MoneyScale is the number of minor digits of the ledger currency (0 for rials).
	MoneyScale int32 `envconfig:"MONEY_SCALE" default:"0"`

	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// ClosedUntil rejects postings dated before it (YYYY-MM-DD).
	ClosedUntil string `envconfig:"CLOSED_UNTIL"`
	// BackdateWarning logs documents dated further back than this. Zero disables it.
	BackdateWarning time.Duration `envconfig:"BACKDATE_WARNING" default:"0"`

	// CheckDirectClearPolicy is a CEL expression gating pending -> cleared.
	CheckDirectClearPolicy string `envconfig:"CHECK_DIRECT_CLEAR_POLICY" default:"true"`

	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	CleanupInterval    time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("TREASURY_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.AuthRequired && c.JWTSecret == "" {
		return errors.New("TREASURY_AUTH_REQUIRED needs TREASURY_JWT_SECRET")
	}
	if c.MoneyScale < 0 || c.MoneyScale > 8 {
		return fmt.Errorf("TREASURY_MONEY_SCALE out of range: %d", c.MoneyScale)
	}
	if c.ClosedUntil != "" {
		if _, err := time.Parse(time.DateOnly, c.ClosedUntil); err != nil {
			return fmt.Errorf("TREASURY_CLOSED_UNTIL: %w", err)
		}
	}
	return nil
}

// IsDevelopment reports whether the binaries run in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ClosedPeriodEnd returns the parsed closing date, or false when no period is closed.
func (c *Config) ClosedPeriodEnd() (time.Time, bool) {
	if c.ClosedUntil == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, c.ClosedUntil)
	return t, err == nil
}

// PostingPolicy builds the closed-period rule for the ledger.
func (c *Config) PostingPolicy() security.PostingPolicy {
	closedUntil, closed := c.ClosedPeriodEnd()
	switch {
	case c.BackdateWarning > 0:
		return security.NewFlexiblePolicy(c.BackdateWarning, closedUntil)
	case closed:
		return security.NewStrictPolicy(closedUntil)
	default:
		return security.OpenPolicy{}
	}
}

// PoolConfig returns the pgx pool settings.
func (c *Config) PoolConfig() postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(c.DatabaseURL)
	pc.MaxConns = c.DBMaxConns
	pc.MinConns = c.DBMinConns
	pc.StatementTimeout = c.StatementTimeout
	return pc
}
