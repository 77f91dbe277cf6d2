// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"treasury/pkg/logger"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN               string
	ApplicationName   string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// StatementTimeout is the session default for statements run outside a
	// transaction (ledger reads, outbox polling). Zero keeps the server default.
	StatementTimeout time.Duration
}

// DefaultPoolConfig returns defaults for the treasury service.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		ApplicationName:   "treasury",
		MaxConns:          25,
		MinConns:          5,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		StatementTimeout:  30 * time.Second,
	}
}

// runtimeParams are the session settings sent in the startup packet of every connection.
// Ledger dates are calendar dates, so sessions run in UTC.
func (c PoolConfig) runtimeParams() map[string]string {
	params := map[string]string{"TimeZone": "UTC"}
	if c.ApplicationName != "" {
		params["application_name"] = c.ApplicationName
	}
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}
	return params
}

// Pool is the shared connection pool of the treasury store.
type Pool struct {
	*pgxpool.Pool
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// NewPool connects and verifies the pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	for k, v := range cfg.runtimeParams() {
		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	TotalConns         int32         `json:"total_conns"`
	AcquiredConns      int32         `json:"acquired_conns"`
	IdleConns          int32         `json:"idle_conns"`
	MaxConns           int32         `json:"max_conns"`
	EmptyAcquireCount  int64         `json:"empty_acquire_count"`
	AcquireDurationAvg time.Duration `json:"acquire_duration_avg"`
}

// Stats returns current pool usage.
func (p *Pool) Stats() PoolStats {
	stat := p.Stat()
	stats := PoolStats{
		TotalConns:        stat.TotalConns(),
		AcquiredConns:     stat.AcquiredConns(),
		IdleConns:         stat.IdleConns(),
		MaxConns:          stat.MaxConns(),
		EmptyAcquireCount: stat.EmptyAcquireCount(),
	}
	if n := stat.AcquireCount(); n > 0 {
		stats.AcquireDurationAvg = stat.AcquireDuration() / time.Duration(n)
	}
	return stats
}

// LogStats logs pool usage; a saturated pool is logged at warn.
func (p *Pool) LogStats(ctx context.Context) {
	stats := p.Stats()
	kv := []any{
		"total", stats.TotalConns,
		"acquired", stats.AcquiredConns,
		"idle", stats.IdleConns,
		"max", stats.MaxConns,
		"empty_acquires", stats.EmptyAcquireCount,
		"acquire_avg", stats.AcquireDurationAvg,
	}
	if stats.MaxConns > 0 && stats.AcquiredConns == stats.MaxConns {
		logger.Warn(ctx, "database pool saturated", kv...)
		return
	}
	logger.Info(ctx, "database pool stats", kv...)
}
