// Package numerator provides the PostgreSQL implementation of document and
// account-code numbering. It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "treasury/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc returns the querier bound to ctx (the open transaction, if any).
type QuerierFunc func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service provides numbering backed by the sys_sequences table.
//
// Strict numbers are drawn through the caller's transaction, so a rolled
// back document gives its number back and document numbers stay gapless.
// Cached ranges are reserved on the pool, outside any business transaction,
// because a range must survive the rollback of the request that reserved it.
type Service struct {
	pool Querier
	tx   QuerierFunc

	// cacheMu protects ranges map
	cacheMu sync.Mutex
	// ranges stores active ranges for each key
	ranges map[string]*cachedRange
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service. tx may be nil, in which case every
// number is drawn from pool.
func New(pool Querier, tx QuerierFunc) *Service {
	if tx == nil {
		tx = func(context.Context) Querier { return pool }
	}
	return &Service{
		pool:   pool,
		tx:     tx,
		ranges: make(map[string]*cachedRange),
	}
}

// GetNextNumber generates the next number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., RCV-2026-00001)
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := corenumerator.Key(cfg, period)
	var num int64
	var err error

	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, key, opts)
	case corenumerator.StrategyStrict:
		fallthrough
	default:
		num, err = s.getNextStrict(ctx, key)
	}

	if err != nil {
		return "", err
	}

	return corenumerator.Format(cfg, period, num), nil
}

// getNextStrict fetches the next number directly from DB using UPSERT + RETURNING.
// The row stays locked until the surrounding transaction ends.
func (s *Service) getNextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.tx(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// getNextCached fetches next number from memory, refilling from DB if needed.
func (s *Service) getNextCached(ctx context.Context, key string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[key]
	if !exists {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	// allocate new range if needed
	if rng.current >= rng.max {
		increment := opts.RangeSize
		if increment <= 0 {
			increment = 50
		}

		var newMax int64
		err := s.pool.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, increment).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		// Range is (newMax - increment, newMax].
		rng.current = newMax - increment
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber sets the sequence value (for data migration).
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := corenumerator.Key(cfg, period)

	var result int64
	err := s.tx(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()

	if err != nil {
		return fmt.Errorf("set next number: %w", err)
	}
	return nil
}
