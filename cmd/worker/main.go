// Package main is the entry point for the treasury background worker:
// it relays outbox events and purges expired idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"treasury/internal/config"
	appctx "treasury/internal/core/context"
	"treasury/internal/infrastructure/storage/postgres"
	"treasury/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatalw("worker requires the postgres storage driver", "storage", cfg.StorageDriver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting treasury worker")

	pool, err := postgres.NewPool(ctx, cfg.PoolConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	txm.SetStatementTimeout(cfg.StatementTimeout)

	w := &Worker{
		relay:       postgres.NewOutboxRelay(pool.Pool, cfg.OutboxBatchSize, postgres.LogHandler),
		idempotency: postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL),
		pool:        pool,
		log:         log.WithComponent("worker"),
	}

	if err := w.Run(ctx, cfg.OutboxPollInterval, cfg.CleanupInterval); err != nil {
		log.Fatalw("worker failed", "error", err)
	}
	log.Info("worker stopped")
}

// Worker runs the periodic background jobs.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	pool        *postgres.Pool
	log         *logger.Logger
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, pollInterval, cleanupInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		every(ctx, pollInterval, w.processOutbox)
		return nil
	})
	g.Go(func() error {
		every(ctx, cleanupInterval, w.cleanup)
		return nil
	})
	return g.Wait()
}

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(appctx.WithTrace(ctx, appctx.NewTraceContext()))
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	// Drain: keep going while full batches come back.
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("processed outbox batch", "count", n)
		}
		if n == 0 || n < w.relay.BatchSize() {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move dead outbox messages", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved outbox messages to DLQ", "count", moved)
	}

	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}

	w.pool.LogStats(ctx)
}
