// Package main is the entry point for the treasury API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"treasury/internal/app"
	"treasury/internal/config"
	"treasury/internal/domain/auth"
	"treasury/internal/domain/checks"
	v1 "treasury/internal/infrastructure/http/v1"
	"treasury/internal/infrastructure/http/v1/dto"
	"treasury/internal/infrastructure/storage/memory"
	"treasury/internal/infrastructure/storage/postgres"
	"treasury/migrations"
	"treasury/pkg/logger"
)

const version = "0.1.0"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("server failed", "error", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Infow("starting treasury server", "storage", cfg.StorageDriver, "version", version)

	if err := dto.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	clearPolicy, err := checks.NewCELClearPolicy(cfg.CheckDirectClearPolicy)
	if err != nil {
		return fmt.Errorf("direct clear policy: %w", err)
	}

	routerCfg := v1.RouterConfig{
		Logger:        log,
		StorageDriver: cfg.StorageDriver,
		Version:       version,
		MoneyScale:    cfg.MoneyScale,
		Development:   cfg.IsDevelopment(),
		AuthRequired:  cfg.AuthRequired,
	}

	var repos app.Repositories
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Warn("using in-memory storage: data is lost on restart")
		repos = app.MemoryRepositories(memory.New())

	case config.DriverPostgres:
		if cfg.MigrateOnStart {
			if err := migrations.Up(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			log.Info("database migrations applied")
		}

		pool, err := postgres.NewPool(ctx, cfg.PoolConfig())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		log.Infow("database connection established", "max_conns", cfg.DBMaxConns)

		txm := postgres.NewTxManager(pool)
		txm.SetStatementTimeout(cfg.StatementTimeout)

		if repos, err = app.PostgresRepositories(pool, txm); err != nil {
			return fmt.Errorf("init repositories: %w", err)
		}
		routerCfg.Pool = pool
		routerCfg.Idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	}

	routerCfg.Services = app.NewServices(repos, app.Options{
		PostingPolicy: cfg.PostingPolicy(),
		ClearPolicy:   clearPolicy,
	})
	log.Infow("direct clear policy loaded", "expression", clearPolicy.Expression())

	if cfg.JWTSecret != "" {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
		log.Infow("bearer authentication enabled", "required", cfg.AuthRequired)
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
