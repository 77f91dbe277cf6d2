// Package main applies or rolls back the treasury schema migrations.
//
// Usage:
//
//	migrate up          apply all pending migrations
//	migrate down [n]    roll back n migrations (default 1)
//	migrate version     print the current schema version
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"treasury/internal/config"
	"treasury/migrations"
	"treasury/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.IsDevelopment()})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL == "" {
		log.Fatalw("TREASURY_DATABASE_URL is required")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	m, err := migrations.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("failed to open migrations", "error", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			log.Warnw("failed to close migrator", "error", err)
		}
	}()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps < 1 {
				log.Fatalw("invalid step count", "value", os.Args[2])
			}
		}
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			log.Info("no migrations applied")
			return
		}
		if verr != nil {
			log.Fatalw("failed to read version", "error", verr)
		}
		log.Infow("schema version", "version", version, "dirty", dirty)
		return
	default:
		log.Fatalw("unknown command", "command", cmd)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no change")
		return
	}
	if err != nil {
		log.Fatalw("migration failed", "command", cmd, "error", err)
	}
	log.Infow("migration complete", "command", cmd)
}
