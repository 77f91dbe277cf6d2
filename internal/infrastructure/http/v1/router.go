// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/app"
	"treasury/internal/infrastructure/http/v1/handlers"
	"treasury/internal/infrastructure/http/v1/middleware"
	"treasury/internal/infrastructure/storage/postgres"
	"treasury/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator enables bearer authentication. Nil leaves every request anonymous.
	JWTValidator middleware.JWTValidator
	// AuthRequired rejects requests without a valid token (needs JWTValidator).
	AuthRequired bool

	// Idempotency enables X-Idempotency-Key handling for mutating routes.
	Idempotency *postgres.IdempotencyStore

	// Pool is used by readiness checks; nil for the in-memory store.
	Pool          *postgres.Pool
	StorageDriver string
	Version       string

	// MoneyScale is the number of minor digits of the ledger currency.
	MoneyScale int32

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.StorageDriver, cfg.Version)
	router.GET("/health", healthHandler.Ready)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		if cfg.AuthRequired {
			v1.Use(middleware.Auth(cfg.JWTValidator))
		} else {
			v1.Use(middleware.OptionalAuth(cfg.JWTValidator))
		}
	}

	base := handlers.NewBaseHandler(cfg.MoneyScale)
	var idempotent []gin.HandlerFunc
	if cfg.Idempotency != nil {
		idempotent = append(idempotent, middleware.Idempotency(cfg.Idempotency))
	}

	registerTransactionRoutes(v1, base, cfg.Services, idempotent)
	registerDocumentRoutes(v1, base, cfg.Services, idempotent)
	registerAccountRoutes(v1, base, cfg.Services)
	registerCheckRoutes(v1, base, cfg.Services, idempotent)
	registerCheckbookRoutes(v1, base, cfg.Services)

	return router
}
