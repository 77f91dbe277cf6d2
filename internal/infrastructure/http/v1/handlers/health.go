package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pool    *postgres.Pool
	driver  string
	version string
}

// NewHealthHandler creates a new health handler. pool is nil for the in-memory store.
func NewHealthHandler(pool *postgres.Pool, driver, version string) *HealthHandler {
	return &HealthHandler{pool: pool, driver: driver, version: version}
}

// Live reports whether the process is alive.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready reports whether the service can accept traffic.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.pool == nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"checks": map[string]string{"storage": h.driver},
		})
		return
	}

	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	info := gin.H{
		"app":     "treasury",
		"version": h.version,
		"storage": h.driver,
	}
	if h.pool != nil {
		info["database"] = h.pool.Stats()
	}
	c.JSON(http.StatusOK, info)
}
