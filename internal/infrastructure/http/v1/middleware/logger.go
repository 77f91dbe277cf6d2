package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"treasury/pkg/logger"
)

// Logger middleware logs HTTP requests with timing and status.
// Server errors are logged at error level, client errors at warn.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Errorw("http request", fields...)
		case status >= 400:
			l.Warnw("http request", fields...)
		default:
			l.Infow("http request", fields...)
		}
	}
}
