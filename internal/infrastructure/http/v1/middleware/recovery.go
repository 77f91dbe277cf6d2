// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"treasury/internal/core/apperror"
	appctx "treasury/internal/core/context"
	"treasury/pkg/logger"
)

// Recovery middleware recovers from panics and returns 500 error.
// Logs stack trace but never exposes internal details to client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				ctx := c.Request.Context()
				logger.Error(ctx, "panic recovered",
					"error", rec,
					"method", c.Request.Method,
					"route", c.FullPath(),
					"stack", string(debug.Stack()),
				)

				_ = c.Error(
					apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
						WithDetail("request_id", appctx.GetRequestID(ctx)),
				)
				c.Abort()
			}
		}()
		c.Next()
	}
}
