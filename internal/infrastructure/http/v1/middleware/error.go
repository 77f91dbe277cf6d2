package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/core/apperror"
	appctx "treasury/internal/core/context"
	"treasury/internal/infrastructure/http/v1/dto"
	"treasury/internal/infrastructure/http/v1/handlers"
	"treasury/internal/infrastructure/storage/postgres"
	"treasury/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
// Retryable failures (lost races, serialization failures, timeouts) are
// reported as 409 so clients re-read state and retry.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()

		status, body := http.StatusInternalServerError, dto.ErrorResponse{
			Code:    apperror.CodeInternal,
			Message: "Internal server error",
			Details: map[string]any{"request_id": appctx.GetRequestID(ctx)},
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(ctx, "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			status = appErr.HTTPStatus
			body = dto.ErrorResponse{
				Code:      appErr.Code,
				Message:   appErr.Message,
				Details:   appErr.Details,
				Retryable: appErr.Retryable(),
			}
			if body.Retryable {
				status = http.StatusConflict
				logger.Warn(ctx, "retryable conflict", "code", appErr.Code, "details", appErr.Details)
			}
		} else {
			logger.Error(ctx, "unhandled error", "error", err)
		}

		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

// failIdempotency records the exact error response for replay (best-effort).
// Keys of retryable failures are released instead so a retry runs again.
func failIdempotency(c *gin.Context, status int, body dto.ErrorResponse) {
	key, ok := c.Get(handlers.IdempotencyKeyCtx)
	if !ok {
		return
	}
	store, ok := c.Get(handlers.IdempotencyStoreCtx)
	if !ok {
		return
	}
	s, ok := store.(*postgres.IdempotencyStore)
	if !ok || s == nil {
		return
	}
	ctx := c.Request.Context()
	if body.Retryable {
		if err := s.ReleaseKey(ctx, key.(string)); err != nil {
			logger.Warn(ctx, "failed to release idempotency key", "key", key, "error", err)
		}
		return
	}
	if err := s.FailKey(ctx, key.(string), status, "application/json", body); err != nil {
		logger.Warn(ctx, "failed to mark idempotency key failed", "key", key, "error", err)
	}
}
