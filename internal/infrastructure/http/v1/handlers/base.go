// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/core/apperror"
	"treasury/internal/core/id"
	"treasury/internal/infrastructure/http/v1/dto"
	"treasury/internal/infrastructure/storage/postgres"
	"treasury/pkg/logger"
)

// Context keys set by middleware.Idempotency.
const (
	IdempotencyKeyCtx   = "idempotency_key"
	IdempotencyStoreCtx = "idempotency_store"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	money dto.Money
}

// NewBaseHandler creates a new base handler. scale is the number of minor
// digits of the ledger currency.
func NewBaseHandler(scale int32) *BaseHandler {
	return &BaseHandler{money: dto.Money{Scale: scale}}
}

// Money returns the amount converter.
func (h *BaseHandler) Money() dto.Money {
	return h.money
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	parsed, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return id.Nil(), false
	}
	return parsed, true
}

// Error registers err on the Gin context and aborts the request.
// The JSON body is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// CompleteIdempotency stores the response under the request's idempotency key
// so a retry replays the same status, content type and body.
func (h *BaseHandler) CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, ok := c.Get(IdempotencyKeyCtx)
	if !ok {
		return
	}
	store, ok := c.Get(IdempotencyStoreCtx)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := store.(*postgres.IdempotencyStore).CompleteKey(ctx, key.(string), statusCode, contentType, response); err != nil {
		logger.Warn(ctx, "failed to complete idempotency key", "key", key, "error", err)
	}
}

// Created sends a 201 response with body.
func (h *BaseHandler) Created(c *gin.Context, body any) {
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", body)
	c.JSON(http.StatusCreated, body)
}

// OK sends a 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	h.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	response := dto.SuccessResponse{Success: true, Message: message}
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}
