// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeEmptyDocument     = "EMPTY_DOCUMENT"
	CodeInvalidEntry      = "INVALID_ENTRY"
	CodeUnbalanced        = "UNBALANCED_DOCUMENT"
	CodeNoLines           = "NO_LINES"
	CodeUnresolvedAccount = "UNRESOLVED_ACCOUNT"
	CodeMissingTarget     = "MISSING_TARGET"
	CodeInvalidTarget     = "INVALID_TARGET"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeIllegalTransition      = "ILLEGAL_TRANSITION"
	CodeSerialOutOfRange       = "SERIAL_OUT_OF_RANGE"
	CodeCheckbookInactive      = "CHECKBOOK_INACTIVE"
	CodeAlreadyReversed        = "DOCUMENT_ALREADY_REVERSED"
	CodePeriodClosed           = "PERIOD_CLOSED"
	CodeBalanceOverflow        = "BALANCE_OVERFLOW"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeDuplicate         = "DUPLICATE_ENTRY"
	CodeIdempotency       = "IDEMPOTENCY_CONFLICT"
	CodeSerialAlreadyUsed = "SERIAL_ALREADY_USED"
	CodeSerialization     = "SERIALIZATION_FAILURE"
)

// retryableCodes are conflicts a caller may resolve by re-reading state and retrying.
var retryableCodes = map[string]bool{
	CodeConcurrentModification: true,
	CodeSerialAlreadyUsed:      true,
	CodeSerialization:          true,
	CodeTimeout:                true,
}

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, amounts, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
// Package-level sentinels therefore match their enriched copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Clone returns a copy that can be enriched without touching the original.
// Sentinels must be cloned before WithDetail/WithCause.
func (e *AppError) Clone() *AppError {
	c := *e
	c.Details = maps.Clone(e.Details)
	return &c
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// Retryable reports whether the caller may re-fetch state and retry.
func (e *AppError) Retryable() bool {
	return retryableCodes[e.Code]
}

// --- Factory functions for common errors ---

// New creates an error with explicit code and status.
func New(code string, status int, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewSerialization wraps a store serialization failure or deadlock.
func NewSerialization(err error) *AppError {
	return &AppError{
		Code:       CodeSerialization,
		Message:    "Transaction conflicted with a concurrent one. Please retry.",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewTimeout wraps a statement or transaction timeout.
func NewTimeout(err error) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    "Operation timed out",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewPeriodClosed creates error when trying to post into a closed period
func NewPeriodClosed(period string) *AppError {
	return &AppError{
		Code:       CodePeriodClosed,
		Message:    fmt.Sprintf("Period %s is closed for modifications", period),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"period": period},
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsRetryable reports whether err is a lost race or transient store failure.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable()
	}
	return false
}
