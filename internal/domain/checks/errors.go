package checks

import (
	"net/http"

	"treasury/internal/core/apperror"
)

// Sentinel errors. Clone before attaching details.
var (
	ErrIllegalTransition = apperror.New(apperror.CodeIllegalTransition, http.StatusUnprocessableEntity,
		"operation is not allowed from the current check status")

	ErrMissingTarget = apperror.New(apperror.CodeMissingTarget, http.StatusBadRequest,
		"operation requires a target account")

	ErrInvalidTarget = apperror.New(apperror.CodeInvalidTarget, http.StatusBadRequest,
		"target account is not valid for this operation")

	// ErrStaleStatus is returned when another operator changed the check first.
	ErrStaleStatus = apperror.New(apperror.CodeConcurrentModification, http.StatusConflict,
		"check status was changed by another operation, refresh and retry")
)
