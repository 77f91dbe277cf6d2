package checkbooks

import (
	"net/http"

	"treasury/internal/core/apperror"
)

// Sentinel errors. Clone before attaching details.
var (
	ErrSerialOutOfRange = apperror.New(apperror.CodeSerialOutOfRange, http.StatusUnprocessableEntity,
		"serial is outside the checkbook range")

	// ErrSerialAlreadyUsed is retryable: the caller should pick another serial.
	ErrSerialAlreadyUsed = apperror.New(apperror.CodeSerialAlreadyUsed, http.StatusConflict,
		"serial has already been issued")

	ErrCheckbookInactive = apperror.New(apperror.CodeCheckbookInactive, http.StatusUnprocessableEntity,
		"checkbook is not active")
)
