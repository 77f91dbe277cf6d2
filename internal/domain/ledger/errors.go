package ledger

import (
	"net/http"

	"treasury/internal/core/apperror"
)

// Sentinel errors. Clone before attaching details.
var (
	ErrEmptyDocument = apperror.New(apperror.CodeEmptyDocument, http.StatusBadRequest,
		"document must contain at least one entry")

	ErrInvalidEntry = apperror.New(apperror.CodeInvalidEntry, http.StatusBadRequest,
		"entry must have exactly one of debit or credit set")

	ErrUnbalancedDocument = apperror.New(apperror.CodeUnbalanced, http.StatusBadRequest,
		"sum of debits does not equal sum of credits")

	ErrAlreadyReversed = apperror.New(apperror.CodeAlreadyReversed, http.StatusConflict,
		"document has already been reversed")

	ErrBalanceOverflow = apperror.New(apperror.CodeBalanceOverflow, http.StatusUnprocessableEntity,
		"account totals exceed the representable range")
)
