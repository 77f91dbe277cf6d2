package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"treasury/internal/core/apperror"
)

// PostgreSQL error codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
	pgNumericOutOfRange    = "22003"
)

// PgError extracts the PostgreSQL error from err, if any.
func PgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err violates the named unique constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	pgErr, ok := PgError(err)
	if !ok || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := PgError(err)
	return ok && pgErr.Code == pgForeignKeyViolation
}

// IsNumericOutOfRange reports whether err is an integer overflow, such as a
// SUM that no longer fits bigint.
func IsNumericOutOfRange(err error) bool {
	pgErr, ok := PgError(err)
	return ok && pgErr.Code == pgNumericOutOfRange
}

// TranslateError maps transaction-level database failures to retryable
// application errors. Domain errors and unknown errors pass through.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTimeout(err)
	}

	pgErr, ok := PgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return apperror.NewSerialization(err)
	case pgQueryCanceled:
		return apperror.NewTimeout(err)
	}
	return err
}
