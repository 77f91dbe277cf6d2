package ledger

import (
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
)

// ValidateEntries checks the double-entry invariants and returns the
// document total (sum of debits). Nothing is adjusted to force balance.
func ValidateEntries(entries []entity.Entry) (types.MinorUnits, error) {
	if len(entries) == 0 {
		return 0, ErrEmptyDocument
	}

	var debit, credit types.MinorUnits
	for i, e := range entries {
		line := i + 1
		if id.IsNil(e.AccountID) {
			return 0, ErrInvalidEntry.Clone().
				WithDetail("line", line).
				WithDetail("reason", "account is required")
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return 0, ErrInvalidEntry.Clone().
				WithDetail("line", line).
				WithDetail("reason", "amounts must not be negative")
		}
		if e.Debit.IsPositive() == e.Credit.IsPositive() {
			return 0, ErrInvalidEntry.Clone().
				WithDetail("line", line).
				WithDetail("debit", e.Debit).
				WithDetail("credit", e.Credit)
		}

		var ok bool
		if debit, ok = debit.Add(e.Debit); !ok {
			return 0, ErrInvalidEntry.Clone().WithDetail("line", line).WithDetail("reason", "debit total overflows")
		}
		if credit, ok = credit.Add(e.Credit); !ok {
			return 0, ErrInvalidEntry.Clone().WithDetail("line", line).WithDetail("reason", "credit total overflows")
		}
	}

	if debit != credit {
		return 0, ErrUnbalancedDocument.Clone().
			WithDetail("debit", debit).
			WithDetail("credit", credit)
	}

	return debit, nil
}
