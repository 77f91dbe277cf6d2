package ledger

import (
	"context"
	"time"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
	"treasury/internal/domain"
)

// Repository defines persistence for ledger documents and entries.
type Repository interface {
	// CreateDocument inserts the document header
	CreateDocument(ctx context.Context, doc *entity.Document) error

	// CreateEntries batch inserts the entries of one document
	CreateEntries(ctx context.Context, entries []entity.Entry) error

	// GetDocument retrieves the document header
	GetDocument(ctx context.Context, docID id.ID) (*entity.Document, error)

	// GetEntries retrieves document entries ordered by line number
	GetEntries(ctx context.Context, docID id.ID) ([]entity.Entry, error)

	// FindReversal returns the document reversing docID, or NotFound
	FindReversal(ctx context.Context, docID id.ID) (*entity.Document, error)

	// ListDocuments retrieves document headers
	ListDocuments(ctx context.Context, filter DocumentFilter) (domain.ListResult[entity.Document], error)

	// StreamAccountEntries calls fn for every entry of accountID inside period,
	// ordered by (document date, document id, entry id).
	// Iteration stops at the first error returned by fn.
	StreamAccountEntries(ctx context.Context, accountID id.ID, period Period, fn func(entity.PostedEntry) error) error

	// AccountTotals sums entries of accountID dated strictly before `before`,
	// or all entries when before is nil.
	AccountTotals(ctx context.Context, accountID id.ID, before *time.Time) (Totals, error)
}

// Period is an inclusive range of document dates. Nil bounds are open.
type Period struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	if p.From != nil && date.Before(*p.From) {
		return false
	}
	if p.To != nil && date.After(*p.To) {
		return false
	}
	return true
}

// Totals is a debit/credit aggregate.
type Totals struct {
	Debit  types.MinorUnits `db:"total_debit" json:"totalDebit"`
	Credit types.MinorUnits `db:"total_credit" json:"totalCredit"`
}

// Accumulate adds one leg to t. It reports false, leaving t unchanged, when a total overflows.
func (t *Totals) Accumulate(debit, credit types.MinorUnits) bool {
	d, ok := t.Debit.Add(debit)
	if !ok {
		return false
	}
	c, ok := t.Credit.Add(credit)
	if !ok {
		return false
	}
	t.Debit, t.Credit = d, c
	return true
}

// Balance returns debit minus credit. Positive means the account is a debtor.
func (t Totals) Balance() types.MinorUnits {
	return t.Debit - t.Credit
}

// DocumentFilter narrows document lists.
type DocumentFilter struct {
	domain.ListFilter

	Kind   *entity.DocumentKind
	Period Period
}
