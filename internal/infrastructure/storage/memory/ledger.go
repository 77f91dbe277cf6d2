package memory

import (
	"bytes"
	"context"
	"slices"
	"time"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	store *Store
}

var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates the ledger repository.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

func (r *LedgerRepo) CreateDocument(ctx context.Context, doc *entity.Document) error {
	return r.store.write(ctx, func(st *state) error {
		if doc.ReversalOf != nil {
			if _, taken := st.reversals[*doc.ReversalOf]; taken {
				return ledger.ErrAlreadyReversed.Clone().WithDetail("document_id", doc.ReversalOf.String())
			}
			st.reversals[*doc.ReversalOf] = doc.ID
		}
		header := *doc
		header.Entries = nil
		st.documents[doc.ID] = header
		return nil
	})
}

func (r *LedgerRepo) CreateEntries(ctx context.Context, entries []entity.Entry) error {
	return r.store.write(ctx, func(st *state) error {
		for _, e := range entries {
			if _, ok := st.documents[e.DocumentID]; !ok {
				return apperror.NewNotFound("document", e.DocumentID.String())
			}
			if _, ok := st.accounts[e.AccountID]; !ok {
				return apperror.NewNotFound("account", e.AccountID.String())
			}
		}
		st.entries = append(st.entries, entries...)
		return nil
	})
}

func (r *LedgerRepo) GetDocument(ctx context.Context, docID id.ID) (*entity.Document, error) {
	doc, ok := r.store.read(ctx).documents[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	return &doc, nil
}

func (r *LedgerRepo) GetEntries(ctx context.Context, docID id.ID) ([]entity.Entry, error) {
	var entries []entity.Entry
	for _, e := range r.store.read(ctx).entries {
		if e.DocumentID == docID {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b entity.Entry) int { return a.LineNo - b.LineNo })
	return entries, nil
}

func (r *LedgerRepo) FindReversal(ctx context.Context, docID id.ID) (*entity.Document, error) {
	st := r.store.read(ctx)
	revID, ok := st.reversals[docID]
	if !ok {
		return nil, apperror.NewNotFound("reversal", docID.String())
	}
	doc := st.documents[revID]
	return &doc, nil
}

func (r *LedgerRepo) ListDocuments(ctx context.Context, filter ledger.DocumentFilter) (domain.ListResult[entity.Document], error) {
	var items []entity.Document
	for _, d := range r.store.read(ctx).documents {
		if filter.Kind != nil && d.Kind != *filter.Kind {
			continue
		}
		if !filter.Period.Contains(d.Date) {
			continue
		}
		items = append(items, d)
	}
	slices.SortFunc(items, func(a, b entity.Document) int {
		return compareDocs(b, a)
	})
	return domain.Page(items, filter.ListFilter), nil
}

func (r *LedgerRepo) StreamAccountEntries(ctx context.Context, accountID id.ID, period ledger.Period, fn func(entity.PostedEntry) error) error {
	st := r.store.read(ctx)

	var posted []entity.PostedEntry
	for _, e := range st.entries {
		if e.AccountID != accountID {
			continue
		}
		doc := st.documents[e.DocumentID]
		if !period.Contains(doc.Date) {
			continue
		}
		posted = append(posted, entity.PostedEntry{Entry: e, DocumentDate: doc.Date, DocumentNumber: doc.Number})
	}

	slices.SortFunc(posted, func(a, b entity.PostedEntry) int {
		if c := a.DocumentDate.Compare(b.DocumentDate); c != 0 {
			return c
		}
		if c := bytes.Compare(a.DocumentID[:], b.DocumentID[:]); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	for _, pe := range posted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(pe); err != nil {
			return err
		}
	}
	return nil
}

func (r *LedgerRepo) AccountTotals(ctx context.Context, accountID id.ID, before *time.Time) (ledger.Totals, error) {
	st := r.store.read(ctx)

	var totals ledger.Totals
	for _, e := range st.entries {
		if e.AccountID != accountID {
			continue
		}
		if before != nil && !st.documents[e.DocumentID].Date.Before(*before) {
			continue
		}
		if !totals.Accumulate(e.Debit, e.Credit) {
			return ledger.Totals{}, ledger.ErrBalanceOverflow.Clone().WithDetail("account_id", accountID.String())
		}
	}
	return totals, nil
}

// compareDocs orders documents by (date, id).
func compareDocs(a, b entity.Document) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
