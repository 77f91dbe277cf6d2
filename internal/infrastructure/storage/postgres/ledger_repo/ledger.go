// Package ledger_repo provides the PostgreSQL ledger repository.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/internal/domain/ledger"
	"treasury/internal/infrastructure/storage/postgres"
)

const (
	documentsTable = "documents"
	entriesTable   = "entries"
)

var (
	documentTable = postgres.NewTable[entity.Document](documentsTable)
	entryTable    = postgres.NewTable[entity.Entry](entriesTable)
)

// LedgerRepo implements ledger.Repository.
// Documents and entries are append-only: the repository never updates or deletes them.
type LedgerRepo struct {
	txm *postgres.TxManager
}

var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{txm: txm}
}

func (r *LedgerRepo) CreateDocument(ctx context.Context, doc *entity.Document) error {
	err := postgres.InsertRow(ctx, r.txm.GetQuerier(ctx), documentTable, doc)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "uq_documents_reversal_of") && doc.ReversalOf != nil:
		return ledger.ErrAlreadyReversed.Clone().WithDetail("document_id", doc.ReversalOf.String())
	case postgres.IsUniqueViolation(err, "uq_documents_number"):
		return apperror.NewDuplicate("document", "number", doc.Number)
	}
	return err
}

func (r *LedgerRepo) CreateEntries(ctx context.Context, entries []entity.Entry) error {
	_, err := postgres.NewBatchInserter(r.txm).InsertRows(ctx, entryTable.Name, entryTable.Columns, entryTable.Rows(entries))
	if err != nil {
		if pgErr, ok := postgres.PgError(err); ok && postgres.IsForeignKeyViolation(err) {
			missing := "document"
			if pgErr.ConstraintName == "fk_entries_account" {
				missing = "account"
			}
			return apperror.NewNotFound(missing, pgErr.Detail)
		}
		return fmt.Errorf("create entries: %w", err)
	}
	return nil
}

func (r *LedgerRepo) GetDocument(ctx context.Context, docID id.ID) (*entity.Document, error) {
	q := r.documentQuery().Where(squirrel.Eq{"id": docID})

	var doc entity.Document
	if err := postgres.GetOne(ctx, r.txm.GetQuerier(ctx), &doc, q, "document", docID.String()); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *LedgerRepo) GetEntries(ctx context.Context, docID id.ID) ([]entity.Entry, error) {
	sql, args, err := entryTable.Select().
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	entries := []entity.Entry{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepo) FindReversal(ctx context.Context, docID id.ID) (*entity.Document, error) {
	q := r.documentQuery().Where(squirrel.Eq{"reversal_of": docID})

	var doc entity.Document
	if err := postgres.GetOne(ctx, r.txm.GetQuerier(ctx), &doc, q, "reversal", docID.String()); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *LedgerRepo) ListDocuments(ctx context.Context, filter ledger.DocumentFilter) (domain.ListResult[entity.Document], error) {
	orderBy, err := postgres.ParseOrderBy(filter.OrderBy, "date DESC, id DESC", "date", "number", "kind", "total_amount")
	if err != nil {
		return domain.ListResult[entity.Document]{}, err
	}

	q := r.documentQuery()
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	q = withPeriod(q, "date", filter.Period)

	return postgres.SelectPage[entity.Document](ctx, r.txm.GetQuerier(ctx), q, filter.ListFilter, orderBy)
}

func (r *LedgerRepo) StreamAccountEntries(ctx context.Context, accountID id.ID, period ledger.Period, fn func(entity.PostedEntry) error) error {
	q := postgres.Builder().
		Select(
			"e.id", "e.document_id", "e.line_no", "e.account_id",
			"e.debit", "e.credit", "e.description",
			"d.date AS document_date", "d.number AS document_number",
		).
		From(entriesTable + " e").
		Join(documentsTable + " d ON d.id = e.document_id").
		Where(squirrel.Eq{"e.account_id": accountID}).
		OrderBy("d.date", "e.document_id", "e.id")
	q = withPeriod(q, "d.date", period)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query account entries: %w", err)
	}
	defer rows.Close()

	scanner := pgxscan.NewRowScanner(rows)
	for rows.Next() {
		var pe entity.PostedEntry
		if err := scanner.Scan(&pe); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		if err := fn(pe); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *LedgerRepo) AccountTotals(ctx context.Context, accountID id.ID, before *time.Time) (ledger.Totals, error) {
	q := postgres.Builder().
		Select(
			"COALESCE(SUM(e.debit), 0)::bigint AS total_debit",
			"COALESCE(SUM(e.credit), 0)::bigint AS total_credit",
		).
		From(entriesTable + " e").
		Where(squirrel.Eq{"e.account_id": accountID})
	if before != nil {
		q = q.Join(documentsTable + " d ON d.id = e.document_id").
			Where(squirrel.Lt{"d.date": *before})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Totals{}, fmt.Errorf("build query: %w", err)
	}

	var totals ledger.Totals
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &totals, sql, args...); err != nil {
		if postgres.IsNumericOutOfRange(err) {
			return ledger.Totals{}, ledger.ErrBalanceOverflow.Clone().WithDetail("account_id", accountID.String())
		}
		return ledger.Totals{}, fmt.Errorf("account totals: %w", err)
	}
	return totals, nil
}

func (r *LedgerRepo) documentQuery() squirrel.SelectBuilder {
	return documentTable.Select()
}

func withPeriod(q squirrel.SelectBuilder, column string, p ledger.Period) squirrel.SelectBuilder {
	if p.From != nil {
		q = q.Where(squirrel.GtOrEq{column: *p.From})
	}
	if p.To != nil {
		q = q.Where(squirrel.LtOrEq{column: *p.To})
	}
	return q
}
