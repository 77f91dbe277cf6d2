// Package check_repo provides PostgreSQL repositories for checks and checkbooks.
package check_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/domain/checks"
	"treasury/internal/infrastructure/storage/postgres"
)

const (
	checksTable    = "checks"
	movementsTable = "check_movements"
)

var (
	checkTable    = postgres.NewTable[entity.Check](checksTable)
	movementTable = postgres.NewTable[entity.CheckMovement](movementsTable)
)

// CheckRepo implements checks.Repository.
type CheckRepo struct {
	txm *postgres.TxManager
}

var _ checks.Repository = (*CheckRepo)(nil)

// NewCheckRepo creates a new check repository.
func NewCheckRepo(txm *postgres.TxManager) *CheckRepo {
	return &CheckRepo{txm: txm}
}

// Create inserts a check. Serial uniqueness is enforced by uq_checks_checkbook_serial.
func (r *CheckRepo) Create(ctx context.Context, chk *entity.Check) error {
	err := postgres.InsertRow(ctx, r.txm.GetQuerier(ctx), checkTable, chk)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "uq_checks_checkbook_serial"):
		e := checkbooks.ErrSerialAlreadyUsed.Clone()
		if chk.CheckbookID != nil && chk.Serial != nil {
			e = e.WithDetail("checkbook_id", chk.CheckbookID.String()).WithDetail("serial", *chk.Serial)
		}
		return e
	case postgres.IsForeignKeyViolation(err):
		pgErr, _ := postgres.PgError(err)
		return apperror.NewNotFound("reference", pgErr.Detail)
	}
	return err
}

func (r *CheckRepo) GetByID(ctx context.Context, checkID id.ID) (*entity.Check, error) {
	return r.get(ctx, r.selectQuery().Where(squirrel.Eq{"id": checkID}), checkID)
}

func (r *CheckRepo) GetForUpdate(ctx context.Context, checkID id.ID) (*entity.Check, error) {
	return r.get(ctx, r.selectQuery().Where(squirrel.Eq{"id": checkID}).Suffix("FOR UPDATE"), checkID)
}

func (r *CheckRepo) get(ctx context.Context, q squirrel.SelectBuilder, checkID id.ID) (*entity.Check, error) {
	var chk entity.Check
	if err := postgres.GetOne(ctx, r.txm.GetQuerier(ctx), &chk, q, "check", checkID.String()); err != nil {
		return nil, err
	}
	return &chk, nil
}

// UpdateStatus is a compare-and-set on the status column.
func (r *CheckRepo) UpdateStatus(ctx context.Context, chk *entity.Check, expected entity.CheckStatus) error {
	sql, args, err := postgres.Builder().
		Update(checksTable).
		Set("status", chk.Status).
		Set("deposit_bank_id", chk.DepositBankID).
		Set("owner_account_id", chk.OwnerAccountID).
		Set("version", chk.Version).
		Set("updated_at", chk.UpdatedAt).
		Where(squirrel.Eq{"id": chk.ID, "status": expected}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update check status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var actual entity.CheckStatus
	err = querier.QueryRow(ctx, "SELECT status FROM checks WHERE id = $1", chk.ID).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound("check", chk.ID.String())
	}
	if err != nil {
		return fmt.Errorf("read check status: %w", err)
	}
	return checks.ErrStaleStatus.Clone().
		WithDetail("check_id", chk.ID.String()).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

func (r *CheckRepo) CreateMovement(ctx context.Context, m *entity.CheckMovement) error {
	return postgres.InsertRow(ctx, r.txm.GetQuerier(ctx), movementTable, m)
}

func (r *CheckRepo) ListMovements(ctx context.Context, checkID id.ID) ([]entity.CheckMovement, error) {
	sql, args, err := movementTable.Select().
		Where(squirrel.Eq{"check_id": checkID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := []entity.CheckMovement{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

func (r *CheckRepo) List(ctx context.Context, filter checks.ListFilter) (domain.ListResult[entity.Check], error) {
	orderBy, err := postgres.ParseOrderBy(filter.OrderBy, "due_date ASC, id ASC", "due_date", "amount", "status", "created_at")
	if err != nil {
		return domain.ListResult[entity.Check]{}, err
	}

	q := r.selectQuery()
	eq := squirrel.Eq{}
	if filter.Direction != nil {
		eq["direction"] = *filter.Direction
	}
	if filter.Status != nil {
		eq["status"] = *filter.Status
	}
	if filter.OwnerAccountID != nil {
		eq["owner_account_id"] = *filter.OwnerAccountID
	}
	if filter.CheckbookID != nil {
		eq["checkbook_id"] = *filter.CheckbookID
	}
	if len(eq) > 0 {
		q = q.Where(eq)
	}
	if filter.DueFrom != nil {
		q = q.Where(squirrel.GtOrEq{"due_date": *filter.DueFrom})
	}
	if filter.DueTo != nil {
		q = q.Where(squirrel.LtOrEq{"due_date": *filter.DueTo})
	}

	return postgres.SelectPage[entity.Check](ctx, r.txm.GetQuerier(ctx), q, filter.ListFilter, orderBy)
}

func (r *CheckRepo) ReferencesDocument(ctx context.Context, docID id.ID) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM checks WHERE source_document_id = $1)
		OR EXISTS (SELECT 1 FROM check_movements WHERE document_id = $1)`

	var referenced bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, docID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check document references: %w", err)
	}
	return referenced, nil
}

func (r *CheckRepo) selectQuery() squirrel.SelectBuilder {
	return checkTable.Select()
}
