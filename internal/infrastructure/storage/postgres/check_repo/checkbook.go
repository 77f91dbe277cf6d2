package check_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/infrastructure/storage/postgres"
)

const checkbooksTable = "checkbooks"

var checkbookTable = postgres.NewTable[entity.Checkbook](checkbooksTable)

// CheckbookRepo implements checkbooks.Repository.
// Serial usage is read from the checks table, so it can never drift from issued checks.
type CheckbookRepo struct {
	txm *postgres.TxManager
}

var _ checkbooks.Repository = (*CheckbookRepo)(nil)

// NewCheckbookRepo creates a new checkbook repository.
func NewCheckbookRepo(txm *postgres.TxManager) *CheckbookRepo {
	return &CheckbookRepo{txm: txm}
}

func (r *CheckbookRepo) Create(ctx context.Context, cb *entity.Checkbook) error {
	err := postgres.InsertRow(ctx, r.txm.GetQuerier(ctx), checkbookTable, cb)
	if postgres.IsForeignKeyViolation(err) {
		return apperror.NewNotFound("account", cb.BankAccountID.String())
	}
	return err
}

func (r *CheckbookRepo) GetByID(ctx context.Context, checkbookID id.ID) (*entity.Checkbook, error) {
	q := checkbookTable.Select().
		Where(squirrel.Eq{"id": checkbookID})

	var cb entity.Checkbook
	if err := postgres.GetOne(ctx, r.txm.GetQuerier(ctx), &cb, q, "checkbook", checkbookID.String()); err != nil {
		return nil, err
	}
	return &cb, nil
}

func (r *CheckbookRepo) List(ctx context.Context, bankAccountID *id.ID) ([]entity.Checkbook, error) {
	q := checkbookTable.Select().
		OrderBy("id")
	if bankAccountID != nil {
		q = q.Where(squirrel.Eq{"bank_account_id": *bankAccountID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []entity.Checkbook{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list checkbooks: %w", err)
	}
	return items, nil
}

func (r *CheckbookRepo) SetStatus(ctx context.Context, checkbookID id.ID, status entity.CheckbookStatus) error {
	sql, args, err := postgres.Builder().
		Update(checkbooksTable).
		Set("status", status).
		Where(squirrel.Eq{"id": checkbookID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update checkbook status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("checkbook", checkbookID.String())
	}
	return nil
}

func (r *CheckbookRepo) UsedSerials(ctx context.Context, checkbookID id.ID) ([]int64, error) {
	const sql = `SELECT serial_no FROM checks WHERE checkbook_id = $1 ORDER BY serial_no`

	var used []int64
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &used, sql, checkbookID); err != nil {
		return nil, fmt.Errorf("used serials: %w", err)
	}
	return used, nil
}

func (r *CheckbookRepo) IsSerialUsed(ctx context.Context, checkbookID id.ID, serial int64) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM checks WHERE checkbook_id = $1 AND serial_no = $2)`

	var used bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, checkbookID, serial).Scan(&used); err != nil {
		return false, fmt.Errorf("check serial usage: %w", err)
	}
	return used, nil
}
