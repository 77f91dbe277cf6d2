// Package account_repo provides the PostgreSQL account repository.
package account_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/internal/domain/accounts"
	"treasury/internal/infrastructure/storage/postgres"
)

const accountsTable = "accounts"

var accountTable = postgres.NewTable[entity.Account](accountsTable)

// AccountRepo implements accounts.Repository.
type AccountRepo struct {
	txm *postgres.TxManager
}

var _ accounts.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{txm: txm}
}

// Create inserts the account; a concurrent insert for the same (kind, ref_id) wins.
func (r *AccountRepo) Create(ctx context.Context, account *entity.Account) (bool, error) {
	sql, args, err := accountTable.InsertOne(account).
		Suffix("ON CONFLICT (kind, ref_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err, "uq_accounts_code") {
			return false, apperror.NewDuplicate("account", "code", account.Code)
		}
		return false, fmt.Errorf("insert account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*entity.Account, error) {
	q := r.selectQuery().Where(squirrel.Eq{"id": accountID})

	var a entity.Account
	if err := postgres.GetOne(ctx, r.txm.GetQuerier(ctx), &a, q, "account", accountID.String()); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByRef(ctx context.Context, kind entity.AccountKind, refID string) (*entity.Account, error) {
	q := r.selectQuery().Where(squirrel.Eq{"kind": kind, "ref_id": refID})

	var a entity.Account
	if err := postgres.GetOne(ctx, r.txm.GetQuerier(ctx), &a, q, "account", string(kind)+":"+refID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) SetActive(ctx context.Context, accountID id.ID, active bool) error {
	return r.update(ctx, accountID, map[string]any{"active": active})
}

func (r *AccountRepo) MarkDishonored(ctx context.Context, accountID id.ID) error {
	return r.update(ctx, accountID, map[string]any{"has_dishonored": true})
}

func (r *AccountRepo) update(ctx context.Context, accountID id.ID, set map[string]any) error {
	sql, args, err := postgres.Builder().
		Update(accountsTable).
		SetMap(set).
		Where(squirrel.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context, filter accounts.ListFilter) (domain.ListResult[entity.Account], error) {
	orderBy, err := postgres.ParseOrderBy(filter.OrderBy, "code ASC, id ASC", "code", "title", "kind", "created_at")
	if err != nil {
		return domain.ListResult[entity.Account]{}, err
	}

	q := r.selectQuery()
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"code": pattern},
		})
	}

	return postgres.SelectPage[entity.Account](ctx, r.txm.GetQuerier(ctx), q, filter.ListFilter, orderBy)
}

func (r *AccountRepo) selectQuery() squirrel.SelectBuilder {
	return accountTable.Select()
}
