package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/internal/domain/accounts"
)

// AccountRepo implements accounts.Repository.
type AccountRepo struct {
	store *Store
}

var _ accounts.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates the account repository.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

func (r *AccountRepo) Create(ctx context.Context, account *entity.Account) (bool, error) {
	created := false
	err := r.store.write(ctx, func(st *state) error {
		key := refKey{account.Kind, account.RefID}
		if _, exists := st.accountRefs[key]; exists {
			return nil
		}
		st.accounts[account.ID] = *account
		st.accountRefs[key] = account.ID
		created = true
		return nil
	})
	return created, err
}

func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*entity.Account, error) {
	a, ok := r.store.read(ctx).accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("account", accountID.String())
	}
	return &a, nil
}

func (r *AccountRepo) GetByRef(ctx context.Context, kind entity.AccountKind, refID string) (*entity.Account, error) {
	st := r.store.read(ctx)
	accountID, ok := st.accountRefs[refKey{kind, refID}]
	if !ok {
		return nil, apperror.NewNotFound("account", string(kind)+":"+refID)
	}
	a := st.accounts[accountID]
	return &a, nil
}

func (r *AccountRepo) SetActive(ctx context.Context, accountID id.ID, active bool) error {
	return r.update(ctx, accountID, func(a *entity.Account) { a.Active = active })
}

func (r *AccountRepo) MarkDishonored(ctx context.Context, accountID id.ID) error {
	return r.update(ctx, accountID, func(a *entity.Account) { a.HasDishonored = true })
}

func (r *AccountRepo) update(ctx context.Context, accountID id.ID, fn func(a *entity.Account)) error {
	return r.store.write(ctx, func(st *state) error {
		a, ok := st.accounts[accountID]
		if !ok {
			return apperror.NewNotFound("account", accountID.String())
		}
		fn(&a)
		st.accounts[accountID] = a
		return nil
	})
}

func (r *AccountRepo) List(ctx context.Context, filter accounts.ListFilter) (domain.ListResult[entity.Account], error) {
	search := strings.ToLower(filter.Search)

	var items []entity.Account
	for _, a := range r.store.read(ctx).accounts {
		if filter.Kind != nil && a.Kind != *filter.Kind {
			continue
		}
		if filter.ActiveOnly && !a.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Title), search) && !strings.Contains(strings.ToLower(a.Code), search) {
			continue
		}
		items = append(items, a)
	}
	slices.SortFunc(items, func(a, b entity.Account) int {
		return cmp.Compare(a.Code, b.Code)
	})

	return domain.Page(items, filter.ListFilter), nil
}
