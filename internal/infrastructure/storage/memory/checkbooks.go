package memory

import (
	"bytes"
	"context"
	"slices"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain/checkbooks"
)

// CheckbookRepo implements checkbooks.Repository.
type CheckbookRepo struct {
	store *Store
}

var _ checkbooks.Repository = (*CheckbookRepo)(nil)

// NewCheckbookRepo creates the checkbook repository.
func NewCheckbookRepo(store *Store) *CheckbookRepo {
	return &CheckbookRepo{store: store}
}

func (r *CheckbookRepo) Create(ctx context.Context, cb *entity.Checkbook) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.accounts[cb.BankAccountID]; !ok {
			return apperror.NewNotFound("account", cb.BankAccountID.String())
		}
		st.checkbooks[cb.ID] = *cb
		return nil
	})
}

func (r *CheckbookRepo) GetByID(ctx context.Context, checkbookID id.ID) (*entity.Checkbook, error) {
	cb, ok := r.store.read(ctx).checkbooks[checkbookID]
	if !ok {
		return nil, apperror.NewNotFound("checkbook", checkbookID.String())
	}
	return &cb, nil
}

func (r *CheckbookRepo) List(ctx context.Context, bankAccountID *id.ID) ([]entity.Checkbook, error) {
	items := []entity.Checkbook{}
	for _, cb := range r.store.read(ctx).checkbooks {
		if bankAccountID == nil || cb.BankAccountID == *bankAccountID {
			items = append(items, cb)
		}
	}
	slices.SortFunc(items, func(a, b entity.Checkbook) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return items, nil
}

func (r *CheckbookRepo) SetStatus(ctx context.Context, checkbookID id.ID, status entity.CheckbookStatus) error {
	return r.store.write(ctx, func(st *state) error {
		cb, ok := st.checkbooks[checkbookID]
		if !ok {
			return apperror.NewNotFound("checkbook", checkbookID.String())
		}
		cb.Status = status
		st.checkbooks[checkbookID] = cb
		return nil
	})
}

func (r *CheckbookRepo) UsedSerials(ctx context.Context, checkbookID id.ID) ([]int64, error) {
	var used []int64
	for key := range r.store.read(ctx).serials {
		if key.checkbook == checkbookID {
			used = append(used, key.serial)
		}
	}
	slices.Sort(used)
	return used, nil
}

func (r *CheckbookRepo) IsSerialUsed(ctx context.Context, checkbookID id.ID, serial int64) (bool, error) {
	_, used := r.store.read(ctx).serials[serialKey{checkbookID, serial}]
	return used, nil
}
