package memory

import (
	"bytes"
	"context"
	"slices"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/domain/checks"
)

// CheckRepo implements checks.Repository.
type CheckRepo struct {
	store *Store
}

var _ checks.Repository = (*CheckRepo)(nil)

// NewCheckRepo creates the check repository.
func NewCheckRepo(store *Store) *CheckRepo {
	return &CheckRepo{store: store}
}

func (r *CheckRepo) Create(ctx context.Context, chk *entity.Check) error {
	return r.store.write(ctx, func(st *state) error {
		if chk.CheckbookID != nil && chk.Serial != nil {
			key := serialKey{*chk.CheckbookID, *chk.Serial}
			if _, taken := st.serials[key]; taken {
				return checkbooks.ErrSerialAlreadyUsed.Clone().
					WithDetail("checkbook_id", chk.CheckbookID.String()).
					WithDetail("serial", *chk.Serial)
			}
			st.serials[key] = chk.ID
		}
		if _, ok := st.accounts[chk.OwnerAccountID]; !ok {
			return apperror.NewNotFound("account", chk.OwnerAccountID.String())
		}
		if _, ok := st.documents[chk.SourceDocumentID]; !ok {
			return apperror.NewNotFound("document", chk.SourceDocumentID.String())
		}
		st.checks[chk.ID] = *chk
		return nil
	})
}

func (r *CheckRepo) GetByID(ctx context.Context, checkID id.ID) (*entity.Check, error) {
	chk, ok := r.store.read(ctx).checks[checkID]
	if !ok {
		return nil, apperror.NewNotFound("check", checkID.String())
	}
	return &chk, nil
}

// GetForUpdate needs no lock: transactions on the store are serialized.
func (r *CheckRepo) GetForUpdate(ctx context.Context, checkID id.ID) (*entity.Check, error) {
	return r.GetByID(ctx, checkID)
}

func (r *CheckRepo) UpdateStatus(ctx context.Context, chk *entity.Check, expected entity.CheckStatus) error {
	return r.store.write(ctx, func(st *state) error {
		current, ok := st.checks[chk.ID]
		if !ok {
			return apperror.NewNotFound("check", chk.ID.String())
		}
		if current.Status != expected {
			return checks.ErrStaleStatus.Clone().
				WithDetail("check_id", chk.ID.String()).
				WithDetail("expected", expected).
				WithDetail("actual", current.Status)
		}
		current.Status = chk.Status
		current.DepositBankID = chk.DepositBankID
		current.OwnerAccountID = chk.OwnerAccountID
		current.Version = chk.Version
		current.UpdatedAt = chk.UpdatedAt
		st.checks[chk.ID] = current
		return nil
	})
}

func (r *CheckRepo) CreateMovement(ctx context.Context, m *entity.CheckMovement) error {
	return r.store.write(ctx, func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *CheckRepo) ListMovements(ctx context.Context, checkID id.ID) ([]entity.CheckMovement, error) {
	movements := []entity.CheckMovement{}
	for _, m := range r.store.read(ctx).movements {
		if m.CheckID == checkID {
			movements = append(movements, m)
		}
	}
	return movements, nil
}

func (r *CheckRepo) List(ctx context.Context, filter checks.ListFilter) (domain.ListResult[entity.Check], error) {
	var items []entity.Check
	for _, chk := range r.store.read(ctx).checks {
		if filter.Matches(&chk) {
			items = append(items, chk)
		}
	}
	slices.SortFunc(items, func(a, b entity.Check) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return domain.Page(items, filter.ListFilter), nil
}

func (r *CheckRepo) ReferencesDocument(ctx context.Context, docID id.ID) (bool, error) {
	st := r.store.read(ctx)
	for _, chk := range st.checks {
		if chk.SourceDocumentID == docID {
			return true, nil
		}
	}
	for _, m := range st.movements {
		if m.DocumentID == docID {
			return true, nil
		}
	}
	return false, nil
}
