package accounts

import (
	"context"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
)

// Repository persists ledger accounts.
type Repository interface {
	// Create inserts the account unless one already exists for (kind, ref_id).
	// Returns false when the insert was skipped.
	Create(ctx context.Context, account *entity.Account) (bool, error)

	GetByID(ctx context.Context, accountID id.ID) (*entity.Account, error)

	// GetByRef retrieves the account provisioned for a directory entity
	GetByRef(ctx context.Context, kind entity.AccountKind, refID string) (*entity.Account, error)

	SetActive(ctx context.Context, accountID id.ID, active bool) error

	// MarkDishonored flags the account as owner of a bounced check
	MarkDishonored(ctx context.Context, accountID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[entity.Account], error)
}

// ListFilter narrows account lists.
type ListFilter struct {
	domain.ListFilter

	Kind       *entity.AccountKind
	Search     string
	ActiveOnly bool
}
