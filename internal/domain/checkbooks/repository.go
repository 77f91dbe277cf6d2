package checkbooks

import (
	"context"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
)

// Repository persists checkbooks and reads serial usage.
type Repository interface {
	Create(ctx context.Context, cb *entity.Checkbook) error

	GetByID(ctx context.Context, checkbookID id.ID) (*entity.Checkbook, error)

	List(ctx context.Context, bankAccountID *id.ID) ([]entity.Checkbook, error)

	SetStatus(ctx context.Context, checkbookID id.ID, status entity.CheckbookStatus) error

	// UsedSerials returns serials present on any check of the checkbook, ascending
	UsedSerials(ctx context.Context, checkbookID id.ID) ([]int64, error)

	// IsSerialUsed reports whether a check already carries the serial
	IsSerialUsed(ctx context.Context, checkbookID id.ID, serial int64) (bool, error)
}
