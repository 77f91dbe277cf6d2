package checks

import (
	"context"
	"time"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain"
)

// Repository persists checks and their status history.
type Repository interface {
	// Create inserts a check. A second check with the same checkbook serial
	// fails with checkbooks.ErrSerialAlreadyUsed.
	Create(ctx context.Context, chk *entity.Check) error

	GetByID(ctx context.Context, checkID id.ID) (*entity.Check, error)

	// GetForUpdate retrieves the check with a row lock
	GetForUpdate(ctx context.Context, checkID id.ID) (*entity.Check, error)

	// UpdateStatus persists status, owner, deposit bank and version of chk only if
	// the stored status still equals expected; otherwise ErrStaleStatus.
	UpdateStatus(ctx context.Context, chk *entity.Check, expected entity.CheckStatus) error

	CreateMovement(ctx context.Context, m *entity.CheckMovement) error

	// ListMovements returns the status history of a check, oldest first
	ListMovements(ctx context.Context, checkID id.ID) ([]entity.CheckMovement, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[entity.Check], error)

	// ReferencesDocument reports whether any check or movement points at docID
	ReferencesDocument(ctx context.Context, docID id.ID) (bool, error)
}

// ListFilter narrows check lists.
type ListFilter struct {
	domain.ListFilter

	Direction      *entity.CheckDirection
	Status         *entity.CheckStatus
	OwnerAccountID *id.ID
	CheckbookID    *id.ID
	DueFrom        *time.Time
	DueTo          *time.Time
}

// Matches reports whether chk satisfies the filter (used by in-memory stores).
func (f ListFilter) Matches(chk *entity.Check) bool {
	switch {
	case f.Direction != nil && chk.Direction != *f.Direction:
		return false
	case f.Status != nil && chk.Status != *f.Status:
		return false
	case f.OwnerAccountID != nil && chk.OwnerAccountID != *f.OwnerAccountID:
		return false
	case f.CheckbookID != nil && (chk.CheckbookID == nil || *chk.CheckbookID != *f.CheckbookID):
		return false
	case f.DueFrom != nil && chk.DueDate.Before(*f.DueFrom):
		return false
	case f.DueTo != nil && chk.DueDate.After(*f.DueTo):
		return false
	}
	return true
}
