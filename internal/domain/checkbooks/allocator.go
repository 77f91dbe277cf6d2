// Package checkbooks hands out blank serials from issued checkbooks.
//
// Allocation is a pre-check only. The store's unique index on
// (checkbook_id, serial_no) is what prevents two concurrent issuances from
// writing the same serial; the check repository reports that collision as
// ErrSerialAlreadyUsed.
package checkbooks

import (
	"context"
	"fmt"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/tx"
	"treasury/internal/domain"
	"treasury/pkg/logger"
)

// BankAccountChecker verifies that an account can back a checkbook.
type BankAccountChecker interface {
	Get(ctx context.Context, accountID id.ID) (*entity.Account, error)
}

// Allocator is the checkbook serial allocator.
type Allocator struct {
	repo      Repository
	accounts  BankAccountChecker
	txManager tx.Manager
	events    domain.EventPublisher
}

// NewAllocator creates the allocator.
func NewAllocator(repo Repository, accounts BankAccountChecker, txManager tx.Manager, events domain.EventPublisher) *Allocator {
	if events == nil {
		events = domain.NopPublisher{}
	}
	return &Allocator{
		repo:      repo,
		accounts:  accounts,
		txManager: txManager,
		events:    events,
	}
}

// Register stores a new active checkbook.
func (a *Allocator) Register(ctx context.Context, bankAccountID id.ID, title string, serialStart, serialEnd int64) (*entity.Checkbook, error) {
	if serialStart <= 0 || serialEnd < serialStart {
		return nil, apperror.NewValidation("invalid serial range").
			WithDetail("serialStart", serialStart).
			WithDetail("serialEnd", serialEnd)
	}

	bank, err := a.accounts.Get(ctx, bankAccountID)
	if err != nil {
		return nil, err
	}
	if bank.Kind != entity.AccountKindBank || !bank.Active {
		return nil, apperror.NewValidation("checkbook must be drawn on an active bank account").
			WithDetail("bankAccountId", bankAccountID.String())
	}

	cb := &entity.Checkbook{
		BaseEntity:    entity.NewBaseEntity(),
		BankAccountID: bankAccountID,
		Title:         title,
		SerialStart:   serialStart,
		SerialEnd:     serialEnd,
		Status:        entity.CheckbookActive,
	}
	if err := a.repo.Create(ctx, cb); err != nil {
		return nil, fmt.Errorf("create checkbook: %w", err)
	}

	logger.Info(ctx, "registered checkbook",
		"checkbook_id", cb.ID,
		"bank_account_id", bankAccountID,
		"serial_start", serialStart,
		"serial_end", serialEnd,
	)

	return cb, nil
}

// Get returns a checkbook.
func (a *Allocator) Get(ctx context.Context, checkbookID id.ID) (*entity.Checkbook, error) {
	return a.repo.GetByID(ctx, checkbookID)
}

// List returns checkbooks, optionally of one bank account.
func (a *Allocator) List(ctx context.Context, bankAccountID *id.ID) ([]entity.Checkbook, error) {
	return a.repo.List(ctx, bankAccountID)
}

// AvailableSerials returns the serials of the checkbook not yet used by any check, ascending.
func (a *Allocator) AvailableSerials(ctx context.Context, checkbookID id.ID) ([]int64, error) {
	cb, err := a.repo.GetByID(ctx, checkbookID)
	if err != nil {
		return nil, err
	}
	used, err := a.repo.UsedSerials(ctx, checkbookID)
	if err != nil {
		return nil, fmt.Errorf("used serials: %w", err)
	}
	return available(cb, used), nil
}

// Allocate verifies that serial can be issued from the checkbook.
// Must run in the transaction that creates the check.
func (a *Allocator) Allocate(ctx context.Context, checkbookID id.ID, serial int64) (*entity.Checkbook, error) {
	cb, err := a.repo.GetByID(ctx, checkbookID)
	if err != nil {
		return nil, err
	}
	if !cb.Contains(serial) {
		return nil, ErrSerialOutOfRange.Clone().
			WithDetail("serial", serial).
			WithDetail("serialStart", cb.SerialStart).
			WithDetail("serialEnd", cb.SerialEnd)
	}

	used, err := a.repo.IsSerialUsed(ctx, checkbookID, serial)
	if err != nil {
		return nil, fmt.Errorf("check serial: %w", err)
	}
	if used {
		return nil, ErrSerialAlreadyUsed.Clone().
			WithDetail("checkbook_id", checkbookID.String()).
			WithDetail("serial", serial)
	}

	// An exhausted checkbook has no unused serial left, so only a
	// cancelled one can get here with a blank serial.
	if cb.Status != entity.CheckbookActive {
		return nil, ErrCheckbookInactive.Clone().
			WithDetail("checkbook_id", checkbookID.String()).
			WithDetail("status", cb.Status)
	}

	return cb, nil
}

// CloseIfExhausted flips the checkbook to exhausted once every serial is used.
// Call after the check carrying the last serial is written.
func (a *Allocator) CloseIfExhausted(ctx context.Context, checkbookID id.ID) (bool, error) {
	cb, err := a.repo.GetByID(ctx, checkbookID)
	if err != nil {
		return false, err
	}
	if cb.Status != entity.CheckbookActive {
		return false, nil
	}
	used, err := a.repo.UsedSerials(ctx, checkbookID)
	if err != nil {
		return false, fmt.Errorf("used serials: %w", err)
	}
	if len(available(cb, used)) > 0 {
		return false, nil
	}

	if err := a.repo.SetStatus(ctx, checkbookID, entity.CheckbookExhausted); err != nil {
		return false, fmt.Errorf("set status: %w", err)
	}
	if err := a.events.Publish(ctx, domain.Event{
		AggregateType: "checkbook",
		AggregateID:   checkbookID.String(),
		EventType:     domain.EventCheckbookExhausted,
		Payload:       map[string]any{"serialStart": cb.SerialStart, "serialEnd": cb.SerialEnd},
	}); err != nil {
		return false, fmt.Errorf("publish event: %w", err)
	}

	logger.Info(ctx, "checkbook exhausted", "checkbook_id", checkbookID)
	return true, nil
}

// Cancel withdraws an active checkbook; its blank serials can no longer be issued.
func (a *Allocator) Cancel(ctx context.Context, checkbookID id.ID) error {
	return a.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		cb, err := a.repo.GetByID(ctx, checkbookID)
		if err != nil {
			return err
		}
		if cb.Status != entity.CheckbookActive {
			return ErrCheckbookInactive.Clone().
				WithDetail("checkbook_id", checkbookID.String()).
				WithDetail("status", cb.Status)
		}
		return a.repo.SetStatus(ctx, checkbookID, entity.CheckbookCancelled)
	})
}

// available computes [start, end] minus used.
func available(cb *entity.Checkbook, used []int64) []int64 {
	taken := make(map[int64]struct{}, len(used))
	for _, s := range used {
		taken[s] = struct{}{}
	}
	free := make([]int64, 0, max(cb.Size()-int64(len(taken)), 0))
	for s := cb.SerialStart; s <= cb.SerialEnd; s++ {
		if _, ok := taken[s]; !ok {
			free = append(free, s)
		}
	}
	return free
}
