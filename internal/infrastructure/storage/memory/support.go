package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "treasury/internal/core/context"
	"treasury/internal/core/id"
	"treasury/internal/core/numerator"
	"treasury/internal/domain"
)

// Numerator implements numerator.Generator on the store's sequences.
// Numbers are taken inside the caller's transaction, so a rolled back
// posting leaves no gap.
type Numerator struct {
	store *Store
}

var _ numerator.Generator = (*Numerator)(nil)

// NewNumerator creates the numerator.
func NewNumerator(store *Store) *Numerator {
	return &Numerator{store: store}
}

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	var num int64
	err := n.store.write(ctx, func(st *state) error {
		key := numerator.Key(cfg, period)
		st.sequences[key]++
		num = st.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.Format(cfg, period, num), nil
}

func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	return n.store.write(ctx, func(st *state) error {
		st.sequences[numerator.Key(cfg, period)] = value
		return nil
	})
}

// Outbox implements domain.EventPublisher.
type Outbox struct {
	store *Store
}

var _ domain.EventPublisher = (*Outbox)(nil)

// NewOutbox creates the event outbox.
func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Publish(ctx context.Context, event domain.Event) error {
	return o.store.write(ctx, func(st *state) error {
		st.events = append(st.events, event)
		return nil
	})
}

// Audit implements domain.AuditLog.
type Audit struct {
	store *Store
}

var _ domain.AuditLog = (*Audit)(nil)

// NewAudit creates the audit recorder.
func NewAudit(store *Store) *Audit {
	return &Audit{store: store}
}

func (a *Audit) Record(ctx context.Context, entityType, entityID, action string, changes any) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return a.store.write(ctx, func(st *state) error {
		st.audit = append(st.audit, domain.AuditEntry{
			ID:         id.New().String(),
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			UserID:     appctx.GetUserID(ctx),
			Changes:    changesJSON,
			CreatedAt:  time.Now().UTC(),
		})
		return nil
	})
}

func (a *Audit) History(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditEntry, error) {
	trail := a.store.read(ctx).audit
	var history []domain.AuditEntry
	for i := len(trail) - 1; i >= 0 && (limit <= 0 || len(history) < limit); i-- {
		if trail[i].EntityType == entityType && trail[i].EntityID == entityID {
			history = append(history, trail[i])
		}
	}
	return history, nil
}
