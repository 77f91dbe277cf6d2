package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Event types published by the treasury services.
const (
	EventDocumentPosted      = "DocumentPosted"
	EventCheckTransitioned   = "CheckTransitioned"
	EventCheckbookExhausted  = "CheckbookExhausted"
	EventTransactionComposed = "TransactionComposed"
)

// Event is a domain event recorded in the same transaction as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       any
}

// EventPublisher stores events for asynchronous delivery.
// Publish must be called inside a transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AuditRecorder keeps an audit trail of changes.
type AuditRecorder interface {
	Record(ctx context.Context, entityType, entityID, action string, changes any) error
}

// AuditEntry is one recorded change, as read back from the trail.
type AuditEntry struct {
	ID         string
	EntityType string
	EntityID   string
	Action     string
	UserID     string
	Changes    json.RawMessage
	CreatedAt  time.Time
}

// AuditReader returns the trail of an entity, newest first.
type AuditReader interface {
	History(ctx context.Context, entityType, entityID string, limit int) ([]AuditEntry, error)
}

// AuditLog records and reads back the audit trail.
type AuditLog interface {
	AuditRecorder
	AuditReader
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NopAuditRecorder discards audit records and reads back an empty trail.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, string, string, string, any) error { return nil }

func (NopAuditRecorder) History(context.Context, string, string, int) ([]AuditEntry, error) {
	return nil, nil
}
