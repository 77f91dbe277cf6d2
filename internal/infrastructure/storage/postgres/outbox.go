package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"treasury/internal/core/id"
	"treasury/internal/domain"
	"treasury/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMaxRetries is the number of failed deliveries after which a message
// is parked as failed and later moved to the dead letter queue.
const OutboxMaxRetries = 5

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"` // e.g. "document", "check"
	AggregateID   string       `db:"aggregate_id"`
	EventType     string       `db:"event_type"` // e.g. "DocumentPosted"
	Payload       []byte       `db:"payload"`    // JSON payload
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes events to the outbox table.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ domain.EventPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish writes an event to the outbox within the current transaction.
// MUST be called inside a transaction context.
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), event.AggregateType, event.AggregateID, event.EventType, payloadBytes, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	return nil
}

// OutboxRelay reads and processes messages from the outbox.
// Used by the background worker to deliver events.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   OutboxHandler
}

// OutboxHandler processes outbox messages.
type OutboxHandler interface {
	// Handle processes a message and returns error if failed
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error {
	return f(ctx, msg)
}

// LogHandler delivers messages to the structured log.
var LogHandler = OutboxHandlerFunc(func(ctx context.Context, msg *OutboxMessage) error {
	logger.Info(ctx, "outbox event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
})

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(pool *pgxpool.Pool, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{
		pool:      pool,
		batchSize: batchSize,
		handler:   handler,
	}
}

// BatchSize is the maximum number of messages per ProcessBatch call.
func (r *OutboxRelay) BatchSize() int {
	return r.batchSize
}

// ProcessBatch fetches and processes pending messages.
// The batch is locked for the duration of delivery, so concurrent relays skip it.
// Returns number of processed messages.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin outbox batch: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var messages []*OutboxMessage
	err = pgxscan.Select(ctx, tx, &messages, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
		       retry_count, last_error, next_retry_at, created_at, published_at
		FROM sys_outbox
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, OutboxStatusPending, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox messages: %w", err)
	}

	processed := 0
	for _, msg := range messages {
		if handleErr := r.handler.Handle(ctx, msg); handleErr != nil {
			logger.Warn(ctx, "outbox delivery failed",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"retry_count", msg.RetryCount,
				"error", handleErr,
			)
			// Linear backoff: one more minute per attempt.
			nextRetry := time.Now().UTC().Add(time.Duration(msg.RetryCount+1) * time.Minute)
			_, err := tx.Exec(ctx, `
				UPDATE sys_outbox
				SET retry_count = retry_count + 1,
				    last_error = $1,
				    next_retry_at = $2,
				    status = CASE WHEN retry_count + 1 >= $3 THEN $4 ELSE status END
				WHERE id = $5
			`, handleErr.Error(), nextRetry, OutboxMaxRetries, OutboxStatusFailed, msg.ID)
			if err != nil {
				return processed, fmt.Errorf("update failed message: %w", err)
			}
			continue
		}

		_, err := tx.Exec(ctx, `
			UPDATE sys_outbox
			SET status = $1, published_at = $2
			WHERE id = $3
		`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
		if err != nil {
			return processed, fmt.Errorf("mark message published: %w", err)
		}
		processed++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return processed, nil
}

// MoveToDLQ moves failed messages to dead letter queue.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1 AND retry_count >= $2
			RETURNING *
		)
		INSERT INTO sys_outbox_dlq
		SELECT *, NOW() as failed_at, last_error as failure_reason FROM moved
	`, OutboxStatusFailed, OutboxMaxRetries)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}

	return result.RowsAffected(), nil
}
