// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "treasury/internal/core/context"
	"treasury/internal/core/id"
	"treasury/internal/domain"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the change size from which payloads are compressed.
const defaultCompressThreshold = 10 * 1024

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          string          `db:"entity_id" json:"entityId"`
	Action            string          `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"userId"`
	UserEmail         string          `db:"user_email" json:"userEmail"`
	Changes           json.RawMessage `db:"changes" json:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// AuditService writes the audit trail to sys_audit.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ domain.AuditLog = (*AuditService)(nil)

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Record stores one change in the current transaction.
func (s *AuditService) Record(ctx context.Context, entityType, entityID, action string, changes any) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	entry := AuditEntry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changesJSON,
		CreatedAt:  time.Now().UTC(),
	}
	if user := appctx.GetUser(ctx); user != nil {
		entry.UserID = user.UserID
		entry.UserEmail = user.Email
	}
	s.compress(&entry)

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, user_email,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.UserID, entry.UserEmail,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History retrieves audit history for an entity, newest first.
func (s *AuditService) History(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditEntry, error) {
	var entries []AuditEntry
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, `
		SELECT id, entity_type, entity_id, action, user_id, user_email,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	history := make([]domain.AuditEntry, 0, len(entries))
	for i := range entries {
		if err := s.decompress(&entries[i]); err != nil {
			return nil, err
		}
		history = append(history, entries[i].toDomain())
	}
	return history, nil
}

func (e AuditEntry) toDomain() domain.AuditEntry {
	return domain.AuditEntry{
		ID:         e.ID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		UserID:     e.UserID,
		Changes:    e.Changes,
		CreatedAt:  e.CreatedAt,
	}
}

func (s *AuditService) compress(e *AuditEntry) {
	e.CompressionAlgo = CompressionNone
	if len(e.Changes) <= s.compressThreshold {
		return
	}
	e.ChangesCompressed = s.encoder.EncodeAll(e.Changes, nil)
	e.Changes = nil
	e.CompressionAlgo = CompressionZstd
}

func (s *AuditService) decompress(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	decompressed, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	e.Changes = decompressed
	e.ChangesCompressed = nil
	return nil
}
