package dto

import (
	"encoding/json"

	"treasury/internal/domain"
)

const defaultAuditLimit = 50

// AuditQuery limits an audit history listing.
type AuditQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// EffectiveLimit returns the requested limit or the default.
func (q AuditQuery) EffectiveLimit() int {
	if q.Limit == 0 {
		return defaultAuditLimit
	}
	return q.Limit
}

// AuditEntryResponse is one audit trail entry.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	UserID    string          `json:"userId,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

// FromAuditEntries maps an audit history, keeping its order.
func FromAuditEntries(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			Action:    e.Action,
			UserID:    e.UserID,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt.Format(timestampLayout),
		})
	}
	return out
}
