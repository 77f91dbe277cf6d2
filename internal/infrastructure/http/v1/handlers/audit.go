package handlers

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/domain"
	"treasury/internal/infrastructure/http/v1/dto"
)

// AuditHandler serves the audit trail of one entity type.
type AuditHandler struct {
	*BaseHandler
	reader     domain.AuditReader
	entityType string
}

// NewAuditHandler creates a handler for entities recorded as entityType.
func NewAuditHandler(base *BaseHandler, reader domain.AuditReader, entityType string) *AuditHandler {
	return &AuditHandler{
		BaseHandler: base,
		reader:      reader,
		entityType:  entityType,
	}
}

// History handles GET /<entities>/:id/audit
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}
	var query dto.AuditQuery
	if !h.BindQuery(c, &query) {
		return
	}

	entries, err := h.reader.History(c.Request.Context(), h.entityType, entityID.String(), query.EffectiveLimit())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAuditEntries(entries))
}
