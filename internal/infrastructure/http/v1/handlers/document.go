package handlers

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/core/entity"
	"treasury/internal/domain/ledger"
	"treasury/internal/infrastructure/http/v1/dto"
)

// DocumentHandler handles ledger documents.
type DocumentHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(base *BaseHandler, service *ledger.Service) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler: base,
		ledger:      service,
	}
}

// Create handles POST /documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	draft, err := req.ToDraft(h.Money())
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.ledger.AppendDocument(c.Request.Context(), draft)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromDocument(doc, h.Money()))
}

// Get handles GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	doc, err := h.ledger.GetDocument(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc, h.Money()))
}

// List handles GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	var query dto.DocumentListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	page, err := h.ledger.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	money := h.Money()
	h.OK(c, dto.MapList(page, func(doc *entity.Document) dto.DocumentResponse {
		return dto.FromDocument(doc, money)
	}))
}

// Reverse handles POST /documents/:id/reverse
func (h *DocumentHandler) Reverse(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ReverseDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	reversal, err := h.ledger.ReverseDocument(c.Request.Context(), docID, req.Date.Time, req.Description)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromDocument(reversal, h.Money()))
}
