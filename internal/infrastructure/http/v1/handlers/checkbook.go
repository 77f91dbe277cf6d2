package handlers

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/domain/checkbooks"
	"treasury/internal/infrastructure/http/v1/dto"
)

// CheckbookHandler handles checkbook registration and serial queries.
type CheckbookHandler struct {
	*BaseHandler
	allocator *checkbooks.Allocator
}

// NewCheckbookHandler creates a new checkbook handler.
func NewCheckbookHandler(base *BaseHandler, allocator *checkbooks.Allocator) *CheckbookHandler {
	return &CheckbookHandler{
		BaseHandler: base,
		allocator:   allocator,
	}
}

// Register handles POST /checkbooks
func (h *CheckbookHandler) Register(c *gin.Context) {
	var req dto.RegisterCheckbookRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bankAccountID, err := dto.ParseID("bankAccountId", req.BankAccountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	cb, err := h.allocator.Register(c.Request.Context(), bankAccountID, req.Title, req.SerialStart, req.SerialEnd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromCheckbook(cb))
}

// List handles GET /checkbooks?bankAccountId=
func (h *CheckbookHandler) List(c *gin.Context) {
	bankAccountID, err := dto.ParseOptionalID("bankAccountId", c.Query("bankAccountId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	books, err := h.allocator.List(c.Request.Context(), bankAccountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.CheckbookResponse, 0, len(books))
	for i := range books {
		out = append(out, dto.FromCheckbook(&books[i]))
	}
	h.OK(c, out)
}

// Get handles GET /checkbooks/:id
func (h *CheckbookHandler) Get(c *gin.Context) {
	checkbookID, ok := h.PathID(c)
	if !ok {
		return
	}

	cb, err := h.allocator.Get(c.Request.Context(), checkbookID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCheckbook(cb))
}

// Serials handles GET /checkbooks/:id/serials
func (h *CheckbookHandler) Serials(c *gin.Context) {
	checkbookID, ok := h.PathID(c)
	if !ok {
		return
	}

	serials, err := h.allocator.AvailableSerials(c.Request.Context(), checkbookID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if serials == nil {
		serials = []int64{}
	}

	h.OK(c, dto.SerialsResponse{CheckbookID: checkbookID.String(), Serials: serials})
}

// Cancel handles POST /checkbooks/:id/cancel
func (h *CheckbookHandler) Cancel(c *gin.Context) {
	checkbookID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.allocator.Cancel(c.Request.Context(), checkbookID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
