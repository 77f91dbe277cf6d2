package handlers

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/core/entity"
	"treasury/internal/domain/checks"
	"treasury/internal/infrastructure/http/v1/dto"
)

// CheckHandler handles the check register and check lifecycle operations.
type CheckHandler struct {
	*BaseHandler
	checks *checks.Service
}

// NewCheckHandler creates a new check handler.
func NewCheckHandler(base *BaseHandler, service *checks.Service) *CheckHandler {
	return &CheckHandler{
		BaseHandler: base,
		checks:      service,
	}
}

// List handles GET /checks
func (h *CheckHandler) List(c *gin.Context) {
	var query dto.CheckListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	page, err := h.checks.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	money := h.Money()
	h.OK(c, dto.MapList(page, func(chk *entity.Check) dto.CheckResponse {
		return dto.FromCheck(chk, money)
	}))
}

// Get handles GET /checks/:id
func (h *CheckHandler) Get(c *gin.Context) {
	checkID, ok := h.PathID(c)
	if !ok {
		return
	}

	chk, err := h.checks.Get(c.Request.Context(), checkID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCheck(chk, h.Money()))
}

// History handles GET /checks/:id/history
func (h *CheckHandler) History(c *gin.Context) {
	checkID, ok := h.PathID(c)
	if !ok {
		return
	}

	moves, err := h.checks.History(c.Request.Context(), checkID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovements(moves))
}

// Perform handles POST /checks/:id/operations
func (h *CheckHandler) Perform(c *gin.Context) {
	var req dto.CheckOperationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	op, err := req.ToDomain(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.checks.Perform(c.Request.Context(), op)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCheckResult(result, h.Money()))
}
