package handlers

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/domain/treasury"
	"treasury/internal/infrastructure/http/v1/dto"
)

// TransactionHandler handles receive/pay operations.
type TransactionHandler struct {
	*BaseHandler
	composer *treasury.Composer
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(base *BaseHandler, composer *treasury.Composer) *TransactionHandler {
	return &TransactionHandler{
		BaseHandler: base,
		composer:    composer,
	}
}

// Compose handles POST /transactions
func (h *TransactionHandler) Compose(c *gin.Context) {
	var req dto.ComposeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	header, lines, err := req.ToDomain(h.Money())
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.composer.Compose(c.Request.Context(), header, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromComposeResult(result, h.Money()))
}
