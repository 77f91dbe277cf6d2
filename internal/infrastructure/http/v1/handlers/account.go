package handlers

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/domain/accounts"
	"treasury/internal/domain/ledger"
	"treasury/internal/infrastructure/http/v1/dto"
)

// AccountHandler handles the account directory and account reports.
type AccountHandler struct {
	*BaseHandler
	directory *accounts.Directory
	ledger    *ledger.Service
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, directory *accounts.Directory, ledgerService *ledger.Service) *AccountHandler {
	return &AccountHandler{
		BaseHandler: base,
		directory:   directory,
		ledger:      ledgerService,
	}
}

// List handles GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	var query dto.AccountListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.directory.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MapList(page, dto.FromAccount))
}

// Get handles GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.PathID(c)
	if !ok {
		return
	}

	account, err := h.directory.Get(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(account))
}

// Resolve handles POST /accounts/resolve
func (h *AccountHandler) Resolve(c *gin.Context) {
	var req dto.ResolveAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.directory.Resolve(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(account))
}

// SetActive handles PATCH /accounts/:id/active
func (h *AccountHandler) SetActive(c *gin.Context) {
	accountID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.directory.SetActive(c.Request.Context(), accountID, *req.Active); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Ledger handles GET /accounts/:id/ledger?from=&to=
func (h *AccountHandler) Ledger(c *gin.Context) {
	accountID, ok := h.PathID(c)
	if !ok {
		return
	}
	period, err := dto.ParsePeriod(c.Query("from"), c.Query("to"))
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.directory.Get(ctx, accountID); err != nil {
		h.Error(c, err)
		return
	}

	statement, err := h.ledger.AccountStatement(ctx, accountID, period)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStatement(statement, h.Money()))
}

// Summary handles GET /accounts/:id/summary
func (h *AccountHandler) Summary(c *gin.Context) {
	accountID, ok := h.PathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.directory.Get(ctx, accountID); err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.ledger.AccountSummary(ctx, accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSummary(summary, h.Money()))
}

