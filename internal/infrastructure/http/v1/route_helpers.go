package v1

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/app"
	"treasury/internal/infrastructure/http/v1/handlers"
)

// with appends the route handler to the group-specific middleware chain.
func with(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, h)
}

// registerTransactionRoutes registers receive/pay composition.
func registerTransactionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services, idempotent []gin.HandlerFunc) {
	handler := handlers.NewTransactionHandler(base, svc.Composer)
	rg.POST("/transactions", with(idempotent, handler.Compose)...)
}

// registerDocumentRoutes registers ledger document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services, idempotent []gin.HandlerFunc) {
	handler := handlers.NewDocumentHandler(base, svc.Ledger)
	docs := rg.Group("/documents")
	{
		docs.GET("", handler.List)
		docs.POST("", with(idempotent, handler.Create)...)
		docs.GET("/:id", handler.Get)
		docs.POST("/:id/reverse", with(idempotent, handler.Reverse)...)
		docs.GET("/:id/audit", handlers.NewAuditHandler(base, svc.Audit, "document").History)
	}
}

// registerAccountRoutes registers the account directory and account reports.
func registerAccountRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	handler := handlers.NewAccountHandler(base, svc.Accounts, svc.Ledger)
	accounts := rg.Group("/accounts")
	{
		accounts.GET("", handler.List)
		accounts.POST("/resolve", handler.Resolve)
		accounts.GET("/:id", handler.Get)
		accounts.PATCH("/:id/active", handler.SetActive)
		accounts.GET("/:id/ledger", handler.Ledger)
		accounts.GET("/:id/summary", handler.Summary)
	}
}

// registerCheckRoutes registers the check register and lifecycle operations.
func registerCheckRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services, idempotent []gin.HandlerFunc) {
	handler := handlers.NewCheckHandler(base, svc.Checks)
	checks := rg.Group("/checks")
	{
		checks.GET("", handler.List)
		checks.GET("/:id", handler.Get)
		checks.GET("/:id/history", handler.History)
		checks.POST("/:id/operations", with(idempotent, handler.Perform)...)
		checks.GET("/:id/audit", handlers.NewAuditHandler(base, svc.Audit, "check").History)
	}
}

// registerCheckbookRoutes registers checkbook endpoints.
func registerCheckbookRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	handler := handlers.NewCheckbookHandler(base, svc.Checkbooks)
	books := rg.Group("/checkbooks")
	{
		books.GET("", handler.List)
		books.POST("", handler.Register)
		books.GET("/:id", handler.Get)
		books.GET("/:id/serials", handler.Serials)
		books.POST("/:id/cancel", handler.Cancel)
	}
}
