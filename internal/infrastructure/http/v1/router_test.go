package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury/internal/app"
	"treasury/internal/domain/auth"
	v1 "treasury/internal/infrastructure/http/v1"
	"treasury/internal/infrastructure/http/v1/dto"
	"treasury/internal/infrastructure/storage/memory"
	"treasury/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

type api struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T, mutate ...func(*v1.RouterConfig)) *api {
	t.Helper()
	cfg := v1.RouterConfig{
		Services:      app.NewServices(app.MemoryRepositories(memory.New()), app.Options{}),
		Logger:        logger.Default(),
		StorageDriver: "memory",
		Version:       "test",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return &api{t: t, router: v1.NewRouter(cfg)}
}

func (a *api) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func ref(kind, refID, title string) map[string]any {
	return map[string]any{"kind": kind, "refId": refID, "title": title}
}

func receipt(lines ...map[string]any) map[string]any {
	return map[string]any{
		"direction":    "receive",
		"counterparty": ref("person", "cust-a", "Customer A"),
		"date":         "2026-06-01",
		"lines":        lines,
	}
}

func receivedCheckLine(amount, sayadi string) map[string]any {
	return map[string]any{
		"method":    "check",
		"amount":    amount,
		"checkMode": "received",
		"received": map[string]any{
			"chequeNo":             "778899",
			"nationalTrackingCode": sayadi,
			"bankName":             "Saderat",
			"dueDate":              "2026-07-01",
		},
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/health/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, "memory", info["storage"])
}

func TestComposeAndCheckLifecycle(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/transactions", receipt(
		map[string]any{"method": "cash", "amount": "1500", "target": ref("cash", "box-1", "Cash Box 1")},
		receivedCheckLine("2500", "9876543210123456"),
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	composed := decode[dto.ComposeResponse](t, rec)
	assert.Equal(t, "RCV-2026-00001", composed.DocumentNo)
	assert.Equal(t, "4000", composed.TotalAmount)
	require.Len(t, composed.CheckIDs, 1)
	checkID := composed.CheckIDs[0]

	rec = a.do(http.MethodGet, "/api/v1/documents/"+composed.DocumentID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[dto.DocumentResponse](t, rec)
	assert.Equal(t, "receive", doc.Kind)
	assert.Len(t, doc.Entries, 4)

	rec = a.do(http.MethodGet, "/api/v1/checks/"+checkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chk := decode[dto.CheckResponse](t, rec)
	assert.Equal(t, "pending", chk.Status)
	assert.Equal(t, "2500", chk.Amount)

	rec = a.do(http.MethodPost, "/api/v1/checks/"+checkID+"/operations", map[string]any{
		"operation": "deposit",
		"date":      "2026-06-05",
		"target":    ref("bank", "bank-1", "Main Bank"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	op := decode[dto.CheckOperationResponse](t, rec)
	assert.Equal(t, "deposited", op.Status)
	assert.NotEmpty(t, op.DocumentNo)

	// A second deposit is not in the transition table.
	rec = a.do(http.MethodPost, "/api/v1/checks/"+checkID+"/operations", map[string]any{
		"operation": "deposit",
		"date":      "2026-06-06",
		"target":    ref("bank", "bank-1", "Main Bank"),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decode[dto.ErrorResponse](t, rec)
	assert.Equal(t, "ILLEGAL_TRANSITION", errBody.Code)
	assert.False(t, errBody.Retryable)

	rec = a.do(http.MethodGet, "/api/v1/checks/"+checkID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]dto.CheckMovementResponse](t, rec)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, "deposit", last.Operation)
	assert.Equal(t, "pending", last.FromStatus)
	assert.Equal(t, "deposited", last.ToStatus)

	rec = a.do(http.MethodGet, "/api/v1/checks?status=deposited", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.ListResponse[dto.CheckResponse]](t, rec)
	assert.Equal(t, int64(1), list.TotalCount)

	rec = a.do(http.MethodGet, "/api/v1/checks/"+checkID+"/audit?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trail := decode[[]dto.AuditEntryResponse](t, rec)
	require.Len(t, trail, 1)
	assert.Equal(t, "deposit", trail[0].Action)

	rec = a.do(http.MethodGet, "/api/v1/documents/"+composed.DocumentID+"/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trail = decode[[]dto.AuditEntryResponse](t, rec)
	require.Len(t, trail, 1)
	assert.Equal(t, "post", trail[0].Action)
}

func TestAccountReports(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/transactions", receipt(
		map[string]any{"method": "cash", "amount": "700", "target": ref("cash", "box-1", "Cash Box 1")},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/v1/accounts/resolve", ref("cash", "box-1", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cash := decode[dto.AccountResponse](t, rec)
	assert.Equal(t, "cash", cash.Kind)
	assert.True(t, cash.Active)

	rec = a.do(http.MethodGet, "/api/v1/accounts/"+cash.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[dto.SummaryResponse](t, rec)
	assert.Equal(t, "700", summary.TotalDebit)
	assert.Equal(t, "0", summary.TotalCredit)
	assert.Equal(t, "700", summary.Balance)

	rec = a.do(http.MethodGet, "/api/v1/accounts/"+cash.ID+"/ledger?from=2026-06-01&to=2026-06-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	statement := decode[dto.StatementResponse](t, rec)
	assert.Equal(t, "0", statement.OpeningBalance)
	assert.Equal(t, "700", statement.ClosingBalance)
	require.Len(t, statement.Lines, 1)
	assert.Equal(t, "700", statement.Lines[0].RunningBalance)

	rec = a.do(http.MethodGet, "/api/v1/accounts/"+cash.ID+"/ledger?from=2026-07-01&to=2026-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/api/v1/accounts/"+cash.ID+"/active", map[string]any{"active": false})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/accounts?kind=cash&activeOnly=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[dto.ListResponse[dto.AccountResponse]](t, rec)
	assert.Zero(t, active.TotalCount)
}

func TestManualDocuments(t *testing.T) {
	a := newAPI(t)

	var ids []string
	for _, refID := range []string{"box-1", "box-2"} {
		rec := a.do(http.MethodPost, "/api/v1/accounts/resolve", ref("cash", refID, "Box "+refID))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ids = append(ids, decode[dto.AccountResponse](t, rec).ID)
	}

	rec := a.do(http.MethodPost, "/api/v1/documents", map[string]any{
		"date": "2026-06-01",
		"entries": []map[string]any{
			{"accountId": ids[0], "debit": "100"},
			{"accountId": ids[1], "credit": "90"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNBALANCED_DOCUMENT", decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(http.MethodPost, "/api/v1/documents", map[string]any{
		"date":        "2026-06-01",
		"description": "transfer between boxes",
		"entries": []map[string]any{
			{"accountId": ids[0], "debit": "100"},
			{"accountId": ids[1], "credit": "100"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[dto.DocumentResponse](t, rec)
	assert.Equal(t, "100", doc.TotalAmount)

	rec = a.do(http.MethodPost, "/api/v1/documents/"+doc.ID+"/reverse", map[string]any{"date": "2026-06-02"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reversal := decode[dto.DocumentResponse](t, rec)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, doc.ID, *reversal.ReversalOf)

	rec = a.do(http.MethodPost, "/api/v1/documents/"+doc.ID+"/reverse", map[string]any{"date": "2026-06-03"})
	assert.Equal(t, "DOCUMENT_ALREADY_REVERSED", decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(http.MethodGet, "/api/v1/documents?kind=reversal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[dto.ListResponse[dto.DocumentResponse]](t, rec).TotalCount)
}

func TestCheckbooksAndIssuedChecks(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/accounts/resolve", ref("bank", "bank-1", "Main Bank"))
	require.Equal(t, http.StatusOK, rec.Code)
	bank := decode[dto.AccountResponse](t, rec)

	rec = a.do(http.MethodPost, "/api/v1/checkbooks", map[string]any{
		"bankAccountId": bank.ID,
		"title":         "Book 1",
		"serialStart":   100,
		"serialEnd":     102,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	book := decode[dto.CheckbookResponse](t, rec)
	assert.Equal(t, "active", book.Status)

	pay := func(serial int64) *httptest.ResponseRecorder {
		return a.do(http.MethodPost, "/api/v1/transactions", map[string]any{
			"direction":    "pay",
			"counterparty": ref("person", "sup-b", "Supplier B"),
			"date":         "2026-06-01",
			"lines": []map[string]any{{
				"method":    "check",
				"amount":    "300",
				"checkMode": "own_checkbook",
				"issued": map[string]any{
					"checkbookId": book.ID,
					"serial":      serial,
					"dueDate":     "2026-06-20",
				},
			}},
		})
	}

	rec = pay(101)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/v1/checkbooks/"+book.ID+"/serials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{100, 102}, decode[dto.SerialsResponse](t, rec).Serials)

	rec = pay(101)
	require.Equal(t, http.StatusConflict, rec.Code)
	used := decode[dto.ErrorResponse](t, rec)
	assert.Equal(t, "SERIAL_ALREADY_USED", used.Code)
	assert.True(t, used.Retryable)

	rec = pay(200)
	assert.Equal(t, "SERIAL_OUT_OF_RANGE", decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(http.MethodPost, "/api/v1/checkbooks/"+book.ID+"/cancel", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/checkbooks?bankAccountId="+bank.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	books := decode[[]dto.CheckbookResponse](t, rec)
	require.Len(t, books, 1)
	assert.Equal(t, "cancelled", books[0].Status)
}

func TestRequestValidation(t *testing.T) {
	a := newAPI(t)

	emptyLines := receipt()
	emptyLines["lines"] = []any{}

	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
	}{
		{"bad tracking code", receipt(receivedCheckLine("100", "12345")), "VALIDATION_ERROR"},
		{"negative amount", receipt(map[string]any{"method": "cash", "amount": "-5", "target": ref("cash", "box-1", "Box")}), ""},
		{"fractional rial", receipt(map[string]any{"method": "cash", "amount": "1.5", "target": ref("cash", "box-1", "Box")}), ""},
		{"unknown method", receipt(map[string]any{"method": "barter", "amount": "5"}), "VALIDATION_ERROR"},
		{"no lines", receipt(), "NO_LINES"},
		{"empty lines", emptyLines, "NO_LINES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/v1/transactions", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[dto.ErrorResponse](t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body.Code)
			} else {
				assert.NotEmpty(t, body.Code)
			}
			assert.False(t, body.Retryable)
		})
	}

	rec := a.do(http.MethodGet, "/api/v1/checks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthentication(t *testing.T) {
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	a := newAPI(t, func(cfg *v1.RouterConfig) {
		cfg.JWTValidator = jwtService
		cfg.AuthRequired = true
	})

	rec := a.do(http.MethodGet, "/api/v1/checks", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[dto.ErrorResponse](t, rec).Code)

	token, _, err := jwtService.GenerateAccessToken("user-7", "clerk@example.com", nil)
	require.NoError(t, err)
	a.token = token

	rec = a.do(http.MethodPost, "/api/v1/transactions", receipt(
		map[string]any{"method": "cash", "amount": "50", "target": ref("cash", "box-1", "Box")},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	composed := decode[dto.ComposeResponse](t, rec)

	rec = a.do(http.MethodGet, "/api/v1/documents/"+composed.DocumentID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", decode[dto.DocumentResponse](t, rec).CreatedBy)
}
