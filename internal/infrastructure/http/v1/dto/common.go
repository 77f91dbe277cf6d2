// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
	"treasury/internal/domain"
)

// --- Money ---

// Money converts between API decimal amounts (major units) and ledger minor units.
type Money struct {
	// Scale is the number of minor digits per major unit (0 for rials).
	Scale int32
}

// ToMinor converts a request amount. Negative amounts and fractional minor
// units are rejected.
func (m Money) ToMinor(field string, d decimal.Decimal) (types.MinorUnits, error) {
	if d.IsNegative() {
		return 0, apperror.NewValidation("amount must not be negative").WithDetail("field", field)
	}
	v, err := types.FromDecimal(d, m.Scale)
	if err != nil {
		return 0, apperror.NewValidation("invalid amount").
			WithDetail("field", field).
			WithDetail("error", err.Error())
	}
	return v, nil
}

// Format renders minor units as a fixed-point decimal string.
func (m Money) Format(v types.MinorUnits) string {
	return v.Format(m.Scale)
}

// --- Dates ---

// Date is a business date accepted as YYYY-MM-DD or RFC 3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := types.ParseDate(s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = types.DateOf(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

// ParseDateParam parses an optional YYYY-MM-DD query parameter.
func ParseDateParam(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := types.ParseDate(value)
	if err != nil {
		return nil, apperror.NewValidation("invalid date").
			WithDetail("param", name).
			WithDetail("value", value)
	}
	return &t, nil
}

// --- Identifiers ---

// ParseID parses a UUID field of a request.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses a UUID field that may be empty.
func ParseOptionalID(field, value string) (*id.ID, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// --- Account references ---

// AccountRefRequest identifies an account directly or through its directory entity.
type AccountRefRequest struct {
	AccountID string `json:"accountId,omitempty" binding:"omitempty,uuid"`
	Kind      string `json:"kind,omitempty" binding:"omitempty,oneof=person bank cash pos"`
	RefID     string `json:"refId,omitempty"`
	Title     string `json:"title,omitempty"`
}

// ToDomain converts the reference.
func (r *AccountRefRequest) ToDomain(field string) (entity.AccountRef, error) {
	ref := entity.AccountRef{
		Kind:  entity.AccountKind(r.Kind),
		RefID: r.RefID,
		Title: r.Title,
	}
	if r.AccountID != "" {
		accountID, err := ParseID(field+".accountId", r.AccountID)
		if err != nil {
			return entity.AccountRef{}, err
		}
		ref.AccountID = accountID
	}
	return ref, nil
}

// IsZero reports whether the request carries no reference at all.
func (r *AccountRefRequest) IsZero() bool {
	return r == nil || (r.AccountID == "" && r.RefID == "")
}

// --- Pagination ---

// ListQuery contains paging parameters shared by list endpoints.
type ListQuery struct {
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy string `form:"orderBy"`
}

// ToFilter converts the query, applying the default page size.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	f.OrderBy = q.OrderBy
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// MapList converts a domain page with fn.
func MapList[E, T any](page domain.ListResult[E], fn func(*E) T) ListResponse[T] {
	items := make([]T, len(page.Items))
	for i := range page.Items {
		items[i] = fn(&page.Items[i])
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable"`
}
