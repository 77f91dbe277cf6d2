package dto

import (
	"treasury/internal/core/entity"
	"treasury/internal/domain/accounts"
)

// ResolveAccountRequest looks up or provisions the account of a directory entity.
type ResolveAccountRequest struct {
	Kind  string `json:"kind" binding:"required,oneof=person bank cash pos"`
	RefID string `json:"refId" binding:"required,max=100"`
	Title string `json:"title,omitempty" binding:"max=200"`
}

// ToDomain converts the request.
func (r *ResolveAccountRequest) ToDomain() entity.AccountRef {
	return entity.AccountRef{
		Kind:  entity.AccountKind(r.Kind),
		RefID: r.RefID,
		Title: r.Title,
	}
}

// SetActiveRequest toggles an account.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// AccountListQuery filters the account directory.
type AccountListQuery struct {
	ListQuery
	Kind       string `form:"kind" binding:"omitempty,oneof=person bank cash pos system"`
	Search     string `form:"search"`
	ActiveOnly bool   `form:"activeOnly"`
}

// ToFilter converts the query.
func (q *AccountListQuery) ToFilter() accounts.ListFilter {
	f := accounts.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		Search:     q.Search,
		ActiveOnly: q.ActiveOnly,
	}
	if q.Kind != "" {
		kind := entity.AccountKind(q.Kind)
		f.Kind = &kind
	}
	return f
}

// AccountResponse is a ledger account.
type AccountResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Title         string `json:"title"`
	Kind          string `json:"kind"`
	RefID         string `json:"refId"`
	Active        bool   `json:"active"`
	HasDishonored bool   `json:"hasDishonored"`
}

// FromAccount converts an account.
func FromAccount(a *entity.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID.String(),
		Code:          a.Code,
		Title:         a.Title,
		Kind:          string(a.Kind),
		RefID:         a.RefID,
		Active:        a.Active,
		HasDishonored: a.HasDishonored,
	}
}
