package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/domain/ledger"
)

// --- Request DTOs ---

// CreateDocumentRequest is a manual journal voucher.
type CreateDocumentRequest struct {
	Date        Date                 `json:"date"`
	Description string               `json:"description,omitempty" binding:"max=500"`
	ManualNo    string               `json:"manualNo,omitempty" binding:"max=50"`
	Entries     []DocumentEntryInput `json:"entries" binding:"required,min=1,dive"`
}

// DocumentEntryInput is one side of a journal line. Exactly one of
// Debit and Credit must be positive.
type DocumentEntryInput struct {
	AccountID   string          `json:"accountId" binding:"required,uuid"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty" binding:"max=500"`
}

// ToDraft converts the request into a ledger draft.
func (r *CreateDocumentRequest) ToDraft(money Money) (ledger.Draft, error) {
	draft := ledger.Draft{
		Date:        r.Date.Time,
		Description: r.Description,
		ManualNo:    r.ManualNo,
		Kind:        entity.DocumentKindManual,
		Entries:     make([]entity.Entry, 0, len(r.Entries)),
	}
	for i, in := range r.Entries {
		field := fmt.Sprintf("entries[%d]", i+1)
		accountID, err := ParseID(field+".accountId", in.AccountID)
		if err != nil {
			return ledger.Draft{}, err
		}
		debit, err := money.ToMinor(field+".debit", in.Debit)
		if err != nil {
			return ledger.Draft{}, err
		}
		credit, err := money.ToMinor(field+".credit", in.Credit)
		if err != nil {
			return ledger.Draft{}, err
		}
		draft.Entries = append(draft.Entries, entity.Entry{
			AccountID:   accountID,
			Debit:       debit,
			Credit:      credit,
			Description: in.Description,
		})
	}
	return draft, nil
}

// ReverseDocumentRequest posts the mirror image of a document.
type ReverseDocumentRequest struct {
	Date        Date   `json:"date"`
	Description string `json:"description,omitempty" binding:"max=500"`
}

// DocumentListQuery filters the document journal.
type DocumentListQuery struct {
	ListQuery
	Kind string `form:"kind" binding:"omitempty,oneof=manual receive pay check_operation reversal"`
	From string `form:"from"`
	To   string `form:"to"`
}

// ToFilter converts the query.
func (q *DocumentListQuery) ToFilter() (ledger.DocumentFilter, error) {
	period, err := ParsePeriod(q.From, q.To)
	if err != nil {
		return ledger.DocumentFilter{}, err
	}
	f := ledger.DocumentFilter{ListFilter: q.ListQuery.ToFilter(), Period: period}
	if q.Kind != "" {
		kind := entity.DocumentKind(q.Kind)
		f.Kind = &kind
	}
	return f, nil
}

// ParsePeriod parses optional from/to query parameters.
func ParsePeriod(from, to string) (ledger.Period, error) {
	var (
		p   ledger.Period
		err error
	)
	if p.From, err = ParseDateParam("from", from); err != nil {
		return ledger.Period{}, err
	}
	if p.To, err = ParseDateParam("to", to); err != nil {
		return ledger.Period{}, err
	}
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return ledger.Period{}, apperror.NewValidation("period end is before its start").
			WithDetail("from", from).
			WithDetail("to", to)
	}
	return p, nil
}

// --- Response DTOs ---

// EntryResponse is one journal line.
type EntryResponse struct {
	ID          string `json:"id"`
	LineNo      int    `json:"lineNo"`
	AccountID   string `json:"accountId"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
}

// DocumentResponse is a posted document.
type DocumentResponse struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Date        string          `json:"date"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	ManualNo    *string         `json:"manualNo,omitempty"`
	TotalAmount string          `json:"totalAmount"`
	ReversalOf  *string         `json:"reversalOf,omitempty"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	Entries     []EntryResponse `json:"entries,omitempty"`
}

// FromDocument converts a document.
func FromDocument(doc *entity.Document, money Money) DocumentResponse {
	resp := DocumentResponse{
		ID:          doc.ID.String(),
		Number:      doc.Number,
		Date:        doc.Date.Format(dateLayout),
		Kind:        string(doc.Kind),
		Description: doc.Description,
		ManualNo:    doc.ManualNo,
		TotalAmount: money.Format(doc.TotalAmount),
		ReversalOf:  optionalID(doc.ReversalOf),
		CreatedBy:   doc.CreatedBy,
		CreatedAt:   doc.CreatedAt.Format(timestampLayout),
	}
	for i := range doc.Entries {
		e := &doc.Entries[i]
		resp.Entries = append(resp.Entries, EntryResponse{
			ID:          e.ID.String(),
			LineNo:      e.LineNo,
			AccountID:   e.AccountID.String(),
			Debit:       money.Format(e.Debit),
			Credit:      money.Format(e.Credit),
			Description: e.Description,
		})
	}
	return resp
}

// LedgerLineResponse is one row of an account ledger.
type LedgerLineResponse struct {
	DocumentID     string `json:"documentId"`
	DocumentNo     string `json:"documentNo"`
	Date           string `json:"date"`
	LineNo         int    `json:"lineNo"`
	Debit          string `json:"debit"`
	Credit         string `json:"credit"`
	Description    string `json:"description,omitempty"`
	RunningBalance string `json:"runningBalance"`
}

// StatementResponse is an account ledger for a period.
type StatementResponse struct {
	AccountID      string               `json:"accountId"`
	OpeningBalance string               `json:"openingBalance"`
	TotalDebit     string               `json:"totalDebit"`
	TotalCredit    string               `json:"totalCredit"`
	ClosingBalance string               `json:"closingBalance"`
	Lines          []LedgerLineResponse `json:"lines"`
}

// FromStatement converts a statement.
func FromStatement(st *ledger.Statement, money Money) StatementResponse {
	resp := StatementResponse{
		AccountID:      st.AccountID.String(),
		OpeningBalance: money.Format(st.OpeningBalance),
		TotalDebit:     money.Format(st.Turnover.Debit),
		TotalCredit:    money.Format(st.Turnover.Credit),
		ClosingBalance: money.Format(st.ClosingBalance),
		Lines:          make([]LedgerLineResponse, 0, len(st.Lines)),
	}
	for _, line := range st.Lines {
		resp.Lines = append(resp.Lines, LedgerLineResponse{
			DocumentID:     line.DocumentID.String(),
			DocumentNo:     line.DocumentNumber,
			Date:           line.DocumentDate.Format(dateLayout),
			LineNo:         line.LineNo,
			Debit:          money.Format(line.Debit),
			Credit:         money.Format(line.Credit),
			Description:    line.Description,
			RunningBalance: money.Format(line.RunningBalance),
		})
	}
	return resp
}

// SummaryResponse is the all-time aggregate of an account.
type SummaryResponse struct {
	AccountID   string `json:"accountId"`
	TotalDebit  string `json:"totalDebit"`
	TotalCredit string `json:"totalCredit"`
	Balance     string `json:"balance"`
}

// FromSummary converts a summary.
func FromSummary(s ledger.Summary, money Money) SummaryResponse {
	return SummaryResponse{
		AccountID:   s.AccountID.String(),
		TotalDebit:  money.Format(s.TotalDebit),
		TotalCredit: money.Format(s.TotalCredit),
		Balance:     money.Format(s.Balance),
	}
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05Z07:00"
)

func optionalID(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
