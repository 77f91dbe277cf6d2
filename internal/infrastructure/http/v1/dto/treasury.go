package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"treasury/internal/core/apperror"
	"treasury/internal/domain/checks"
	"treasury/internal/domain/treasury"
)

// --- Request DTOs ---

// ComposeRequest is one receive or pay operation with its payment lines.
type ComposeRequest struct {
	Direction    string            `json:"direction" binding:"required,oneof=receive pay"`
	Counterparty AccountRefRequest `json:"counterparty"`
	Date         Date              `json:"date"`
	Description  string            `json:"description,omitempty" binding:"max=500"`
	ManualNo     string            `json:"manualNo,omitempty" binding:"max=50"`
	Lines        []ComposeLine     `json:"lines" binding:"dive"`
}

// ComposeLine is one payment-method line.
type ComposeLine struct {
	Method      string             `json:"method" binding:"required,oneof=cash pos transfer check"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description,omitempty" binding:"max=500"`
	Target      *AccountRefRequest `json:"target,omitempty"`

	CheckMode string               `json:"checkMode,omitempty" binding:"omitempty,oneof=received own_checkbook spend"`
	Received  *ReceivedCheckFields `json:"received,omitempty"`
	Issued    *IssuedCheckFields   `json:"issued,omitempty"`
	CheckID   string               `json:"checkId,omitempty" binding:"omitempty,uuid"`
}

// ReceivedCheckFields describes a check handed to us.
type ReceivedCheckFields struct {
	ChequeNo             string `json:"chequeNo" binding:"required"`
	NationalTrackingCode string `json:"nationalTrackingCode" binding:"required,sayadi"`
	BankName             string `json:"bankName" binding:"required"`
	DueDate              Date   `json:"dueDate"`
}

// IssuedCheckFields describes a check written from one of our checkbooks.
type IssuedCheckFields struct {
	CheckbookID          string `json:"checkbookId" binding:"required,uuid"`
	Serial               int64  `json:"serial" binding:"required,gt=0"`
	NationalTrackingCode string `json:"nationalTrackingCode,omitempty" binding:"omitempty,sayadi"`
	DueDate              Date   `json:"dueDate"`
}

// ToDomain converts the request into composer input.
func (r *ComposeRequest) ToDomain(money Money) (treasury.Header, []treasury.Line, error) {
	counterparty, err := r.Counterparty.ToDomain("counterparty")
	if err != nil {
		return treasury.Header{}, nil, err
	}
	header := treasury.Header{
		Direction:    treasury.Direction(r.Direction),
		Counterparty: counterparty,
		Date:         r.Date.Time,
		Description:  r.Description,
		ManualNo:     r.ManualNo,
	}

	lines := make([]treasury.Line, 0, len(r.Lines))
	for i := range r.Lines {
		line, err := r.Lines[i].toDomain(money, i+1)
		if err != nil {
			return treasury.Header{}, nil, err
		}
		lines = append(lines, line)
	}
	return header, lines, nil
}

func (l *ComposeLine) toDomain(money Money, lineNo int) (treasury.Line, error) {
	field := fmt.Sprintf("lines[%d]", lineNo)

	amount, err := money.ToMinor(field+".amount", l.Amount)
	if err != nil {
		return treasury.Line{}, err
	}

	line := treasury.Line{
		Method:      treasury.Method(l.Method),
		Amount:      amount,
		Description: l.Description,
		CheckMode:   treasury.CheckMode(l.CheckMode),
	}
	if !l.Target.IsZero() {
		if line.Target, err = l.Target.ToDomain(field + ".target"); err != nil {
			return treasury.Line{}, err
		}
	}
	if l.CheckID != "" {
		if line.CheckID, err = ParseID(field+".checkId", l.CheckID); err != nil {
			return treasury.Line{}, err
		}
	}
	if l.Received != nil {
		line.Received = &checks.ReceivedInput{
			ChequeNo:             l.Received.ChequeNo,
			NationalTrackingCode: l.Received.NationalTrackingCode,
			BankName:             l.Received.BankName,
			DueDate:              l.Received.DueDate.Time,
			Amount:               amount,
		}
	}
	if l.Issued != nil {
		checkbookID, err := ParseID(field+".issued.checkbookId", l.Issued.CheckbookID)
		if err != nil {
			return treasury.Line{}, err
		}
		line.Issued = &checks.IssuedInput{
			CheckbookID:          checkbookID,
			Serial:               l.Issued.Serial,
			NationalTrackingCode: l.Issued.NationalTrackingCode,
			DueDate:              l.Issued.DueDate.Time,
			Amount:               amount,
		}
	}
	if line.Method != treasury.MethodCheck && (l.Received != nil || l.Issued != nil || l.CheckID != "") {
		return treasury.Line{}, apperror.NewValidation("check fields on a non-check line").
			WithDetail("line", lineNo)
	}
	return line, nil
}

// --- Response DTOs ---

// ComposeResponse identifies the composed document.
type ComposeResponse struct {
	DocumentID  string   `json:"documentId"`
	DocumentNo  string   `json:"documentNo"`
	TotalAmount string   `json:"totalAmount"`
	CheckIDs    []string `json:"checkIds,omitempty"`
}

// FromComposeResult converts the composer result.
func FromComposeResult(res *treasury.Result, money Money) ComposeResponse {
	resp := ComposeResponse{
		DocumentID:  res.DocumentID.String(),
		DocumentNo:  res.DocumentNo,
		TotalAmount: money.Format(res.Total),
	}
	for _, checkID := range res.CheckIDs {
		resp.CheckIDs = append(resp.CheckIDs, checkID.String())
	}
	return resp
}
