package dto

import (
	"treasury/internal/core/entity"
	"treasury/internal/domain/checks"
)

// CheckOperationRequest asks for one lifecycle step of a check.
type CheckOperationRequest struct {
	Operation   string             `json:"operation" binding:"required,oneof=deposit spend clear bounce return"`
	Date        Date               `json:"date"`
	Target      *AccountRefRequest `json:"target,omitempty"`
	Description string             `json:"description,omitempty" binding:"max=500"`
}

// ToDomain converts the request for checkID.
func (r *CheckOperationRequest) ToDomain(checkIDParam string) (checks.OperationRequest, error) {
	checkID, err := ParseID("id", checkIDParam)
	if err != nil {
		return checks.OperationRequest{}, err
	}
	req := checks.OperationRequest{
		CheckID:     checkID,
		Operation:   entity.CheckOperation(r.Operation),
		Date:        r.Date.Time,
		Description: r.Description,
	}
	if !r.Target.IsZero() {
		target, err := r.Target.ToDomain("target")
		if err != nil {
			return checks.OperationRequest{}, err
		}
		req.Target = &target
	}
	return req, nil
}

// CheckListQuery filters the check register.
type CheckListQuery struct {
	ListQuery
	Direction   string `form:"direction" binding:"omitempty,oneof=received issued"`
	Status      string `form:"status" binding:"omitempty,oneof=pending deposited cleared bounced spent returned"`
	OwnerID     string `form:"ownerAccountId" binding:"omitempty,uuid"`
	CheckbookID string `form:"checkbookId" binding:"omitempty,uuid"`
	DueFrom     string `form:"dueFrom"`
	DueTo       string `form:"dueTo"`
}

// ToFilter converts the query.
func (q *CheckListQuery) ToFilter() (checks.ListFilter, error) {
	f := checks.ListFilter{ListFilter: q.ListQuery.ToFilter()}
	if q.Direction != "" {
		dir := entity.CheckDirection(q.Direction)
		f.Direction = &dir
	}
	if q.Status != "" {
		status := entity.CheckStatus(q.Status)
		f.Status = &status
	}

	var err error
	if f.OwnerAccountID, err = ParseOptionalID("ownerAccountId", q.OwnerID); err != nil {
		return checks.ListFilter{}, err
	}
	if f.CheckbookID, err = ParseOptionalID("checkbookId", q.CheckbookID); err != nil {
		return checks.ListFilter{}, err
	}
	if f.DueFrom, err = ParseDateParam("dueFrom", q.DueFrom); err != nil {
		return checks.ListFilter{}, err
	}
	if f.DueTo, err = ParseDateParam("dueTo", q.DueTo); err != nil {
		return checks.ListFilter{}, err
	}
	return f, nil
}

// CheckResponse is one check.
type CheckResponse struct {
	ID                   string  `json:"id"`
	Direction            string  `json:"direction"`
	ChequeNo             string  `json:"chequeNo"`
	NationalTrackingCode *string `json:"nationalTrackingCode,omitempty"`
	BankName             string  `json:"bankName"`
	DueDate              string  `json:"dueDate"`
	Amount               string  `json:"amount"`
	Status               string  `json:"status"`
	OwnerAccountID       string  `json:"ownerAccountId"`
	DepositBankID        *string `json:"depositBankId,omitempty"`
	CheckbookID          *string `json:"checkbookId,omitempty"`
	Serial               *int64  `json:"serial,omitempty"`
	SourceDocumentID     string  `json:"sourceDocumentId"`
}

// FromCheck converts a check.
func FromCheck(chk *entity.Check, money Money) CheckResponse {
	return CheckResponse{
		ID:                   chk.ID.String(),
		Direction:            string(chk.Direction),
		ChequeNo:             chk.ChequeNo,
		NationalTrackingCode: chk.NationalTrackingCode,
		BankName:             chk.BankName,
		DueDate:              chk.DueDate.Format(dateLayout),
		Amount:               money.Format(chk.Amount),
		Status:               string(chk.Status),
		OwnerAccountID:       chk.OwnerAccountID.String(),
		DepositBankID:        optionalID(chk.DepositBankID),
		CheckbookID:          optionalID(chk.CheckbookID),
		Serial:               chk.Serial,
		SourceDocumentID:     chk.SourceDocumentID.String(),
	}
}

// CheckOperationResponse is the outcome of a lifecycle step.
type CheckOperationResponse struct {
	Check      CheckResponse `json:"check"`
	Status     string        `json:"status"`
	DocumentID string        `json:"documentId"`
	DocumentNo string        `json:"documentNo"`
}

// FromCheckResult converts an operation result.
func FromCheckResult(res *checks.Result, money Money) CheckOperationResponse {
	return CheckOperationResponse{
		Check:      FromCheck(res.Check, money),
		Status:     string(res.Status),
		DocumentID: res.DocumentID.String(),
		DocumentNo: res.DocumentNo,
	}
}

// CheckMovementResponse is one recorded transition.
type CheckMovementResponse struct {
	ID              string  `json:"id"`
	Operation       string  `json:"operation"`
	FromStatus      string  `json:"fromStatus"`
	ToStatus        string  `json:"toStatus"`
	DocumentID      string  `json:"documentId"`
	TargetAccountID *string `json:"targetAccountId,omitempty"`
	Date            string  `json:"date"`
}

// FromMovements converts a check history.
func FromMovements(moves []entity.CheckMovement) []CheckMovementResponse {
	out := make([]CheckMovementResponse, 0, len(moves))
	for i := range moves {
		m := &moves[i]
		out = append(out, CheckMovementResponse{
			ID:              m.ID.String(),
			Operation:       string(m.Operation),
			FromStatus:      string(m.FromStatus),
			ToStatus:        string(m.ToStatus),
			DocumentID:      m.DocumentID.String(),
			TargetAccountID: optionalID(m.TargetAccountID),
			Date:            m.Date.Format(dateLayout),
		})
	}
	return out
}
