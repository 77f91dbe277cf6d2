package entity

import (
	"time"

	"treasury/internal/core/id"
	"treasury/internal/core/types"
)

// CheckDirection distinguishes checks we received from checks we wrote.
type CheckDirection string

const (
	CheckReceived CheckDirection = "received"
	CheckIssued   CheckDirection = "issued"
)

// Valid reports whether d is a known direction.
func (d CheckDirection) Valid() bool {
	return d == CheckReceived || d == CheckIssued
}

// CheckStatus is the lifecycle state of a check.
type CheckStatus string

const (
	CheckPending   CheckStatus = "pending"
	CheckDeposited CheckStatus = "deposited"
	CheckCleared   CheckStatus = "cleared"
	CheckBounced   CheckStatus = "bounced"
	CheckSpent     CheckStatus = "spent"
	CheckReturned  CheckStatus = "returned"
)

// CheckStatuses lists every status in lifecycle order.
var CheckStatuses = []CheckStatus{
	CheckPending, CheckDeposited, CheckCleared, CheckBounced, CheckSpent, CheckReturned,
}

// Valid reports whether s is a known status.
func (s CheckStatus) Valid() bool {
	switch s {
	case CheckPending, CheckDeposited, CheckCleared, CheckBounced, CheckSpent, CheckReturned:
		return true
	}
	return false
}

// Terminal reports whether no further operation is possible.
func (s CheckStatus) Terminal() bool {
	switch s {
	case CheckCleared, CheckBounced, CheckSpent, CheckReturned:
		return true
	}
	return false
}

// Check is a received or issued check.
// Checks are never deleted; terminal statuses archive them.
type Check struct {
	BaseEntity
	Versioned

	Direction CheckDirection `db:"direction" json:"direction"`
	ChequeNo  string         `db:"cheque_no" json:"chequeNo"`

	// NationalTrackingCode is the sayadi identifier, required for received checks.
	NationalTrackingCode *string `db:"national_tracking_code" json:"nationalTrackingCode,omitempty"`

	BankName string           `db:"bank_name" json:"bankName"`
	DueDate  time.Time        `db:"due_date" json:"dueDate"`
	Amount   types.MinorUnits `db:"amount" json:"amount"`
	Status   CheckStatus      `db:"status" json:"status"`

	// OwnerAccountID is the payer (received) or payee (issued).
	OwnerAccountID id.ID `db:"owner_account_id" json:"ownerAccountId"`

	// DepositBankID is set by the deposit transition.
	DepositBankID *id.ID `db:"deposit_bank_id" json:"depositBankId,omitempty"`

	// CheckbookID and Serial are set only for issued checks.
	CheckbookID *id.ID `db:"checkbook_id" json:"checkbookId,omitempty"`
	Serial      *int64 `db:"serial_no" json:"serial,omitempty"`

	// SourceDocumentID is the document that recorded receipt or issuance.
	SourceDocumentID id.ID `db:"source_document_id" json:"sourceDocumentId"`
}

// CheckOperation is a lifecycle operation applied to a check.
type CheckOperation string

const (
	OpDeposit CheckOperation = "deposit"
	OpSpend   CheckOperation = "spend"
	OpClear   CheckOperation = "clear"
	OpBounce  CheckOperation = "bounce"
	OpReturn  CheckOperation = "return"
)

// CheckOperations lists every operation.
var CheckOperations = []CheckOperation{OpDeposit, OpSpend, OpClear, OpBounce, OpReturn}

// Valid reports whether op is a known operation.
func (op CheckOperation) Valid() bool {
	switch op {
	case OpDeposit, OpSpend, OpClear, OpBounce, OpReturn:
		return true
	}
	return false
}

// CheckMovement is one row of a check's status history.
type CheckMovement struct {
	ID              id.ID          `db:"id" json:"id"`
	CheckID         id.ID          `db:"check_id" json:"checkId"`
	Operation       CheckOperation `db:"operation" json:"operation"`
	FromStatus      CheckStatus    `db:"from_status" json:"fromStatus"`
	ToStatus        CheckStatus    `db:"to_status" json:"toStatus"`
	DocumentID      id.ID          `db:"document_id" json:"documentId"`
	TargetAccountID *id.ID         `db:"target_account_id" json:"targetAccountId,omitempty"`
	Date            time.Time      `db:"date" json:"date"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}
