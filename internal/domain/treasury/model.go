package treasury

import (
	"time"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
	"treasury/internal/domain/checks"
)

// Direction of a treasury operation as seen from our side.
type Direction string

const (
	DirectionReceive Direction = "receive"
	DirectionPay     Direction = "pay"
)

// Method is the payment method of one line.
type Method string

const (
	MethodCash     Method = "cash"
	MethodPOS      Method = "pos"
	MethodTransfer Method = "transfer"
	MethodCheck    Method = "check"
)

// CheckMode selects how a check line is satisfied.
type CheckMode string

const (
	// CheckModeReceived records a check handed to us (receive only).
	CheckModeReceived CheckMode = "received"
	// CheckModeOwnCheckbook writes a check from one of our checkbooks (pay only).
	CheckModeOwnCheckbook CheckMode = "own_checkbook"
	// CheckModeSpend endorses a received pending check over to the payee (pay only).
	CheckModeSpend CheckMode = "spend"
)

// Header describes the whole operation.
type Header struct {
	Direction    Direction
	Counterparty entity.AccountRef
	Date         time.Time
	Description  string
	ManualNo     string
}

// Line is one payment-method line of the operation.
type Line struct {
	Method      Method
	Amount      types.MinorUnits
	Description string

	// Target is the cash box, POS terminal or bank account for non-check lines.
	Target entity.AccountRef

	CheckMode CheckMode
	Received  *checks.ReceivedInput
	Issued    *checks.IssuedInput
	// CheckID references an existing received check for CheckModeSpend.
	CheckID id.ID
}

// Result identifies the composed document.
type Result struct {
	DocumentID id.ID            `json:"documentId"`
	DocumentNo string           `json:"documentNo"`
	Total      types.MinorUnits `json:"totalAmount"`
	CheckIDs   []id.ID          `json:"checkIds,omitempty"`
}
