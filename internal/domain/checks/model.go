package checks

import (
	"strconv"
	"strings"
	"time"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
)

// ReceivedInput carries the fields of a check handed to us.
type ReceivedInput struct {
	ChequeNo             string
	NationalTrackingCode string
	BankName             string
	DueDate              time.Time
	Amount               types.MinorUnits
}

// IssuedInput carries the fields of a check written from our checkbook.
type IssuedInput struct {
	CheckbookID          id.ID
	Serial               int64
	NationalTrackingCode string
	DueDate              time.Time
	Amount               types.MinorUnits
}

// NewReceivedCheck validates in and builds a pending received check owned by the payer.
func NewReceivedCheck(in ReceivedInput, ownerID id.ID) (*entity.Check, error) {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(in.ChequeNo) == "" {
		missing = append(missing, "chequeNo")
	}
	if strings.TrimSpace(in.NationalTrackingCode) == "" {
		missing = append(missing, "nationalTrackingCode")
	}
	if strings.TrimSpace(in.BankName) == "" {
		missing = append(missing, "bankName")
	}
	if in.DueDate.IsZero() {
		missing = append(missing, "dueDate")
	}
	if len(missing) > 0 {
		return nil, apperror.NewValidation("received check is incomplete").WithDetail("missing", missing)
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("check amount must be positive").WithDetail("amount", in.Amount)
	}

	code := strings.TrimSpace(in.NationalTrackingCode)
	return newCheck(entity.CheckReceived, strings.TrimSpace(in.ChequeNo), &code, strings.TrimSpace(in.BankName),
		in.DueDate, in.Amount, ownerID), nil
}

// NewIssuedCheck validates in and builds a pending check drawn on cb, payable to ownerID.
func NewIssuedCheck(in IssuedInput, cb *entity.Checkbook, bankName string, ownerID id.ID) (*entity.Check, error) {
	if in.DueDate.IsZero() {
		return nil, apperror.NewValidation("issued check requires a due date").WithDetail("field", "dueDate")
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("check amount must be positive").WithDetail("amount", in.Amount)
	}

	var code *string
	if c := strings.TrimSpace(in.NationalTrackingCode); c != "" {
		code = &c
	}

	chk := newCheck(entity.CheckIssued, strconv.FormatInt(in.Serial, 10), code, bankName,
		in.DueDate, in.Amount, ownerID)
	checkbookID := cb.ID
	serial := in.Serial
	chk.CheckbookID = &checkbookID
	chk.Serial = &serial
	return chk, nil
}

func newCheck(dir entity.CheckDirection, chequeNo string, code *string, bankName string,
	due time.Time, amount types.MinorUnits, ownerID id.ID) *entity.Check {
	base := entity.NewBaseEntity()
	return &entity.Check{
		BaseEntity:           base,
		Versioned:            entity.Versioned{Version: 1, UpdatedAt: base.CreatedAt},
		Direction:            dir,
		ChequeNo:             chequeNo,
		NationalTrackingCode: code,
		BankName:             bankName,
		DueDate:              types.DateOf(due),
		Amount:               amount,
		Status:               entity.CheckPending,
		OwnerAccountID:       ownerID,
	}
}
