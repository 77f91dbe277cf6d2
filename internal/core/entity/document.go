package entity

import (
	"time"

	"treasury/internal/core/id"
	"treasury/internal/core/types"
)

// DocumentKind records which operation produced a ledger document.
type DocumentKind string

const (
	DocumentKindManual         DocumentKind = "manual"
	DocumentKindReceive        DocumentKind = "receive"
	DocumentKindPay            DocumentKind = "pay"
	DocumentKindCheckOperation DocumentKind = "check_operation"
	DocumentKindReversal       DocumentKind = "reversal"
)

// NumberPrefix returns the numerator prefix for documents of this kind.
func (k DocumentKind) NumberPrefix() string {
	switch k {
	case DocumentKindReceive:
		return "RCV"
	case DocumentKindPay:
		return "PAY"
	case DocumentKindCheckOperation:
		return "CHK"
	case DocumentKindReversal:
		return "REV"
	default:
		return "JRN"
	}
}

// Document is a balanced group of ledger entries.
// Documents and their entries are immutable once persisted; corrections
// are made by appending an offsetting document.
type Document struct {
	BaseEntity

	// Number is the human-facing document number (documentNo)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	Description string       `db:"description" json:"description"`
	ManualNo    *string      `db:"manual_no" json:"manualNo,omitempty"`
	Kind        DocumentKind `db:"kind" json:"kind"`

	// TotalAmount equals the sum of entry debits
	TotalAmount types.MinorUnits `db:"total_amount" json:"totalAmount"`

	// ReversalOf links a reversal to the document it offsets
	ReversalOf *id.ID `db:"reversal_of" json:"reversalOf,omitempty"`

	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`

	// Entries are loaded separately
	Entries []Entry `db:"-" json:"entries,omitempty"`
}

// Entry is one leg of a double-entry document (bed or bes).
// Exactly one of Debit/Credit is positive.
type Entry struct {
	ID          id.ID            `db:"id" json:"id"`
	DocumentID  id.ID            `db:"document_id" json:"documentId"`
	LineNo      int              `db:"line_no" json:"lineNo"`
	AccountID   id.ID            `db:"account_id" json:"accountId"`
	Debit       types.MinorUnits `db:"debit" json:"debit"`
	Credit      types.MinorUnits `db:"credit" json:"credit"`
	Description string           `db:"description" json:"description"`
}

// Debit creates a debit leg against accountID.
func Debit(accountID id.ID, amount types.MinorUnits, description string) Entry {
	return Entry{AccountID: accountID, Debit: amount, Description: description}
}

// Credit creates a credit leg against accountID.
func Credit(accountID id.ID, amount types.MinorUnits, description string) Entry {
	return Entry{AccountID: accountID, Credit: amount, Description: description}
}

// Net returns debit minus credit.
func (e Entry) Net() types.MinorUnits {
	return e.Debit - e.Credit
}

// Mirror returns the offsetting leg (debit and credit swapped).
func (e Entry) Mirror() Entry {
	return Entry{
		AccountID:   e.AccountID,
		Debit:       e.Credit,
		Credit:      e.Debit,
		Description: e.Description,
	}
}

// PostedEntry is an entry together with the ordering keys of its document.
type PostedEntry struct {
	Entry
	DocumentDate   time.Time `db:"document_date" json:"documentDate"`
	DocumentNumber string    `db:"document_number" json:"documentNumber"`
}
