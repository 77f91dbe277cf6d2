package entity

import (
	"treasury/internal/core/id"
)

// AccountKind classifies what a ledger account (tafsili) stands for.
type AccountKind string

const (
	AccountKindPerson AccountKind = "person"
	AccountKindBank   AccountKind = "bank"
	AccountKindCash   AccountKind = "cash"
	AccountKindPOS    AccountKind = "pos"
	// AccountKindSystem marks control accounts owned by the engine itself.
	AccountKindSystem AccountKind = "system"
)

// Valid reports whether k is a known kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindPerson, AccountKindBank, AccountKindCash, AccountKindPOS, AccountKindSystem:
		return true
	}
	return false
}

// SystemAccount names a control account provisioned by the engine.
type SystemAccount string

const (
	SystemChecksOnHand       SystemAccount = "checks_on_hand"
	SystemChecksInCollection SystemAccount = "checks_in_collection"
	SystemChecksPayable      SystemAccount = "checks_payable"
	SystemDishonoredChecks   SystemAccount = "dishonored_checks"
	SystemCashOnHand         SystemAccount = "cash_on_hand"
)

// Title returns the display title of a control account.
func (s SystemAccount) Title() string {
	switch s {
	case SystemChecksOnHand:
		return "Checks on hand"
	case SystemChecksInCollection:
		return "Checks in collection"
	case SystemChecksPayable:
		return "Checks payable"
	case SystemDishonoredChecks:
		return "Dishonored checks"
	case SystemCashOnHand:
		return "Cash on hand"
	default:
		return string(s)
	}
}

// Account is the finest-grained ledger account a document entry can reference.
// Only Active and HasDishonored change after creation.
type Account struct {
	BaseEntity

	Title string      `db:"title" json:"title"`
	Code  string      `db:"code" json:"code"`
	Kind  AccountKind `db:"kind" json:"kind"`

	// RefID points into the external directory entity (customer, bank, cash box, terminal).
	RefID string `db:"ref_id" json:"refId"`

	Active bool `db:"active" json:"active"`

	// HasDishonored is set once a check owned by this account bounces.
	HasDishonored bool `db:"has_dishonored" json:"hasDishonored"`
}

// NewAccount creates an active account for a directory entity.
func NewAccount(kind AccountKind, refID, title string) *Account {
	return &Account{
		BaseEntity: NewBaseEntity(),
		Title:      title,
		Kind:       kind,
		RefID:      refID,
		Active:     true,
	}
}

// AccountRef identifies an account either directly or through its directory entity.
type AccountRef struct {
	AccountID id.ID
	Kind      AccountKind
	RefID     string
	// Title enables lazy provisioning when no account exists for Kind/RefID yet.
	Title string
}

// IsZero reports whether the reference carries nothing to resolve.
func (r AccountRef) IsZero() bool {
	return id.IsNil(r.AccountID) && r.RefID == ""
}

// RefByID builds a reference to an already known account.
func RefByID(accountID id.ID) AccountRef {
	return AccountRef{AccountID: accountID}
}
