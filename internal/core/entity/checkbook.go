package entity

import (
	"treasury/internal/core/id"
)

// CheckbookStatus is the allocation state of a checkbook.
type CheckbookStatus string

const (
	CheckbookActive    CheckbookStatus = "active"
	CheckbookExhausted CheckbookStatus = "exhausted"
	CheckbookCancelled CheckbookStatus = "cancelled"
)

// Checkbook is a contiguous serial range of blank checks drawn on one bank account.
type Checkbook struct {
	BaseEntity

	BankAccountID id.ID           `db:"bank_account_id" json:"bankAccountId"`
	Title         string          `db:"title" json:"title"`
	SerialStart   int64           `db:"serial_start" json:"serialStart"`
	SerialEnd     int64           `db:"serial_end" json:"serialEnd"`
	Status        CheckbookStatus `db:"status" json:"status"`
}

// Contains reports whether serial lies inside the checkbook range.
func (c *Checkbook) Contains(serial int64) bool {
	return serial >= c.SerialStart && serial <= c.SerialEnd
}

// Size returns the number of serials in the range.
func (c *Checkbook) Size() int64 {
	return c.SerialEnd - c.SerialStart + 1
}
