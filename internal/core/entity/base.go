package entity

import (
	"time"

	"treasury/internal/core/id"
)

// BaseEntity contains common fields for all persisted records.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// CreatedAt is set once when the record is first persisted
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:        id.New(),
		CreatedAt: time.Now().UTC(),
	}
}

// Versioned adds optimistic locking fields to mutable records.
type Versioned struct {
	// Version is incremented on each state change
	Version int `db:"version" json:"version"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Touch increments version and updates the timestamp.
func (v *Versioned) Touch(now time.Time) {
	v.Version++
	v.UpdatedAt = now
}
