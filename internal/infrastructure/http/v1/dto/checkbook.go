package dto

import "treasury/internal/core/entity"

// RegisterCheckbookRequest registers a checkbook of serials [serialStart, serialEnd].
type RegisterCheckbookRequest struct {
	BankAccountID string `json:"bankAccountId" binding:"required,uuid"`
	Title         string `json:"title" binding:"required,max=200"`
	SerialStart   int64  `json:"serialStart" binding:"required,gt=0"`
	SerialEnd     int64  `json:"serialEnd" binding:"required,gtefield=SerialStart"`
}

// CheckbookResponse is one checkbook.
type CheckbookResponse struct {
	ID            string `json:"id"`
	BankAccountID string `json:"bankAccountId"`
	Title         string `json:"title"`
	SerialStart   int64  `json:"serialStart"`
	SerialEnd     int64  `json:"serialEnd"`
	Status        string `json:"status"`
}

// FromCheckbook converts a checkbook.
func FromCheckbook(cb *entity.Checkbook) CheckbookResponse {
	return CheckbookResponse{
		ID:            cb.ID.String(),
		BankAccountID: cb.BankAccountID.String(),
		Title:         cb.Title,
		SerialStart:   cb.SerialStart,
		SerialEnd:     cb.SerialEnd,
		Status:        string(cb.Status),
	}
}

// SerialsResponse lists the unused serials of a checkbook.
type SerialsResponse struct {
	CheckbookID string  `json:"checkbookId"`
	Serials     []int64 `json:"serials"`
}
