package models

import "time"

// SaleStatus tracks the payment lifecycle of a sale.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Sale is a purchase made by a student. Only completed sales count toward
// teacher earnings.
type Sale struct {
	ID        string     `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student"`
	Amount    float64    `db:"amount" json:"amount"`
	Status    SaleStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	StudentID string
	Status    SaleStatus
}
