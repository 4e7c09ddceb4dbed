// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// FeeDetail is the itemized snapshot of one fee included in an invoice.
type FeeDetail struct {
	FeeID         snowflake.ID    `json:"fee_id"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Rate          decimal.Decimal `json:"rate"`
	PaymentMethod string          `json:"payment_method"`
	OrderDate     time.Time       `json:"order_date"`
}

// Invoice is the immutable aggregation of one closed cycle's fees. The
// unique (store_id, cycle_end) index makes cycle settlement race-safe: two
// runs closing the same window cannot both insert.
type Invoice struct {
	ID         snowflake.ID                     `gorm:"primaryKey"`
	StoreID    snowflake.ID                     `gorm:"not null;index;uniqueIndex:ux_invoices_store_cycle,priority:1"`
	Total      decimal.Decimal                  `gorm:"type:numeric(12,2);not null"`
	Status     InvoiceStatus                    `gorm:"type:text;not null;default:'PENDING'"`
	CycleStart time.Time                        `gorm:"not null"`
	CycleEnd   time.Time                        `gorm:"not null;uniqueIndex:ux_invoices_store_cycle,priority:2"`
	DueAt      time.Time                        `gorm:"not null;index"`
	FeeIDs     datatypes.JSONSlice[int64]       `gorm:"not null"`
	Details    datatypes.JSONType[[]FeeDetail]  `gorm:"not null"`
	CreatedAt  time.Time                        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Aggregation is a candidate invoice before it is committed.
type Aggregation struct {
	Total   decimal.Decimal
	FeeIDs  []snowflake.ID
	Details []FeeDetail
}

// Empty reports whether there is nothing to bill.
func (a Aggregation) Empty() bool {
	return len(a.FeeIDs) == 0 || a.Total.IsZero()
}
