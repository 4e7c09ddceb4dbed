// Package domain contains the per-store billing cycle pointer.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BillingControl tracks the boundary of a store's last closed cycle. It is
// created on the store's first settlement (or by explicit initialization) and
// advances only when a cycle closes.
type BillingControl struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	StoreID          snowflake.ID    `gorm:"not null;uniqueIndex:ux_billing_controls_store"`
	LastBillingDate  time.Time       `gorm:"not null"`
	NextBillingDate  time.Time       `gorm:"not null;index"`
	TotalLastInvoice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingControl) TableName() string { return "billing_controls" }

// Cycle is a half-open billing window. Fees belong to a cycle when their
// order date falls in (Start, End].
type Cycle struct {
	Start time.Time
	End   time.Time
}
