// Package domain contains persistence models for the platform-fee ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AppFee is one marketplace order's platform commission. Fee records are
// authored by order processing; this service only flips them to settled.
type AppFee struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	StoreID       snowflake.ID    `gorm:"not null;index:ix_app_fees_store_order_date,priority:1"`
	OrderID       string          `gorm:"type:text;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Rate          decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	PaymentMethod string          `gorm:"type:text;not null;default:''"`
	OrderDate     time.Time       `gorm:"not null;index:ix_app_fees_store_order_date,priority:2"`
	Settled       bool            `gorm:"not null;default:false"`
	SettledAt     *time.Time      `gorm:""`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AppFee) TableName() string { return "app_fees" }
