// Package domain contains the store inbox models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type NotificationType string

const (
	NotificationTypeInvoiceCreated NotificationType = "invoice_created"
	NotificationTypeAnnouncement   NotificationType = "announcement"
)

// Notification is one append-only inbox record for a store. The unique
// invoice_id index keeps invoice notifications to at most one per invoice.
type Notification struct {
	ID        snowflake.ID     `gorm:"primaryKey"`
	StoreID   snowflake.ID     `gorm:"not null;index"`
	Type      NotificationType `gorm:"type:text;not null"`
	Title     string           `gorm:"type:text;not null"`
	Message   string           `gorm:"type:text;not null"`
	InvoiceID *snowflake.ID    `gorm:"uniqueIndex:ux_notifications_invoice"`
	Amount    decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0"`
	DueAt     *time.Time       `gorm:""`
	Read      bool             `gorm:"not null;default:false"`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
