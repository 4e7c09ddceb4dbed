package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedRequest describes the invoice a store should be told about.
type InvoiceCreatedRequest struct {
	StoreID   snowflake.ID
	InvoiceID snowflake.ID
	Total     decimal.Decimal
	DueAt     time.Time
}

// Announcement is a broadcast payload delivered to many stores.
type Announcement struct {
	Title   string
	Message string
}

// BroadcastResult collects partial fan-out failures; a failed store does not
// abort delivery to the others.
type BroadcastResult struct {
	Delivered int
	Failed    []snowflake.ID
}

// Service writes best-effort records into store inboxes.
type Service interface {
	// InvoiceCreated writes the one-time invoice notification. A duplicate
	// for the same invoice is a no-op, not an error.
	InvoiceCreated(ctx context.Context, req InvoiceCreatedRequest) error

	// Broadcast fans an announcement out to the given stores with bounded
	// concurrency, returning which stores failed.
	Broadcast(ctx context.Context, storeIDs []snowflake.ID, msg Announcement) (BroadcastResult, error)
}
