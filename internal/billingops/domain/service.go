// Package domain defines the administrative billing operations exposed to
// support tooling.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	notificationdomain "github.com/pedidoz/billing/internal/notification/domain"
	"github.com/shopspring/decimal"
)

// FeeCheck summarizes a store's unsettled ledger for diagnostics.
type FeeCheck struct {
	StoreID         snowflake.ID
	UnsettledCount  int64
	UnsettledTotal  decimal.Decimal
	EarliestOrder   *time.Time
	OpenCycle       *billingcycledomain.Cycle
	NextBillingDate *time.Time
}

type Service interface {
	// CheckStoreFees reports what the pipeline would see for a store,
	// without writing anything.
	CheckStoreFees(ctx context.Context, storeID snowflake.ID) (FeeCheck, error)

	// InitializeBillingControl creates the cycle pointer for a store that
	// has never billed, anchored at the given date.
	InitializeBillingControl(ctx context.Context, storeID snowflake.ID, anchor time.Time) error

	// BroadcastAnnouncement delivers an operator announcement to many
	// store inboxes.
	BroadcastAnnouncement(ctx context.Context, storeIDs []snowflake.ID, msg notificationdomain.Announcement) (notificationdomain.BroadcastResult, error)
}
