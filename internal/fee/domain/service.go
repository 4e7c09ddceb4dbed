package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service reads the fee ledger. All windows use the cycle boundary
// convention order_date > start AND order_date <= end.
type Service interface {
	// ListUnsettledInWindow returns the store's unsettled fees inside the
	// window, ordered by order date. Settled fees are excluded even if a
	// caller passes a window that should not contain any.
	ListUnsettledInWindow(ctx context.Context, storeID snowflake.ID, start, end time.Time) ([]AppFee, error)

	// EarliestUnsettled returns the store's oldest unsettled fee, or nil if
	// the store has none.
	EarliestUnsettled(ctx context.Context, storeID snowflake.ID) (*AppFee, error)

	// CountUnsettled reports how many unsettled fees a store has.
	CountUnsettled(ctx context.Context, storeID snowflake.ID) (int64, error)
}
