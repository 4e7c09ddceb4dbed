package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
)

// SettleCycleRequest carries everything the committer needs to close a cycle.
type SettleCycleRequest struct {
	StoreID     snowflake.ID
	Cycle       billingcycledomain.Cycle
	Aggregation Aggregation
}

// Service owns invoice creation and the settled flag on fees.
type Service interface {
	// Aggregate reduces a cycle's fees into a candidate invoice, skipping
	// malformed records instead of failing.
	Aggregate(ctx context.Context, fees []feedomain.AppFee) Aggregation

	// SettleCycle atomically creates the invoice, marks the aggregated fees
	// settled, and advances the store's billing control. Either all three
	// effects land or none do.
	SettleCycle(ctx context.Context, req SettleCycleRequest) (*Invoice, error)

	// MarkOverdue flips pending invoices past their due date to overdue and
	// returns how many were updated.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

var (
	ErrNothingToBill     = errors.New("nothing_to_bill")
	ErrFeeAlreadySettled = errors.New("fee_already_settled")
	ErrInvalidCycle      = errors.New("invalid_cycle")
)
