package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service resolves the currently open cycle for a store.
type Service interface {
	// Resolve returns the open cycle window, anchored on the store's latest
	// invoice or, for a first cycle, on its earliest unsettled fee. A nil
	// cycle means the store has no fee history and nothing to do.
	Resolve(ctx context.Context, storeID snowflake.ID) (*Cycle, error)
}

var (
	ErrInvalidCyclePeriod = errors.New("invalid_cycle_period")
	ErrControlExists      = errors.New("billing_control_exists")
)
