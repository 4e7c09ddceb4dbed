package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type workStore struct {
	StoreID snowflake.ID
}

// claimDueStores fetches stores whose next billing date has elapsed, inside
// a short transaction so concurrent scheduler instances skip each other's
// batches. Keyset pagination on store_id keeps a store that fails (or has
// nothing to bill) from being refetched within the same run.
func (s *Scheduler) claimDueStores(ctx context.Context, now time.Time, after snowflake.ID, limit int) ([]snowflake.ID, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var rows []workStore
	err := s.db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		return tx.WithContext(claimCtx).Raw(
			`SELECT store_id
			 FROM billing_controls
			 WHERE next_billing_date <= ? AND store_id > ?
			 ORDER BY store_id
			 LIMIT ?
			 FOR UPDATE SKIP LOCKED`,
			now,
			after,
			limit,
		).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return storeIDs(rows), nil
}

// fetchUncontrolledStores lists stores that have unsettled fees older than a
// full cycle but no billing control yet. No row lock is taken: the unique
// invoice index makes a racing first settlement fail cleanly.
func (s *Scheduler) fetchUncontrolledStores(ctx context.Context, cutoff time.Time, after snowflake.ID, limit int) ([]snowflake.ID, error) {
	var rows []workStore
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT f.store_id
		 FROM app_fees f
		 WHERE f.settled = ? AND f.order_date <= ? AND f.store_id > ?
		   AND NOT EXISTS (
		     SELECT 1 FROM billing_controls c WHERE c.store_id = f.store_id
		   )
		 ORDER BY f.store_id
		 LIMIT ?`,
		false,
		cutoff,
		after,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return storeIDs(rows), nil
}

func storeIDs(rows []workStore) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StoreID)
	}
	return ids
}
