package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	"github.com/pedidoz/billing/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&feedomain.AppFee{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		db:      db,
		log:     zap.NewNop(),
		feerepo: repository.ProvideStore[feedomain.AppFee](db),
	}
	return svc, db, node
}

func seedFee(t *testing.T, db *gorm.DB, node *snowflake.Node, storeID snowflake.ID, orderDate time.Time, settled bool) feedomain.AppFee {
	t.Helper()
	fee := feedomain.AppFee{
		ID:        node.Generate(),
		StoreID:   storeID,
		OrderID:   "order-" + node.Generate().String(),
		Amount:    decimal.NewFromInt(10),
		Rate:      decimal.NewFromInt(10),
		OrderDate: orderDate,
		Settled:   settled,
		CreatedAt: orderDate,
	}
	require.NoError(t, db.Create(&fee).Error)
	return fee
}

func TestListUnsettledInWindowBoundaries(t *testing.T) {
	svc, db, node := newTestService(t)

	storeID := snowflake.ID(10)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)

	onStart := seedFee(t, db, node, storeID, start, false)
	inside := seedFee(t, db, node, storeID, start.AddDate(0, 0, 10), false)
	onEnd := seedFee(t, db, node, storeID, end, false)
	after := seedFee(t, db, node, storeID, end.Add(time.Second), false)

	fees, err := svc.ListUnsettledInWindow(context.Background(), storeID, start, end)
	require.NoError(t, err)
	require.Len(t, fees, 2)

	// Exclusive start, inclusive end.
	assert.Equal(t, inside.ID, fees[0].ID)
	assert.Equal(t, onEnd.ID, fees[1].ID)
	for _, fee := range fees {
		assert.NotEqual(t, onStart.ID, fee.ID)
		assert.NotEqual(t, after.ID, fee.ID)
	}
}

func TestListUnsettledInWindowFilters(t *testing.T) {
	svc, db, node := newTestService(t)

	storeID := snowflake.ID(11)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	inside := start.AddDate(0, 0, 5)

	want := seedFee(t, db, node, storeID, inside, false)
	seedFee(t, db, node, storeID, inside, true)           // already settled
	seedFee(t, db, node, snowflake.ID(99), inside, false) // other store

	fees, err := svc.ListUnsettledInWindow(context.Background(), storeID, start, end)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, want.ID, fees[0].ID)
}

func TestEarliestUnsettled(t *testing.T) {
	svc, db, node := newTestService(t)

	storeID := snowflake.ID(12)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	seedFee(t, db, node, storeID, base, false)
	earliest := seedFee(t, db, node, storeID, base.AddDate(0, 0, -5), false)
	seedFee(t, db, node, storeID, base.AddDate(0, 0, -9), true)

	fee, err := svc.EarliestUnsettled(context.Background(), storeID)
	require.NoError(t, err)
	require.NotNil(t, fee)
	assert.Equal(t, earliest.ID, fee.ID)

	missing, err := svc.EarliestUnsettled(context.Background(), snowflake.ID(13))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCountUnsettled(t *testing.T) {
	svc, db, node := newTestService(t)

	storeID := snowflake.ID(14)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedFee(t, db, node, storeID, base, false)
	seedFee(t, db, node, storeID, base.AddDate(0, 0, 1), false)
	seedFee(t, db, node, storeID, base.AddDate(0, 0, 2), true)

	count, err := svc.CountUnsettled(context.Background(), storeID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
