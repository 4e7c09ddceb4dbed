package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	billingcycleservice "github.com/pedidoz/billing/internal/billingcycle/service"
	billingopsdomain "github.com/pedidoz/billing/internal/billingops/domain"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	feeservice "github.com/pedidoz/billing/internal/fee/service"
	invoicedomain "github.com/pedidoz/billing/internal/invoice/domain"
	notificationdomain "github.com/pedidoz/billing/internal/notification/domain"
	notificationservice "github.com/pedidoz/billing/internal/notification/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (billingopsdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&feedomain.AppFee{},
		&billingcycledomain.BillingControl{},
		&invoicedomain.Invoice{},
		&notificationdomain.Notification{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())

	feeSvc := feeservice.NewService(feeservice.ServiceParam{DB: db, Log: log})
	cycleSvc := billingcycleservice.NewService(billingcycleservice.ServiceParam{
		DB: db, Log: log, FeeSvc: feeSvc, Cfg: holder,
	})
	notifySvc := notificationservice.NewService(notificationservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, Cfg: holder,
	})
	svc := NewService(ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Cfg:       holder,
		FeeSvc:    feeSvc,
		CycleSvc:  cycleSvc,
		NotifySvc: notifySvc,
	})
	return svc, db, node
}

func TestCheckStoreFeesSummarizesLedger(t *testing.T) {
	svc, db, node := newTestService(t)

	storeID := snowflake.ID(60)
	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, amount := range []string{"10.00", "15.00"} {
		require.NoError(t, db.Create(&feedomain.AppFee{
			ID:        node.Generate(),
			StoreID:   storeID,
			OrderID:   "order-" + node.Generate().String(),
			Amount:    decimal.RequireFromString(amount),
			Rate:      decimal.NewFromInt(10),
			OrderDate: day1.AddDate(0, 0, i),
			CreatedAt: day1.AddDate(0, 0, i),
		}).Error)
	}

	check, err := svc.CheckStoreFees(context.Background(), storeID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, check.UnsettledCount)
	assert.Equal(t, "25.00", check.UnsettledTotal.StringFixed(2))
	require.NotNil(t, check.EarliestOrder)
	assert.True(t, check.EarliestOrder.Equal(day1))
	require.NotNil(t, check.OpenCycle)
	assert.True(t, check.OpenCycle.Start.Before(day1))
	assert.Nil(t, check.NextBillingDate)
}

func TestCheckStoreFeesEmptyStore(t *testing.T) {
	svc, _, _ := newTestService(t)

	check, err := svc.CheckStoreFees(context.Background(), snowflake.ID(61))
	require.NoError(t, err)

	assert.Zero(t, check.UnsettledCount)
	assert.True(t, check.UnsettledTotal.IsZero())
	assert.Nil(t, check.EarliestOrder)
	assert.Nil(t, check.OpenCycle)
	assert.Nil(t, check.NextBillingDate)
}

func TestInitializeBillingControl(t *testing.T) {
	svc, db, _ := newTestService(t)

	storeID := snowflake.ID(62)
	anchor := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.InitializeBillingControl(context.Background(), storeID, anchor))

	var control billingcycledomain.BillingControl
	require.NoError(t, db.First(&control, "store_id = ?", storeID).Error)
	assert.True(t, control.LastBillingDate.Equal(anchor))
	assert.True(t, control.NextBillingDate.Equal(anchor.AddDate(0, 0, 30)))
	assert.True(t, control.TotalLastInvoice.IsZero())

	err := svc.InitializeBillingControl(context.Background(), storeID, anchor)
	require.ErrorIs(t, err, billingcycledomain.ErrControlExists)
}

func TestBroadcastAnnouncement(t *testing.T) {
	svc, db, _ := newTestService(t)

	storeIDs := []snowflake.ID{70, 71, 72}
	result, err := svc.BroadcastAnnouncement(context.Background(), storeIDs, notificationdomain.Announcement{
		Title:   "Nova tabela de taxas",
		Message: "A partir de maio a taxa padrão muda para 12%.",
	})
	require.NoError(t, err)
	assert.Equal(t, len(storeIDs), result.Delivered)

	var count int64
	require.NoError(t, db.Model(&notificationdomain.Notification{}).Count(&count).Error)
	assert.EqualValues(t, len(storeIDs), count)
}
