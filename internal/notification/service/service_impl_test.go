package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	notificationdomain "github.com/pedidoz/billing/internal/notification/domain"
	"github.com/pedidoz/billing/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (notificationdomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&notificationdomain.Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		db:    db,
		log:   zap.NewNop(),
		genID: node,
		clock: clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
		cfg:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),

		notificationrepo: repository.ProvideStore[notificationdomain.Notification](db),
	}
	return svc, db
}

func TestInvoiceCreatedWritesInboxRecord(t *testing.T) {
	svc, db := newTestService(t)

	req := notificationdomain.InvoiceCreatedRequest{
		StoreID:   snowflake.ID(30),
		InvoiceID: snowflake.ID(3001),
		Total:     decimal.RequireFromString("25.50"),
		DueAt:     time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.InvoiceCreated(context.Background(), req))

	var record notificationdomain.Notification
	require.NoError(t, db.First(&record, "store_id = ?", req.StoreID).Error)
	assert.Equal(t, notificationdomain.NotificationTypeInvoiceCreated, record.Type)
	require.NotNil(t, record.InvoiceID)
	assert.Equal(t, req.InvoiceID, *record.InvoiceID)
	assert.Contains(t, record.Message, "25.50")
	assert.Contains(t, record.Message, "08/04/2024")
	assert.False(t, record.Read)
}

func TestInvoiceCreatedDedupesPerInvoice(t *testing.T) {
	svc, db := newTestService(t)

	req := notificationdomain.InvoiceCreatedRequest{
		StoreID:   snowflake.ID(31),
		InvoiceID: snowflake.ID(3101),
		Total:     decimal.NewFromInt(10),
		DueAt:     time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC),
	}

	// Retried deliveries for the same invoice must stay a single record.
	require.NoError(t, svc.InvoiceCreated(context.Background(), req))
	require.NoError(t, svc.InvoiceCreated(context.Background(), req))

	var count int64
	require.NoError(t, db.Model(&notificationdomain.Notification{}).
		Where("invoice_id = ?", req.InvoiceID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBroadcastDeliversToAllStores(t *testing.T) {
	svc, db := newTestService(t)

	storeIDs := []snowflake.ID{40, 41, 42, 43, 44}
	result, err := svc.Broadcast(context.Background(), storeIDs, notificationdomain.Announcement{
		Title:   "Manutenção programada",
		Message: "O painel ficará indisponível no domingo.",
	})
	require.NoError(t, err)
	assert.Equal(t, len(storeIDs), result.Delivered)
	assert.Empty(t, result.Failed)

	var count int64
	require.NoError(t, db.Model(&notificationdomain.Notification{}).
		Where("type = ?", notificationdomain.NotificationTypeAnnouncement).
		Count(&count).Error)
	assert.EqualValues(t, len(storeIDs), count)
}

func TestBroadcastCollectsFailures(t *testing.T) {
	svc, db := newTestService(t)

	// Closing the pool makes every insert fail; the fan-out must report the
	// stores instead of erroring out.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	storeIDs := []snowflake.ID{50, 51}
	result, err := svc.Broadcast(context.Background(), storeIDs, notificationdomain.Announcement{
		Title:   "t",
		Message: "m",
	})
	require.NoError(t, err)
	assert.Zero(t, result.Delivered)
	assert.ElementsMatch(t, storeIDs, result.Failed)
}
