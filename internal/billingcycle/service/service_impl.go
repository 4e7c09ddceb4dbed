package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	"github.com/pedidoz/billing/internal/config"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	FeeSvc feedomain.Service
	Cfg    *config.BillingConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	feeSvc feedomain.Service
	cfg    *config.BillingConfigHolder
}

func NewService(p ServiceParam) billingcycledomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("billingcycle.service"),
		feeSvc: p.FeeSvc,
		cfg:    p.Cfg,
	}
}

type lastInvoiceRow struct {
	ID       snowflake.ID
	CycleEnd time.Time
}

func (s *Service) Resolve(ctx context.Context, storeID snowflake.ID) (*billingcycledomain.Cycle, error) {
	periodDays := s.cfg.Get().CyclePeriodDays
	if periodDays <= 0 {
		return nil, billingcycledomain.ErrInvalidCyclePeriod
	}

	last, err := s.findLastInvoice(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		start := last.CycleEnd
		return &billingcycledomain.Cycle{Start: start, End: start.AddDate(0, 0, periodDays)}, nil
	}

	// First cycle: anchor on the earliest unsettled fee. The window opens
	// just before the fee so the (Start, End] boundary still includes it.
	earliest, err := s.feeSvc.EarliestUnsettled(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if earliest == nil {
		return nil, nil
	}
	start := earliest.OrderDate.Add(-time.Second)
	return &billingcycledomain.Cycle{Start: start, End: start.AddDate(0, 0, periodDays)}, nil
}

func (s *Service) findLastInvoice(ctx context.Context, storeID snowflake.ID) (*lastInvoiceRow, error) {
	var row lastInvoiceRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, cycle_end
		 FROM invoices
		 WHERE store_id = ?
		 ORDER BY cycle_end DESC
		 LIMIT 1`,
		storeID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}
