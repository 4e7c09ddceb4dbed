package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	invoicedomain "github.com/pedidoz/billing/internal/invoice/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   *config.BillingConfigHolder
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   *config.BillingConfigHolder
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Cfg,
	}
}

func (s *Service) Aggregate(_ context.Context, fees []feedomain.AppFee) invoicedomain.Aggregation {
	return Aggregate(s.log, fees)
}

func (s *Service) SettleCycle(ctx context.Context, req invoicedomain.SettleCycleRequest) (*invoicedomain.Invoice, error) {
	if !req.Cycle.End.After(req.Cycle.Start) {
		return nil, invoicedomain.ErrInvalidCycle
	}
	if req.Aggregation.Empty() {
		return nil, invoicedomain.ErrNothingToBill
	}

	cfg := s.cfg.Get()
	now := s.clock.Now()

	invoice := invoicedomain.Invoice{
		ID:         s.genID.Generate(),
		StoreID:    req.StoreID,
		Total:      req.Aggregation.Total,
		Status:     invoicedomain.InvoiceStatusPending,
		CycleStart: req.Cycle.Start,
		CycleEnd:   req.Cycle.End,
		DueAt:      now.AddDate(0, 0, cfg.GraceDays),
		FeeIDs: datatypes.NewJSONSlice(lo.Map(req.Aggregation.FeeIDs, func(id snowflake.ID, _ int) int64 {
			return int64(id)
		})),
		Details:   datatypes.NewJSONType(req.Aggregation.Details),
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		if err := s.settleFees(ctx, tx, req.Aggregation.FeeIDs, req.Cycle.End); err != nil {
			return err
		}

		return s.advanceControl(ctx, tx, req, now, cfg.CyclePeriodDays)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice.created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("store_id", req.StoreID.String()),
		zap.String("total", invoice.Total.String()),
		zap.Time("cycle_start", invoice.CycleStart),
		zap.Time("cycle_end", invoice.CycleEnd),
		zap.Time("due_at", invoice.DueAt),
		zap.Int("fee_count", len(req.Aggregation.FeeIDs)),
	)
	return &invoice, nil
}

// settleFees flips the included fees and stamps them with the cycle close
// date. The settled = false filter plus the rows-affected check make the
// unsettled -> settled transition one-way: if any fee was already settled by
// a concurrent run the whole transaction rolls back.
func (s *Service) settleFees(ctx context.Context, tx *gorm.DB, feeIDs []snowflake.ID, closedAt time.Time) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE app_fees
		 SET settled = ?, settled_at = ?
		 WHERE id IN ? AND settled = ?`,
		true, closedAt, feeIDs, false,
	)
	if res.Error != nil {
		return fmt.Errorf("settle fees: %w", res.Error)
	}
	if res.RowsAffected != int64(len(feeIDs)) {
		return invoicedomain.ErrFeeAlreadySettled
	}
	return nil
}

func (s *Service) advanceControl(ctx context.Context, tx *gorm.DB, req invoicedomain.SettleCycleRequest, now time.Time, periodDays int) error {
	control := billingcycledomain.BillingControl{
		ID:               s.genID.Generate(),
		StoreID:          req.StoreID,
		LastBillingDate:  req.Cycle.End,
		NextBillingDate:  req.Cycle.End.AddDate(0, 0, periodDays),
		TotalLastInvoice: req.Aggregation.Total,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_billing_date":  control.LastBillingDate,
			"next_billing_date":  control.NextBillingDate,
			"total_last_invoice": control.TotalLastInvoice,
			"updated_at":         now,
		}),
	}).Create(&control).Error
	if err != nil {
		return fmt.Errorf("advance billing control: %w", err)
	}
	return nil
}

func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?
		 WHERE status = ? AND due_at < ?`,
		invoicedomain.InvoiceStatusOverdue,
		invoicedomain.InvoiceStatusPending,
		now,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
