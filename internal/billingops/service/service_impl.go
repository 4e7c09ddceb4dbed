package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	billingopsdomain "github.com/pedidoz/billing/internal/billingops/domain"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	notificationdomain "github.com/pedidoz/billing/internal/notification/domain"
	"github.com/pedidoz/billing/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       *config.BillingConfigHolder
	FeeSvc    feedomain.Service
	CycleSvc  billingcycledomain.Service
	NotifySvc notificationdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       *config.BillingConfigHolder
	feeSvc    feedomain.Service
	cycleSvc  billingcycledomain.Service
	notifySvc notificationdomain.Service

	controlrepo repository.Repository[billingcycledomain.BillingControl]
}

func NewService(p ServiceParam) billingopsdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billingops.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Cfg,
		feeSvc:    p.FeeSvc,
		cycleSvc:  p.CycleSvc,
		notifySvc: p.NotifySvc,

		controlrepo: repository.ProvideStore[billingcycledomain.BillingControl](p.DB),
	}
}

func (s *Service) CheckStoreFees(ctx context.Context, storeID snowflake.ID) (billingopsdomain.FeeCheck, error) {
	check := billingopsdomain.FeeCheck{StoreID: storeID, UnsettledTotal: decimal.Zero}

	count, err := s.feeSvc.CountUnsettled(ctx, storeID)
	if err != nil {
		return check, err
	}
	check.UnsettledCount = count

	earliest, err := s.feeSvc.EarliestUnsettled(ctx, storeID)
	if err != nil {
		return check, err
	}
	if earliest != nil {
		orderDate := earliest.OrderDate
		check.EarliestOrder = &orderDate
	}

	cycle, err := s.cycleSvc.Resolve(ctx, storeID)
	if err != nil {
		return check, err
	}
	check.OpenCycle = cycle

	if cycle != nil {
		fees, err := s.feeSvc.ListUnsettledInWindow(ctx, storeID, cycle.Start, cycle.End)
		if err != nil {
			return check, err
		}
		for _, fee := range fees {
			check.UnsettledTotal = check.UnsettledTotal.Add(fee.Amount)
		}
		check.UnsettledTotal = check.UnsettledTotal.Round(2)
	}

	control, err := s.controlrepo.FindOne(ctx, &billingcycledomain.BillingControl{StoreID: storeID})
	if err != nil {
		return check, err
	}
	if control != nil {
		next := control.NextBillingDate
		check.NextBillingDate = &next
	}

	return check, nil
}

func (s *Service) InitializeBillingControl(ctx context.Context, storeID snowflake.ID, anchor time.Time) error {
	existing, err := s.controlrepo.FindOne(ctx, &billingcycledomain.BillingControl{StoreID: storeID})
	if err != nil {
		return err
	}
	if existing != nil {
		return billingcycledomain.ErrControlExists
	}

	periodDays := s.cfg.Get().CyclePeriodDays
	now := s.clock.Now()
	control := billingcycledomain.BillingControl{
		ID:               s.genID.Generate(),
		StoreID:          storeID,
		LastBillingDate:  anchor,
		NextBillingDate:  anchor.AddDate(0, 0, periodDays),
		TotalLastInvoice: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.controlrepo.Create(ctx, &control); err != nil {
		return err
	}

	s.log.Info("billing control initialized",
		zap.String("store_id", storeID.String()),
		zap.Time("anchor", anchor),
		zap.Time("next_billing_date", control.NextBillingDate),
	)
	return nil
}

func (s *Service) BroadcastAnnouncement(ctx context.Context, storeIDs []snowflake.ID, msg notificationdomain.Announcement) (notificationdomain.BroadcastResult, error) {
	return s.notifySvc.Broadcast(ctx, storeIDs, msg)
}
