package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	notificationdomain "github.com/pedidoz/billing/internal/notification/domain"
	"github.com/pedidoz/billing/pkg/db"
	"github.com/pedidoz/billing/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
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

	notificationrepo repository.Repository[notificationdomain.Notification]
}

func NewService(p ServiceParam) notificationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Cfg,

		notificationrepo: repository.ProvideStore[notificationdomain.Notification](p.DB),
	}
}

func (s *Service) InvoiceCreated(ctx context.Context, req notificationdomain.InvoiceCreatedRequest) error {
	now := s.clock.Now()
	invoiceID := req.InvoiceID
	dueAt := req.DueAt
	record := notificationdomain.Notification{
		ID:        s.genID.Generate(),
		StoreID:   req.StoreID,
		Type:      notificationdomain.NotificationTypeInvoiceCreated,
		Title:     "Nova fatura disponível",
		Message:   fmt.Sprintf("Sua fatura de R$ %s foi gerada com vencimento em %s.", req.Total.StringFixed(2), dueAt.Format("02/01/2006")),
		InvoiceID: &invoiceID,
		Amount:    req.Total,
		DueAt:     &dueAt,
		CreatedAt: now,
	}

	if err := s.notificationrepo.Create(ctx, &record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("invoice notification already exists",
				zap.String("invoice_id", invoiceID.String()),
				zap.String("store_id", req.StoreID.String()),
			)
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) Broadcast(ctx context.Context, storeIDs []snowflake.ID, msg notificationdomain.Announcement) (notificationdomain.BroadcastResult, error) {
	now := s.clock.Now()
	width := s.cfg.Get().NotifyConcurrency

	var (
		mu     sync.Mutex
		result notificationdomain.BroadcastResult
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(width)
	for _, storeID := range storeIDs {
		storeID := storeID
		group.Go(func() error {
			record := notificationdomain.Notification{
				ID:        s.genID.Generate(),
				StoreID:   storeID,
				Type:      notificationdomain.NotificationTypeAnnouncement,
				Title:     msg.Title,
				Message:   msg.Message,
				CreatedAt: now,
			}
			err := s.notificationrepo.Create(groupCtx, &record)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, storeID)
				s.log.Warn("broadcast delivery failed",
					zap.String("store_id", storeID.String()),
					zap.Error(err),
				)
				// Collected, not propagated: one store must not cancel the rest.
				return nil
			}
			result.Delivered++
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}
	return result, nil
}
