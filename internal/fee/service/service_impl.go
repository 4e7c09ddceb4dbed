package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	"github.com/pedidoz/billing/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	feerepo repository.Repository[feedomain.AppFee]
}

func NewService(p ServiceParam) feedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("fee.service"),

		feerepo: repository.ProvideStore[feedomain.AppFee](p.DB),
	}
}

func (s *Service) ListUnsettledInWindow(ctx context.Context, storeID snowflake.ID, start, end time.Time) ([]feedomain.AppFee, error) {
	rows, err := s.feerepo.Find(ctx, &feedomain.AppFee{StoreID: storeID},
		repository.WithCondition("settled = ?", false),
		repository.WithCondition("order_date > ? AND order_date <= ?", start, end),
		repository.WithOrder("order_date ASC, id ASC"),
	)
	if err != nil {
		return nil, err
	}
	fees := make([]feedomain.AppFee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, *row)
	}
	return fees, nil
}

func (s *Service) EarliestUnsettled(ctx context.Context, storeID snowflake.ID) (*feedomain.AppFee, error) {
	return s.feerepo.FindOne(ctx, &feedomain.AppFee{StoreID: storeID},
		repository.WithCondition("settled = ?", false),
		repository.WithOrder("order_date ASC, id ASC"),
	)
}

func (s *Service) CountUnsettled(ctx context.Context, storeID snowflake.ID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&feedomain.AppFee{}).
		Where("store_id = ? AND settled = ?", storeID, false).
		Count(&count).Error
	return count, err
}
