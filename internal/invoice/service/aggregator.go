package service

import (
	"github.com/bwmarrin/snowflake"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	invoicedomain "github.com/pedidoz/billing/internal/invoice/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxFeeAmount guards against corrupt upstream records; NUMERIC(12,2) caps
// storable amounts anyway.
var maxFeeAmount = decimal.New(1, 10) // 10^10

// Aggregate reduces a cycle's fees into a candidate invoice. Malformed fees
// (negative or absurd amounts) are skipped and logged rather than failing
// the whole cycle: one corrupt record must not block billing for the rest.
func Aggregate(log *zap.Logger, fees []feedomain.AppFee) invoicedomain.Aggregation {
	valid := make([]feedomain.AppFee, 0, len(fees))
	total := decimal.Zero
	for _, fee := range fees {
		if fee.Amount.IsNegative() || fee.Amount.GreaterThan(maxFeeAmount) {
			log.Warn("skipping malformed fee",
				zap.String("fee_id", fee.ID.String()),
				zap.String("store_id", fee.StoreID.String()),
				zap.String("amount", fee.Amount.String()),
			)
			continue
		}
		valid = append(valid, fee)
		total = total.Add(fee.Amount)
	}

	return invoicedomain.Aggregation{
		Total: total.Round(2),
		FeeIDs: lo.Map(valid, func(fee feedomain.AppFee, _ int) snowflake.ID {
			return fee.ID
		}),
		Details: lo.Map(valid, func(fee feedomain.AppFee, _ int) invoicedomain.FeeDetail {
			return invoicedomain.FeeDetail{
				FeeID:         fee.ID,
				OrderID:       fee.OrderID,
				Amount:        fee.Amount,
				Rate:          fee.Rate,
				PaymentMethod: fee.PaymentMethod,
				OrderDate:     fee.OrderDate,
			}
		}),
	}
}
