package billingops

import (
	"github.com/pedidoz/billing/internal/billingops/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingops.service",
	fx.Provide(service.NewService),
)
