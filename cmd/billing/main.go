package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pedidoz/billing/internal/billingcycle"
	"github.com/pedidoz/billing/internal/billingops"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	"github.com/pedidoz/billing/internal/fee"
	"github.com/pedidoz/billing/internal/invoice"
	"github.com/pedidoz/billing/internal/migration"
	"github.com/pedidoz/billing/internal/notification"
	"github.com/pedidoz/billing/internal/observability"
	"github.com/pedidoz/billing/internal/scheduler"
	"github.com/pedidoz/billing/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(NewSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domain services
		fee.Module,
		billingcycle.Module,
		invoice.Module,
		notification.Module,
		billingops.Module,

		// Billing pipeline driver
		scheduler.Module,
	)
	app.Run()
}

func NewSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
