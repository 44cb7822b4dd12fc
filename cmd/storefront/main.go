package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/nilemart/storefront/internal/config"
	"github.com/nilemart/storefront/internal/migration"
	"github.com/nilemart/storefront/internal/notification"
	"github.com/nilemart/storefront/internal/observability"
	"github.com/nilemart/storefront/internal/order"
	"github.com/nilemart/storefront/internal/payment"
	"github.com/nilemart/storefront/internal/ratelimit"
	"github.com/nilemart/storefront/internal/server"
	"github.com/nilemart/storefront/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		notification.Module,
		ratelimit.Module,
		order.Module,
		payment.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
