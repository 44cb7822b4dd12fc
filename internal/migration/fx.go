package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/nilemart/storefront/internal/config"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are development conveniences; the model tags
			// carry enough schema for AutoMigrate there.
			if err := conn.AutoMigrate(
				&orderdomain.Order{},
				&paymentdomain.EventRecord{},
			); err != nil {
				return err
			}
		}

		if !cfg.IsProduction() {
			return seed.EnsureDemoOrders(conn)
		}
		return nil
	}),
)
