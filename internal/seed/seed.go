package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	orderdomain "github.com/nilemart/storefront/internal/order/domain"
)

const demoCustomerEmail = "demo@nilemart.example"

// EnsureDemoOrders seeds a handful of orders in representative payment
// states so a fresh development database has something to click through.
// It is a no-op when any order already exists.
func EnsureDemoOrders(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&orderdomain.Order{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		demo := []*orderdomain.Order{
			{
				ID:            node.Generate(),
				PaymentMethod: orderdomain.MethodCashOnDelivery,
				PaymentStatus: orderdomain.PaymentStatusPending,
				TotalCents:    9900,
			},
			{
				ID:            node.Generate(),
				PaymentMethod: orderdomain.MethodCard,
				PaymentStatus: orderdomain.PaymentStatusPending,
				TotalCents:    45000,
			},
			{
				ID:            node.Generate(),
				PaymentMethod: orderdomain.MethodInstapay,
				PaymentStatus: orderdomain.PaymentStatusInReview,
				TotalCents:    120000,
			},
		}
		for _, order := range demo {
			order.CustomerEmail = demoCustomerEmail
			order.Currency = "EGP"
			order.PaymentDetails = datatypes.JSONMap{}
			order.CreatedAt = now
			order.UpdatedAt = now
			if order.PaymentStatus == orderdomain.PaymentStatusInReview {
				order.PaymentProof = "proofs/demo-transfer.png"
			}
			if err := tx.Create(order).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
