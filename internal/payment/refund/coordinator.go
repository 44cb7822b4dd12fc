package refund

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nilemart/storefront/internal/observability/metrics"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/payment/strategy"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Orders  orderdomain.Repository
	Router  *strategy.Router
	Metrics *metrics.Payment `optional:"true"`
}

type coordinator struct {
	db      *gorm.DB
	log     *zap.Logger
	orders  orderdomain.Repository
	router  *strategy.Router
	metrics *metrics.Payment
}

func New(p Params) domain.RefundCoordinator {
	return &coordinator{
		db:      p.DB,
		log:     p.Log.Named("payment.refund"),
		orders:  p.Orders,
		router:  p.Router,
		metrics: p.Metrics,
	}
}

// Refund pushes a refund to the gateway that captured the payment, then
// records the refund on the order. Only paid, gateway-settled orders are
// refundable here; cash and bank-transfer refunds are settled out of band.
func (c *coordinator) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResult, error) {
	order, err := c.orders.FindByID(ctx, c.db, req.OrderID)
	if err != nil {
		return domain.RefundResult{}, err
	}
	if order == nil {
		return domain.RefundResult{}, domain.ErrUnresolvedOrder
	}
	if order.PaymentStatus != orderdomain.PaymentStatusPaid {
		return domain.RefundResult{}, domain.ErrInvalidTransition
	}
	if req.AmountCents <= 0 || req.AmountCents > order.TotalCents {
		return domain.RefundResult{}, domain.ErrInvalidRefundAmount
	}

	strat, err := c.router.Route(order)
	if err != nil {
		return domain.RefundResult{}, err
	}
	online, ok := strat.(*strategy.OnlineStrategy)
	if !ok {
		return domain.RefundResult{}, domain.ErrUnsupportedGateway
	}
	adapter, err := online.Adapter()
	if err != nil {
		return domain.RefundResult{}, err
	}

	result := adapter.Refund(ctx, order, req)
	if !result.Success {
		c.log.Warn("gateway refused refund",
			zap.String("order_id", order.ID.String()),
			zap.String("gateway", online.Gateway()),
			zap.String("message", result.ErrorMessage),
		)
		return result, nil
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		locked, err := c.orders.FindByIDForUpdate(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrUnresolvedOrder
		}
		locked.MergePaymentDetails(map[string]any{
			"refunded_at":           time.Now().UTC().Format(time.RFC3339),
			"refund_transaction_id": result.RefundTransactionID,
			"refund_amount_cents":   req.AmountCents,
			"refund_reason":         req.Reason,
		})
		locked.UpdatedAt = time.Now().UTC()
		return c.orders.UpdatePayment(ctx, tx, locked)
	})
	if err != nil {
		// The gateway accepted the refund but the local record failed; this
		// needs operator attention, not an automatic retry against the gateway.
		c.log.Error("refund accepted but not recorded",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return result, err
	}

	c.metrics.RecordTransition(string(order.PaymentMethod), "refunded")
	c.log.Info("refund completed",
		zap.String("order_id", order.ID.String()),
		zap.String("gateway", online.Gateway()),
		zap.Int64("amount_cents", req.AmountCents),
	)
	return result, nil
}
