package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nilemart/storefront/internal/notification"
	"github.com/nilemart/storefront/internal/observability/metrics"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	OrderRepo orderdomain.Repository
	Notifier  notification.Notifier `optional:"true"`
	Metrics   *metrics.Payment      `optional:"true"`
}

// Service owns every mutation of an order's payment status. All callers —
// webhook handler, redirect callback, admin review — funnel through here,
// so the idempotency checks live in exactly one place.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	orderRepo orderdomain.Repository
	notifier  notification.Notifier
	metrics   *metrics.Payment
}

func New(p Params) domain.StateMachine {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.state"),
		orderRepo: p.OrderRepo,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
	}
}

// ApplySuccess settles the order. Re-reading the status under the row lock
// is what makes a duplicate success delivery a no-op instead of a second
// apply: once Paid, Applied=false and the stored details stay untouched.
func (s *Service) ApplySuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (domain.TransitionResult, error) {
	return s.transition(ctx, orderID, func(order *orderdomain.Order) (bool, error) {
		switch order.PaymentStatus {
		case orderdomain.PaymentStatusPaid:
			s.log.Info("duplicate success ignored, order already paid",
				zap.String("order_id", order.ID.String()),
			)
			return false, nil
		case orderdomain.PaymentStatusFailed:
			return false, domain.ErrInvalidTransition
		}
		order.PaymentStatus = orderdomain.PaymentStatusPaid
		order.MergePaymentDetails(details)
		order.MergePaymentDetails(map[string]any{
			"paid_at": time.Now().UTC().Format(time.RFC3339),
		})
		return true, nil
	})
}

// ApplyFailure marks the order failed. It never downgrades a Paid order:
// a stale or out-of-order failure after success is acknowledged and dropped.
func (s *Service) ApplyFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (domain.TransitionResult, error) {
	return s.transition(ctx, orderID, func(order *orderdomain.Order) (bool, error) {
		switch order.PaymentStatus {
		case orderdomain.PaymentStatusPaid:
			s.log.Warn("failure notification for paid order ignored",
				zap.String("order_id", order.ID.String()),
			)
			return false, nil
		case orderdomain.PaymentStatusFailed:
			return false, nil
		}
		order.PaymentStatus = orderdomain.PaymentStatusFailed
		order.MergePaymentDetails(details)
		order.MergePaymentDetails(map[string]any{
			"failed_at": time.Now().UTC().Format(time.RFC3339),
		})
		return true, nil
	})
}

// ApplyInReview records an uploaded proof and queues the order for manual
// review. Allowed from Pending and, for re-uploads, from InReview itself.
func (s *Service) ApplyInReview(ctx context.Context, orderID snowflake.ID, proofRef string, details map[string]any) (domain.TransitionResult, error) {
	return s.transition(ctx, orderID, func(order *orderdomain.Order) (bool, error) {
		switch order.PaymentStatus {
		case orderdomain.PaymentStatusPaid:
			return false, domain.ErrAlreadyPaid
		case orderdomain.PaymentStatusFailed:
			return false, domain.ErrInvalidTransition
		}
		order.PaymentStatus = orderdomain.PaymentStatusInReview
		order.PaymentProof = proofRef
		order.MergePaymentDetails(details)
		order.MergePaymentDetails(map[string]any{
			"proof_uploaded_at": time.Now().UTC().Format(time.RFC3339),
		})
		return true, nil
	})
}

// ApplyReviewRejection returns a reviewed order to Pending so the customer
// may upload a fresh proof. Rejection metadata merges into the details blob
// alongside whatever a later success will add.
func (s *Service) ApplyReviewRejection(ctx context.Context, orderID snowflake.ID, reason string) (domain.TransitionResult, error) {
	return s.transition(ctx, orderID, func(order *orderdomain.Order) (bool, error) {
		switch order.PaymentStatus {
		case orderdomain.PaymentStatusPaid:
			return false, domain.ErrAlreadyPaid
		case orderdomain.PaymentStatusInReview:
		default:
			return false, domain.ErrInvalidTransition
		}
		order.PaymentStatus = orderdomain.PaymentStatusPending
		order.MergePaymentDetails(map[string]any{
			"review_rejected_at": time.Now().UTC().Format(time.RFC3339),
			"rejection_reason":   reason,
			"can_reupload":       true,
		})
		return true, nil
	})
}

// transition runs the read-check-write sequence inside one transaction with
// the order row locked, then fires best-effort side effects after commit.
func (s *Service) transition(
	ctx context.Context,
	orderID snowflake.ID,
	apply func(order *orderdomain.Order) (bool, error),
) (domain.TransitionResult, error) {
	if orderID == 0 {
		return domain.TransitionResult{}, domain.ErrUnresolvedOrder
	}

	var result domain.TransitionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrUnresolvedOrder
		}

		applied, err := apply(order)
		if err != nil {
			return err
		}
		if applied {
			order.UpdatedAt = time.Now().UTC()
			if err := s.orderRepo.UpdatePayment(ctx, tx, order); err != nil {
				return err
			}
		}
		result = domain.TransitionResult{Order: order, Applied: applied}
		return nil
	})
	if err != nil {
		return domain.TransitionResult{}, err
	}

	if result.Applied {
		if s.metrics != nil {
			s.metrics.RecordTransition(string(result.Order.PaymentMethod), string(result.Order.PaymentStatus))
		}
		if s.notifier != nil {
			if result.Order.PaymentStatus == orderdomain.PaymentStatusInReview {
				s.notifier.ProofUploaded(ctx, result.Order)
			} else {
				s.notifier.PaymentStatusChanged(ctx, result.Order)
			}
		}
	}
	return result, nil
}
