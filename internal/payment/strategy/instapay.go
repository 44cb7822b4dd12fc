package strategy

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/domain"
)

// InstapayStrategy handles manual bank transfers. The customer uploads a
// transfer screenshot, the order moves to InReview, and an admin decision
// settles it. ProcessFailure is the admin rejection path: the order goes
// back to Pending so the customer can upload a new proof.
type InstapayStrategy struct {
	baseURL string
	state   domain.StateMachine
}

func NewInstapay(baseURL string, state domain.StateMachine) *InstapayStrategy {
	return &InstapayStrategy{baseURL: baseURL, state: state}
}

func (s *InstapayStrategy) Methods() []orderdomain.PaymentMethod {
	return []orderdomain.PaymentMethod{orderdomain.MethodInstapay}
}

func (s *InstapayStrategy) CanHandle(order *orderdomain.Order) bool {
	return order != nil && claims(s.Methods(), order.PaymentMethod)
}

func (s *InstapayStrategy) Execute(ctx context.Context, order *orderdomain.Order) (*domain.PaymentResult, error) {
	if !s.CanHandle(order) {
		return nil, domain.ErrMethodMismatch
	}
	if order.PaymentStatus == orderdomain.PaymentStatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	return &domain.PaymentResult{
		OrderReference: order.ID.String(),
		Amount:         formatAmount(order.TotalCents),
		Currency:       order.Currency,
		Mode:           "manual_transfer",
		RedirectURL:    fmt.Sprintf("%s/orders/%s/proof", s.baseURL, order.ID.String()),
		Params: map[string]string{
			"action_required": "upload_proof",
		},
	}, nil
}

func (s *InstapayStrategy) ProcessSuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error) {
	result, err := s.state.ApplySuccess(ctx, orderID, details)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

func (s *InstapayStrategy) ProcessFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error) {
	reason := "proof_rejected"
	if details != nil {
		if v, ok := details["reason"].(string); ok && v != "" {
			reason = v
		}
	}

	result, err := s.state.ApplyReviewRejection(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}
