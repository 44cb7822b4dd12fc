package strategy

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/domain"
)

// CODStrategy completes synchronously: no gateway, no webhook, the order
// stays Pending until a courier settlement marks it paid.
type CODStrategy struct {
	baseURL string
	state   domain.StateMachine
}

func NewCOD(baseURL string, state domain.StateMachine) *CODStrategy {
	return &CODStrategy{baseURL: baseURL, state: state}
}

func (s *CODStrategy) Methods() []orderdomain.PaymentMethod {
	return []orderdomain.PaymentMethod{orderdomain.MethodCashOnDelivery}
}

func (s *CODStrategy) CanHandle(order *orderdomain.Order) bool {
	return order != nil && claims(s.Methods(), order.PaymentMethod)
}

func (s *CODStrategy) Execute(ctx context.Context, order *orderdomain.Order) (*domain.PaymentResult, error) {
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
		Mode:           "cod",
		RedirectURL:    fmt.Sprintf("%s/orders/%s", s.baseURL, order.ID.String()),
		Params: map[string]string{
			"action_required": "none",
		},
	}, nil
}

func (s *CODStrategy) ProcessSuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error) {
	result, err := s.state.ApplySuccess(ctx, orderID, details)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

func (s *CODStrategy) ProcessFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error) {
	result, err := s.state.ApplyFailure(ctx, orderID, details)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
