package strategy

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/nilemart/storefront/internal/config"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/adapters"
	"github.com/nilemart/storefront/internal/payment/correlation"
	"github.com/nilemart/storefront/internal/payment/domain"
)

// OnlineStrategy drives a hosted-checkout gateway. One instance exists per
// gateway and claims every payment method that gateway renders.
type OnlineStrategy struct {
	gateway  string
	methods  []orderdomain.PaymentMethod
	registry *adapters.Registry
	gateways *config.GatewayConfigHolder
	tokens   correlation.Store
	state    domain.StateMachine
	appName  string
	baseURL  string
	log      *zap.Logger
}

type OnlineParams struct {
	Gateway  string
	Methods  []orderdomain.PaymentMethod
	Registry *adapters.Registry
	Gateways *config.GatewayConfigHolder
	Tokens   correlation.Store
	State    domain.StateMachine
	AppName  string
	BaseURL  string
	Log      *zap.Logger
}

func NewOnline(p OnlineParams) *OnlineStrategy {
	return &OnlineStrategy{
		gateway:  p.Gateway,
		methods:  p.Methods,
		registry: p.Registry,
		gateways: p.Gateways,
		tokens:   p.Tokens,
		state:    p.State,
		appName:  p.AppName,
		baseURL:  p.BaseURL,
		log:      p.Log.Named("strategy." + p.Gateway),
	}
}

func (s *OnlineStrategy) Gateway() string { return s.gateway }

func (s *OnlineStrategy) Methods() []orderdomain.PaymentMethod { return s.methods }

func (s *OnlineStrategy) CanHandle(order *orderdomain.Order) bool {
	return order != nil && claims(s.methods, order.PaymentMethod)
}

// Adapter builds a configured adapter for this strategy's gateway. The
// config holder is read on every call so a hot-reloaded gateways.yml takes
// effect without a restart.
func (s *OnlineStrategy) Adapter() (domain.GatewayAdapter, error) {
	cfg, ok := s.gateways.Gateway(s.gateway)
	if !ok {
		return nil, domain.ErrInvalidConfig
	}
	return s.registry.NewAdapter(s.gateway, domain.AdapterConfig{
		Gateway:       s.gateway,
		MerchantID:    cfg.MerchantID,
		APIKey:        cfg.APIKey,
		WebhookSecret: cfg.WebhookSecret,
		CheckoutURL:   cfg.CheckoutURL,
		RefundURL:     cfg.RefundURL,
	})
}

func (s *OnlineStrategy) Execute(ctx context.Context, order *orderdomain.Order) (*domain.PaymentResult, error) {
	if !s.CanHandle(order) {
		return nil, domain.ErrMethodMismatch
	}
	if order.PaymentStatus == orderdomain.PaymentStatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	adapter, err := s.Adapter()
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("issue correlation token: %w", err)
	}

	app := domain.AppContext{
		AppName:    s.appName,
		SuccessURL: fmt.Sprintf("%s/payments/return/%s?session=%s", s.baseURL, s.gateway, token),
		FailureURL: fmt.Sprintf("%s/payments/failed?session=%s", s.baseURL, token),
		WebhookURL: fmt.Sprintf("%s/webhooks/payments/%s", s.baseURL, s.gateway),
	}

	result, err := adapter.InitializePayment(ctx, order, app)
	if err != nil {
		s.log.Error("initialize payment failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (s *OnlineStrategy) ProcessSuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error) {
	result, err := s.state.ApplySuccess(ctx, orderID, details)
	if err != nil {
		return nil, err
	}
	if !result.Applied {
		s.log.Info("success already applied",
			zap.String("order_id", orderID.String()),
		)
	}
	return result.Order, nil
}

func (s *OnlineStrategy) ProcessFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error) {
	result, err := s.state.ApplyFailure(ctx, orderID, details)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}
