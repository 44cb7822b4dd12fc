package strategy

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nilemart/storefront/internal/config"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/adapters"
	"github.com/nilemart/storefront/internal/payment/adapters/kashier"
	"github.com/nilemart/storefront/internal/payment/correlation"
	"github.com/nilemart/storefront/internal/payment/domain"
)

type fakeStateMachine struct {
	successCalls   int
	failureCalls   int
	rejectionCalls int
	lastReason     string
	lastDetails    map[string]any
}

func (f *fakeStateMachine) ApplySuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (domain.TransitionResult, error) {
	f.successCalls++
	f.lastDetails = details
	return domain.TransitionResult{
		Order:   &orderdomain.Order{ID: orderID, PaymentStatus: orderdomain.PaymentStatusPaid},
		Applied: true,
	}, nil
}

func (f *fakeStateMachine) ApplyFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (domain.TransitionResult, error) {
	f.failureCalls++
	f.lastDetails = details
	return domain.TransitionResult{
		Order:   &orderdomain.Order{ID: orderID, PaymentStatus: orderdomain.PaymentStatusFailed},
		Applied: true,
	}, nil
}

func (f *fakeStateMachine) ApplyInReview(ctx context.Context, orderID snowflake.ID, proofRef string, details map[string]any) (domain.TransitionResult, error) {
	return domain.TransitionResult{
		Order:   &orderdomain.Order{ID: orderID, PaymentStatus: orderdomain.PaymentStatusInReview},
		Applied: true,
	}, nil
}

func (f *fakeStateMachine) ApplyReviewRejection(ctx context.Context, orderID snowflake.ID, reason string) (domain.TransitionResult, error) {
	f.rejectionCalls++
	f.lastReason = reason
	return domain.TransitionResult{
		Order:   &orderdomain.Order{ID: orderID, PaymentStatus: orderdomain.PaymentStatusPending},
		Applied: true,
	}, nil
}

func pendingOrder(method orderdomain.PaymentMethod) *orderdomain.Order {
	return &orderdomain.Order{
		ID:            snowflake.ID(42),
		TotalCents:    15050,
		Currency:      "EGP",
		PaymentMethod: method,
		PaymentStatus: orderdomain.PaymentStatusPending,
	}
}

func TestCODExecute(t *testing.T) {
	state := &fakeStateMachine{}
	s := NewCOD("https://shop.nilemart.dev", state)

	result, err := s.Execute(context.Background(), pendingOrder(orderdomain.MethodCashOnDelivery))
	require.NoError(t, err)
	assert.Equal(t, "cod", result.Mode)
	assert.Equal(t, "150.50", result.Amount)
	assert.Equal(t, "https://shop.nilemart.dev/orders/42", result.RedirectURL)

	_, err = s.Execute(context.Background(), pendingOrder(orderdomain.MethodCard))
	assert.ErrorIs(t, err, domain.ErrMethodMismatch)
}

func TestCODExecuteAlreadyPaid(t *testing.T) {
	s := NewCOD("https://shop.nilemart.dev", &fakeStateMachine{})

	order := pendingOrder(orderdomain.MethodCashOnDelivery)
	order.PaymentStatus = orderdomain.PaymentStatusPaid

	_, err := s.Execute(context.Background(), order)
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestInstapayRejectionGoesBackToPending(t *testing.T) {
	state := &fakeStateMachine{}
	s := NewInstapay("https://shop.nilemart.dev", state)

	order, err := s.ProcessFailure(context.Background(), snowflake.ID(42), map[string]any{"reason": "blurry screenshot"})
	require.NoError(t, err)
	assert.Equal(t, orderdomain.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 1, state.rejectionCalls)
	assert.Equal(t, "blurry screenshot", state.lastReason)
	assert.Zero(t, state.failureCalls)
}

func TestInstapayRejectionDefaultReason(t *testing.T) {
	state := &fakeStateMachine{}
	s := NewInstapay("https://shop.nilemart.dev", state)

	_, err := s.ProcessFailure(context.Background(), snowflake.ID(42), nil)
	require.NoError(t, err)
	assert.Equal(t, "proof_rejected", state.lastReason)
}

func newOnlineForTest(t *testing.T, state domain.StateMachine) *OnlineStrategy {
	t.Helper()

	holder, err := config.NewGatewayConfigHolder()
	require.NoError(t, err)
	holder.SetForTest(map[string]config.GatewayConfig{
		"kashier": {MerchantID: "MID-100", APIKey: "secret"},
	})

	return NewOnline(OnlineParams{
		Gateway:  "kashier",
		Methods:  []orderdomain.PaymentMethod{orderdomain.MethodCard, orderdomain.MethodWallet},
		Registry: adapters.NewRegistry(kashier.NewFactory()),
		Gateways: holder,
		Tokens:   correlation.NewMemoryStore(),
		State:    state,
		AppName:  "nilemart",
		BaseURL:  "https://shop.nilemart.dev",
		Log:      zap.NewNop(),
	})
}

func TestOnlineExecute(t *testing.T) {
	state := &fakeStateMachine{}
	s := newOnlineForTest(t, state)

	result, err := s.Execute(context.Background(), pendingOrder(orderdomain.MethodCard))
	require.NoError(t, err)
	assert.Equal(t, "nilemart-42", result.OrderReference)
	assert.NotEmpty(t, result.Hash)
	assert.Contains(t, result.Params["merchantRedirect"], "/payments/return/kashier?session=")
	assert.Contains(t, result.WebhookURL, "/webhooks/payments/kashier")
}

func TestOnlineExecuteMethodMismatch(t *testing.T) {
	s := newOnlineForTest(t, &fakeStateMachine{})

	_, err := s.Execute(context.Background(), pendingOrder(orderdomain.MethodInstapay))
	assert.ErrorIs(t, err, domain.ErrMethodMismatch)
}

func TestOnlineExecuteMissingGatewayConfig(t *testing.T) {
	state := &fakeStateMachine{}
	s := newOnlineForTest(t, state)
	s.gateways.SetForTest(map[string]config.GatewayConfig{})

	_, err := s.Execute(context.Background(), pendingOrder(orderdomain.MethodCard))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRouter(t *testing.T) {
	state := &fakeStateMachine{}
	cod := NewCOD("https://shop.nilemart.dev", state)
	instapay := NewInstapay("https://shop.nilemart.dev", state)

	router, err := NewRouter(cod, instapay)
	require.NoError(t, err)

	s, err := router.ForMethod(orderdomain.MethodInstapay)
	require.NoError(t, err)
	assert.Same(t, instapay, s)

	s, err = router.Route(pendingOrder(orderdomain.MethodCashOnDelivery))
	require.NoError(t, err)
	assert.Same(t, cod, s)

	_, err = router.ForMethod(orderdomain.MethodCard)
	assert.ErrorIs(t, err, domain.ErrMethodMismatch)
}

func TestRouterRejectsDoubleClaim(t *testing.T) {
	state := &fakeStateMachine{}
	_, err := NewRouter(
		NewCOD("https://shop.nilemart.dev", state),
		NewCOD("https://shop.nilemart.dev", state),
	)
	assert.Error(t, err)
}
