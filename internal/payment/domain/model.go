package domain

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentResult carries everything the checkout UI needs to continue a
// payment: redirect parameters for online gateways, or a confirmation
// target for synchronous methods. Built once per initiation, never mutated.
type PaymentResult struct {
	MerchantID     string            `json:"merchant_id,omitempty"`
	OrderReference string            `json:"order_reference"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	Hash           string            `json:"hash,omitempty"`
	Mode           string            `json:"mode"`
	RedirectURL    string            `json:"redirect_url"`
	FailureURL     string            `json:"failure_url,omitempty"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
}

// ValidationResult is the all-or-nothing outcome of authenticating a
// synchronous browser redirect. The merchant reference is only populated
// when the signature checked out; resolution to an order id happens in the
// calling service, which knows the application prefix.
type ValidationResult struct {
	Valid             bool
	MerchantReference string
	Status            string
	TransactionID     string
	ErrorMessage      string
}

// WebhookEvent is the canonical payment notification parsed by adapters
// after signature verification has passed.
type WebhookEvent struct {
	Gateway           string
	ProviderEventID   string
	MerchantReference string
	Status            string
	TransactionID     string
	AmountCents       int64
	Currency          string
	OccurredAt        time.Time
	RawPayload        []byte
}

const (
	WebhookStatusSuccess = "SUCCESS"
	WebhookStatusFailed  = "FAILED"
)

type RefundRequest struct {
	OrderID     snowflake.ID
	AmountCents int64
	Reason      string
}

type RefundResult struct {
	Success             bool   `json:"success"`
	RefundTransactionID string `json:"refund_transaction_id,omitempty"`
	ErrorMessage        string `json:"error_message,omitempty"`
}

// AdapterConfig is the per-gateway credential set handed to a factory.
// WebhookSecret may differ from the request-signing APIKey.
type AdapterConfig struct {
	Gateway       string
	MerchantID    string
	APIKey        string
	WebhookSecret string
	CheckoutURL   string
	RefundURL     string
}

// AppContext carries application-level parameters an adapter bakes into
// initialization results: the merchant-reference prefix and return URLs.
type AppContext struct {
	AppName    string
	SuccessURL string
	FailureURL string
	WebhookURL string
}

// GatewayAdapter translates orders into gateway-specific requests and
// authenticates what comes back. Verification operates on the raw request
// bytes; parsing is a separate, later step.
type GatewayAdapter interface {
	Gateway() string
	InitializePayment(ctx context.Context, order *orderdomain.Order, app AppContext) (*PaymentResult, error)
	ValidateRedirect(ctx context.Context, query url.Values) ValidationResult
	VerifyWebhook(ctx context.Context, payload []byte, headers http.Header) error
	ParseWebhook(ctx context.Context, payload []byte) (*WebhookEvent, error)
	Refund(ctx context.Context, order *orderdomain.Order, req RefundRequest) RefundResult
}

type AdapterFactory interface {
	Gateway() string
	NewAdapter(cfg AdapterConfig) (GatewayAdapter, error)
}

// Strategy is the uniform per-method contract the checkout flow sees.
// One strategy may claim several methods (a gateway serving card and wallet).
type Strategy interface {
	Methods() []orderdomain.PaymentMethod
	CanHandle(order *orderdomain.Order) bool
	Execute(ctx context.Context, order *orderdomain.Order) (*PaymentResult, error)
	ProcessSuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error)
	ProcessFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (*orderdomain.Order, error)
}

// TransitionResult reports whether a state-machine call changed the order.
// Applied=false is the idempotent no-op path, not an error.
type TransitionResult struct {
	Order   *orderdomain.Order
	Applied bool
}

// StateMachine is the single authority over an order's payment status.
// Every mutation runs inside a per-order locked transaction.
type StateMachine interface {
	ApplySuccess(ctx context.Context, orderID snowflake.ID, details map[string]any) (TransitionResult, error)
	ApplyFailure(ctx context.Context, orderID snowflake.ID, details map[string]any) (TransitionResult, error)
	ApplyInReview(ctx context.Context, orderID snowflake.ID, proofRef string, details map[string]any) (TransitionResult, error)
	ApplyReviewRejection(ctx context.Context, orderID snowflake.ID, reason string) (TransitionResult, error)
}

type WebhookService interface {
	Ingest(ctx context.Context, gateway string, payload []byte, headers http.Header) error
}

type RefundCoordinator interface {
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}

// EventRecord stores every accepted webhook delivery. The unique
// (gateway, provider_event_id) pair is what makes redelivery detectable.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Gateway         string         `json:"gateway" gorm:"type:text;not null;uniqueIndex:idx_gateway_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:idx_gateway_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	OrderID         snowflake.ID   `json:"order_id" gorm:"not null;index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

type EventRepository interface {
	// InsertEvent reports false when the (gateway, provider_event_id) pair
	// already exists, without error.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, gateway, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
