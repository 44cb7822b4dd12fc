package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nilemart/storefront/internal/config"
	"github.com/nilemart/storefront/internal/observability/metrics"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/adapters"
	"github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/payment/strategy"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Registry *adapters.Registry
	Gateways *config.GatewayConfigHolder
	GenID    *snowflake.Node
	Events   domain.EventRepository
	Orders   orderdomain.Repository
	Router   *strategy.Router
	Metrics  *metrics.Payment `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	appName  string
	registry *adapters.Registry
	gateways *config.GatewayConfigHolder
	genID    *snowflake.Node
	events   domain.EventRepository
	orders   orderdomain.Repository
	router   *strategy.Router
	metrics  *metrics.Payment
}

func New(p Params) domain.WebhookService {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("payment.webhook"),
		appName:  p.Cfg.AppName,
		registry: p.Registry,
		gateways: p.Gateways,
		genID:    p.GenID,
		events:   p.Events,
		orders:   p.Orders,
		router:   p.Router,
		metrics:  p.Metrics,
	}
}

// Ingest runs the full asynchronous confirmation pipeline: authenticate the
// raw delivery, record it exactly once, resolve the order, and hand the
// outcome to the strategy that owns the order's method. Business no-ops
// (redelivery, a success landing on a terminal order) return nil so the
// gateway stops retrying; only authentication, resolution and infrastructure
// failures surface as errors.
func (s *service) Ingest(ctx context.Context, gateway string, payload []byte, headers http.Header) error {
	if !s.registry.GatewayExists(gateway) {
		return domain.ErrUnsupportedGateway
	}
	cfg, ok := s.gateways.Gateway(gateway)
	if !ok {
		return domain.ErrInvalidConfig
	}
	adapter, err := s.registry.NewAdapter(gateway, domain.AdapterConfig{
		Gateway:       gateway,
		MerchantID:    cfg.MerchantID,
		APIKey:        cfg.APIKey,
		WebhookSecret: cfg.WebhookSecret,
		CheckoutURL:   cfg.CheckoutURL,
		RefundURL:     cfg.RefundURL,
	})
	if err != nil {
		return err
	}

	if err := adapter.VerifyWebhook(ctx, payload, headers); err != nil {
		s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeRejected)
		s.log.Warn("webhook signature rejected", zap.String("gateway", gateway))
		return err
	}

	event, err := adapter.ParseWebhook(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeIgnored)
			s.log.Debug("webhook event type ignored", zap.String("gateway", gateway))
			return nil
		}
		s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeRejected)
		return err
	}

	record := &domain.EventRecord{
		ID:              s.genID.Generate(),
		Gateway:         gateway,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Status,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      time.Now().UTC(),
	}

	orderID, err := domain.ParseMerchantReference(s.appName, event.MerchantReference)
	if err != nil {
		s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeRejected)
		s.log.Warn("webhook references unknown order",
			zap.String("gateway", gateway),
			zap.String("merchant_reference", event.MerchantReference),
		)
		return err
	}
	record.OrderID = orderID

	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeRejected)
		return domain.ErrUnresolvedOrder
	}

	inserted, err := s.events.InsertEvent(ctx, s.db, record)
	if err != nil {
		return err
	}
	if !inserted {
		stored, err := s.events.FindEvent(ctx, s.db, gateway, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil || stored.ProcessedAt != nil {
			s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeDuplicate)
			s.log.Info("duplicate webhook delivery",
				zap.String("gateway", gateway),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil
		}
		// The earlier delivery was recorded but its transition never landed.
		// Re-run it against the stored row instead of acking a dead letter;
		// the state machine's row lock makes a concurrent re-run a no-op.
		record = stored
		s.log.Warn("retrying unprocessed webhook delivery",
			zap.String("gateway", gateway),
			zap.String("provider_event_id", event.ProviderEventID),
		)
	}

	strat, err := s.router.Route(order)
	if err != nil {
		return err
	}
	online, ok := strat.(*strategy.OnlineStrategy)
	if !ok || online.Gateway() != gateway {
		// The order was initiated with a method this gateway does not serve.
		s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeRejected)
		return domain.ErrMethodMismatch
	}

	details := map[string]any{
		"gateway":           gateway,
		"transaction_id":    event.TransactionID,
		"provider_event_id": event.ProviderEventID,
		"gateway_amount":    event.AmountCents,
		"gateway_currency":  event.Currency,
	}

	switch event.Status {
	case domain.WebhookStatusSuccess:
		_, err = strat.ProcessSuccess(ctx, orderID, details)
	default:
		_, err = strat.ProcessFailure(ctx, orderID, details)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrAlreadyPaid) {
			// Terminal-state conflict. The delivery is recorded; acknowledge
			// it so the gateway does not redeliver forever.
			s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeIgnored)
			s.log.Warn("webhook arrived for terminal order",
				zap.String("gateway", gateway),
				zap.String("order_id", orderID.String()),
				zap.String("event_status", event.Status),
			)
			return nil
		}
		return err
	}

	if err := s.events.MarkProcessed(ctx, s.db, record.ID, time.Now().UTC()); err != nil {
		s.log.Error("mark event processed", zap.Error(err))
	}
	s.metrics.RecordWebhook(gateway, metrics.WebhookOutcomeProcessed)
	return nil
}
