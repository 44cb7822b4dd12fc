package payment

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nilemart/storefront/internal/config"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/adapters"
	"github.com/nilemart/storefront/internal/payment/adapters/kashier"
	"github.com/nilemart/storefront/internal/payment/adapters/paymob"
	"github.com/nilemart/storefront/internal/payment/correlation"
	"github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/payment/refund"
	"github.com/nilemart/storefront/internal/payment/repository"
	"github.com/nilemart/storefront/internal/payment/service"
	"github.com/nilemart/storefront/internal/payment/strategy"
	"github.com/nilemart/storefront/internal/payment/webhook"
	redis "github.com/redis/go-redis/v9"
)

var Module = fx.Module("payment",
	fx.Provide(provideRegistry),
	fx.Provide(provideCorrelationStore),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(provideRouter),
	fx.Provide(webhook.New),
	fx.Provide(refund.New),
)

func provideRegistry(log *zap.Logger) *adapters.Registry {
	registry := adapters.NewRegistry(
		kashier.NewFactory(),
		paymob.NewFactory(),
	)
	log.Named("payment").Info("gateway adapters registered",
		zap.Strings("gateways", registry.Gateways()),
	)
	return registry
}

// provideCorrelationStore prefers redis so redirect tokens survive a
// restart and are shared across replicas; the in-memory store covers
// single-node development setups.
func provideCorrelationStore(cfg config.Config, log *zap.Logger) correlation.Store {
	if cfg.RedisAddr == "" {
		log.Named("payment").Info("no redis configured, using in-memory correlation store")
		return correlation.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return correlation.NewRedisStore(client)
}

func provideRouter(
	cfg config.Config,
	log *zap.Logger,
	registry *adapters.Registry,
	gateways *config.GatewayConfigHolder,
	tokens correlation.Store,
	state domain.StateMachine,
) (*strategy.Router, error) {
	return strategy.NewRouter(
		strategy.NewCOD(cfg.BaseURL, state),
		strategy.NewInstapay(cfg.BaseURL, state),
		strategy.NewOnline(strategy.OnlineParams{
			Gateway:  "kashier",
			Methods:  []orderdomain.PaymentMethod{orderdomain.MethodCard, orderdomain.MethodWallet},
			Registry: registry,
			Gateways: gateways,
			Tokens:   tokens,
			State:    state,
			AppName:  cfg.AppName,
			BaseURL:  cfg.BaseURL,
			Log:      log,
		}),
		strategy.NewOnline(strategy.OnlineParams{
			Gateway:  "paymob",
			Methods:  []orderdomain.PaymentMethod{orderdomain.MethodMobileWallet, orderdomain.MethodKiosk},
			Registry: registry,
			Gateways: gateways,
			Tokens:   tokens,
			State:    state,
			AppName:  cfg.AppName,
			BaseURL:  cfg.BaseURL,
			Log:      log,
		}),
	)
}
