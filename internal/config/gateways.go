package config

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GatewayConfig is the credential set for one online payment gateway.
// The webhook secret may differ from the request-signing API key; when
// the file omits it the adapter falls back to the API key.
type GatewayConfig struct {
	MerchantID    string `mapstructure:"merchant_id"`
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	CheckoutURL   string `mapstructure:"checkout_url"`
	RefundURL     string `mapstructure:"refund_url"`
}

// GatewayConfigHolder serves the current per-gateway credentials. It reads
// gateways.yml when present and watches it so secrets rotate without a
// restart; environment variables take over when the file is absent.
type GatewayConfigHolder struct {
	current atomic.Value // holds map[string]GatewayConfig
}

func NewGatewayConfigHolder() (*GatewayConfigHolder, error) {
	holder := &GatewayConfigHolder{}

	v := viper.New()
	v.SetConfigName("gateways")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/nilemart")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(gatewaysFromEnv())
		return holder, nil
	}

	holder.store(v)
	v.OnConfigChange(func(fsnotify.Event) {
		holder.store(v)
	})
	v.WatchConfig()
	return holder, nil
}

func (h *GatewayConfigHolder) store(v *viper.Viper) {
	var parsed map[string]GatewayConfig
	if err := v.UnmarshalKey("gateways", &parsed); err != nil || len(parsed) == 0 {
		h.current.Store(gatewaysFromEnv())
		return
	}
	normalized := make(map[string]GatewayConfig, len(parsed))
	for name, cfg := range parsed {
		normalized[strings.ToLower(strings.TrimSpace(name))] = cfg
	}
	h.current.Store(normalized)
}

// Gateway returns the current configuration for the named gateway.
func (h *GatewayConfigHolder) Gateway(name string) (GatewayConfig, bool) {
	configs, _ := h.current.Load().(map[string]GatewayConfig)
	cfg, ok := configs[strings.ToLower(strings.TrimSpace(name))]
	return cfg, ok
}

// SetForTest replaces the held configuration; test helper only.
func (h *GatewayConfigHolder) SetForTest(configs map[string]GatewayConfig) {
	normalized := make(map[string]GatewayConfig, len(configs))
	for name, cfg := range configs {
		normalized[strings.ToLower(strings.TrimSpace(name))] = cfg
	}
	h.current.Store(normalized)
}

func gatewaysFromEnv() map[string]GatewayConfig {
	configs := map[string]GatewayConfig{}
	for _, gateway := range []string{"kashier", "paymob"} {
		prefix := strings.ToUpper(gateway) + "_"
		cfg := GatewayConfig{
			MerchantID:    strings.TrimSpace(os.Getenv(prefix + "MERCHANT_ID")),
			APIKey:        strings.TrimSpace(os.Getenv(prefix + "API_KEY")),
			WebhookSecret: strings.TrimSpace(os.Getenv(prefix + "WEBHOOK_SECRET")),
			CheckoutURL:   strings.TrimSpace(os.Getenv(prefix + "CHECKOUT_URL")),
			RefundURL:     strings.TrimSpace(os.Getenv(prefix + "REFUND_URL")),
		}
		if cfg.MerchantID == "" && cfg.APIKey == "" {
			continue
		}
		configs[gateway] = cfg
	}
	return configs
}
