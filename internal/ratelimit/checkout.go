package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/nilemart/storefront/internal/config"
)

const keyCheckoutClient = "checkout:client:%s"

// CheckoutLimiter throttles the public payment-initiation and proof-upload
// endpoints per client. Without redis configured it is disabled and every
// request passes; webhook ingestion is deliberately never limited.
type CheckoutLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewCheckoutLimiter(cfg config.Config) *CheckoutLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" || cfg.CheckoutRatePerMinute <= 0 {
		return &CheckoutLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
	})

	return &CheckoutLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(cfg.CheckoutRatePerMinute) / 60,
		burst:   cfg.CheckoutBurst,
	}
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CheckoutLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutClient, strings.TrimSpace(clientKey)), l.rate, l.burst)
}
