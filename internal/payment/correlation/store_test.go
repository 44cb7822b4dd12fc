package correlation

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/nilemart/storefront/internal/payment/domain"
)

func TestMemoryStoreConsumeIsReadOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.Issue(ctx, snowflake.ID(42))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	orderID, err := store.Consume(ctx, token)
	if err != nil {
		t.Fatalf("consume token: %v", err)
	}
	if orderID != 42 {
		t.Fatalf("expected 42, got %d", orderID)
	}

	if _, err := store.Consume(ctx, token); !errors.Is(err, domain.ErrCorrelationExpired) {
		t.Fatalf("expected ErrCorrelationExpired on replay, got %v", err)
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Consume(context.Background(), "never-issued"); !errors.Is(err, domain.ErrCorrelationExpired) {
		t.Fatalf("expected ErrCorrelationExpired, got %v", err)
	}
}
