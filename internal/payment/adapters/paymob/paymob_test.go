package paymob

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Gateway:       "paymob",
		MerchantID:    "MID-200",
		APIKey:        "auth_token",
		WebhookSecret: "hmac_secret",
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter.(*Adapter)
}

func buildPayload(t *testing.T, success bool) ([]byte, string) {
	t.Helper()
	item := notificationItem{
		ID:              987654,
		Success:         success,
		AmountCents:     19999,
		Currency:        "EGP",
		MerchantOrderID: "nilemart-42",
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(notification{Type: "TRANSACTION", Obj: item})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	mac := hmac.New(sha512.New, []byte("hmac_secret"))
	_, _ = mac.Write([]byte(signingString(item)))
	return payload, hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	adapter := newTestAdapter(t)
	payload, signature := buildPayload(t, true)

	headers := http.Header{}
	headers.Set(hmacHeader, signature)
	if err := adapter.VerifyWebhook(context.Background(), payload, headers); err != nil {
		t.Fatalf("expected valid hmac, got %v", err)
	}

	// A payload signed with a different secret must be rejected no matter
	// how plausible its business fields look.
	otherMac := hmac.New(sha512.New, []byte("other_secret"))
	_, _ = otherMac.Write(payload)
	headers.Set(hmacHeader, hex.EncodeToString(otherMac.Sum(nil)))
	if err := adapter.VerifyWebhook(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// Tampering with a signed field breaks the signature.
	tampered := []byte(strings.Replace(string(payload), "19999", "10", 1))
	headers.Set(hmacHeader, signature)
	if err := adapter.VerifyWebhook(context.Background(), tampered, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered amount, got %v", err)
	}
}

func TestParseWebhook(t *testing.T) {
	adapter := newTestAdapter(t)

	payload, _ := buildPayload(t, true)
	event, err := adapter.ParseWebhook(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Status != paymentdomain.WebhookStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", event.Status)
	}
	if event.MerchantReference != "nilemart-42" {
		t.Fatalf("expected nilemart-42, got %s", event.MerchantReference)
	}
	if event.ProviderEventID != "987654" {
		t.Fatalf("expected 987654, got %s", event.ProviderEventID)
	}

	payload, _ = buildPayload(t, false)
	event, err = adapter.ParseWebhook(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse failed webhook: %v", err)
	}
	if event.Status != paymentdomain.WebhookStatusFailed {
		t.Fatalf("expected FAILED, got %s", event.Status)
	}

	if _, err := adapter.ParseWebhook(context.Background(), []byte(`{"type":"TOKEN","obj":{"id":1}}`)); !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestValidateRedirect(t *testing.T) {
	adapter := newTestAdapter(t)

	query := url.Values{}
	query.Set("merchant_order_id", "nilemart-42")
	query.Set("success", "true")
	query.Set("id", "987654")
	query.Set("amount_cents", "19999")

	mac := hmac.New(sha512.New, []byte("hmac_secret"))
	_, _ = mac.Write([]byte("19999:987654:nilemart-42:true"))
	query.Set("hmac", hex.EncodeToString(mac.Sum(nil)))

	result := adapter.ValidateRedirect(context.Background(), query)
	if !result.Valid {
		t.Fatalf("expected valid redirect, got %q", result.ErrorMessage)
	}
	if result.Status != paymentdomain.WebhookStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", result.Status)
	}

	// Flipping success without re-signing must invalidate the redirect.
	query.Set("success", "false")
	if adapter.ValidateRedirect(context.Background(), query).Valid {
		t.Fatalf("expected rejection for tampered success flag")
	}
}
