package kashier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
)

const (
	signatureHeader = "X-Kashier-Signature"
	modeCard        = "card"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Gateway() string {
	return "kashier"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.GatewayAdapter, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	apiKey := strings.TrimSpace(cfg.APIKey)
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if merchantID == "" || apiKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if webhookSecret == "" {
		webhookSecret = apiKey
	}

	return &Adapter{
		merchantID:    merchantID,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		checkoutURL:   strings.TrimSpace(cfg.CheckoutURL),
		refundURL:     strings.TrimSpace(cfg.RefundURL),
		client:        &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	merchantID    string
	apiKey        string
	webhookSecret string
	checkoutURL   string
	refundURL     string
	client        *http.Client
}

func (a *Adapter) Gateway() string { return "kashier" }

// InitializePayment computes the hosted-checkout parameters. The integrity
// hash covers merchant id, order reference, amount and currency so the
// client-side redirect cannot be re-pointed at a different order or total.
func (a *Adapter) InitializePayment(ctx context.Context, order *orderdomain.Order, app paymentdomain.AppContext) (*paymentdomain.PaymentResult, error) {
	if order == nil {
		return nil, paymentdomain.ErrUnresolvedOrder
	}
	reference := paymentdomain.MerchantReference(app.AppName, order.ID)
	amount := formatAmount(order.TotalCents)
	hash := a.integrityHash(reference, amount, order.Currency)

	redirect := a.checkoutURL
	if redirect == "" {
		redirect = "https://checkout.kashier.io"
	}

	return &paymentdomain.PaymentResult{
		MerchantID:     a.merchantID,
		OrderReference: reference,
		Amount:         amount,
		Currency:       order.Currency,
		Hash:           hash,
		Mode:           modeCard,
		RedirectURL:    redirect,
		FailureURL:     app.FailureURL,
		WebhookURL:     app.WebhookURL,
		Params: map[string]string{
			"merchantRedirect": app.SuccessURL,
			"display":          "en",
		},
	}, nil
}

// ValidateRedirect authenticates the browser return. The reported status is
// trusted only after the signature over the correlation fields checks out.
func (a *Adapter) ValidateRedirect(ctx context.Context, query url.Values) paymentdomain.ValidationResult {
	reference := strings.TrimSpace(query.Get("merchantOrderId"))
	status := strings.TrimSpace(query.Get("paymentStatus"))
	transactionID := strings.TrimSpace(query.Get("transactionId"))
	signature := strings.TrimSpace(query.Get("signature"))
	if reference == "" || status == "" || signature == "" {
		return paymentdomain.ValidationResult{ErrorMessage: "missing redirect parameters"}
	}

	signed := fmt.Sprintf("merchantOrderId=%s&paymentStatus=%s&transactionId=%s", reference, status, transactionID)
	expected := hmacHex(a.apiKey, []byte(signed))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ValidationResult{ErrorMessage: "signature mismatch"}
	}

	return paymentdomain.ValidationResult{
		Valid:             true,
		MerchantReference: reference,
		Status:            normalizeStatus(status),
		TransactionID:     transactionID,
	}
}

// VerifyWebhook checks the HMAC over the exact raw body bytes. Re-serializing
// a parsed payload would break the signature, so parsing happens later.
func (a *Adapter) VerifyWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}
	expected := hmacHex(a.webhookSecret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

type webhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type webhookData struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Status          string `json:"status"`
	TransactionID   string `json:"transactionId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Created         int64  `json:"created"`
	EventID         string `json:"eventId"`
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte) (*paymentdomain.WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	switch strings.TrimSpace(envelope.Event) {
	case "pay.success", "pay.failure":
	case "":
		return nil, paymentdomain.ErrInvalidPayload
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	var data webhookData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(data.EventID) == "" || strings.TrimSpace(data.MerchantOrderID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	occurredAt := time.Now().UTC()
	if data.Created > 0 {
		occurredAt = time.Unix(data.Created, 0).UTC()
	}

	return &paymentdomain.WebhookEvent{
		Gateway:           a.Gateway(),
		ProviderEventID:   strings.TrimSpace(data.EventID),
		MerchantReference: strings.TrimSpace(data.MerchantOrderID),
		Status:            normalizeStatus(data.Status),
		TransactionID:     strings.TrimSpace(data.TransactionID),
		AmountCents:       data.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(data.Currency)),
		OccurredAt:        occurredAt,
		RawPayload:        payload,
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, order *orderdomain.Order, req paymentdomain.RefundRequest) paymentdomain.RefundResult {
	if a.refundURL == "" {
		return paymentdomain.RefundResult{ErrorMessage: "refund endpoint not configured"}
	}
	transactionID := readDetail(order, "transaction_id")
	if transactionID == "" {
		return paymentdomain.RefundResult{ErrorMessage: "order has no gateway transaction"}
	}

	body, err := json.Marshal(map[string]any{
		"merchantId":    a.merchantID,
		"transactionId": transactionID,
		"amount":        formatAmount(req.AmountCents),
		"currency":      order.Currency,
		"reason":        req.Reason,
	})
	if err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "encode refund request"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.refundURL, bytes.NewReader(body))
	if err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "build refund request"}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "gateway unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	var decoded struct {
		Status        string `json:"status"`
		TransactionID string `json:"transactionId"`
		Message       string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "decode refund response"}
	}
	if resp.StatusCode != http.StatusOK || !strings.EqualFold(decoded.Status, "SUCCESS") {
		message := decoded.Message
		if message == "" {
			message = fmt.Sprintf("refund rejected (http %d)", resp.StatusCode)
		}
		return paymentdomain.RefundResult{ErrorMessage: message}
	}

	return paymentdomain.RefundResult{
		Success:             true,
		RefundTransactionID: decoded.TransactionID,
	}
}

func (a *Adapter) integrityHash(reference, amount, currency string) string {
	signed := fmt.Sprintf("%s.%s.%s.%s", a.merchantID, reference, amount, currency)
	return hmacHex(a.apiKey, []byte(signed))
}

func hmacHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func normalizeStatus(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), "SUCCESS") {
		return paymentdomain.WebhookStatusSuccess
	}
	return paymentdomain.WebhookStatusFailed
}

func readDetail(order *orderdomain.Order, key string) string {
	if order == nil || order.PaymentDetails == nil {
		return ""
	}
	value, ok := order.PaymentDetails[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
