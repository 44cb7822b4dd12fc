package paymob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
)

const hmacHeader = "X-Paymob-Hmac"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Gateway() string {
	return "paymob"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.GatewayAdapter, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	apiKey := strings.TrimSpace(cfg.APIKey)
	hmacSecret := strings.TrimSpace(cfg.WebhookSecret)
	if merchantID == "" || apiKey == "" || hmacSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	return &Adapter{
		merchantID:  merchantID,
		apiKey:      apiKey,
		hmacSecret:  hmacSecret,
		checkoutURL: strings.TrimSpace(cfg.CheckoutURL),
		refundURL:   strings.TrimSpace(cfg.RefundURL),
		client:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	merchantID  string
	apiKey      string
	hmacSecret  string
	checkoutURL string
	refundURL   string
	client      *http.Client
}

func (a *Adapter) Gateway() string { return "paymob" }

func (a *Adapter) InitializePayment(ctx context.Context, order *orderdomain.Order, app paymentdomain.AppContext) (*paymentdomain.PaymentResult, error) {
	if order == nil {
		return nil, paymentdomain.ErrUnresolvedOrder
	}
	reference := paymentdomain.MerchantReference(app.AppName, order.ID)
	amount := formatAmount(order.TotalCents)

	// The hash covers the minor-unit amount, not the display amount, since
	// that is what the gateway echoes back in notifications.
	signed := strings.Join([]string{
		strconv.FormatInt(order.TotalCents, 10),
		order.Currency,
		reference,
		a.merchantID,
	}, ":")
	hash := a.hmacHex([]byte(signed))

	redirect := a.checkoutURL
	if redirect == "" {
		redirect = "https://accept.paymob.com/checkout"
	}

	return &paymentdomain.PaymentResult{
		MerchantID:     a.merchantID,
		OrderReference: reference,
		Amount:         amount,
		Currency:       order.Currency,
		Hash:           hash,
		Mode:           string(order.PaymentMethod),
		RedirectURL:    redirect,
		FailureURL:     app.FailureURL,
		WebhookURL:     app.WebhookURL,
		Params: map[string]string{
			"amount_cents": strconv.FormatInt(order.TotalCents, 10),
			"return_url":   app.SuccessURL,
		},
	}, nil
}

// ValidateRedirect recomputes the HMAC over the ordered redirect fields.
// The field order is fixed by the gateway contract; reordering breaks the
// signature by design.
func (a *Adapter) ValidateRedirect(ctx context.Context, query url.Values) paymentdomain.ValidationResult {
	reference := strings.TrimSpace(query.Get("merchant_order_id"))
	success := strings.TrimSpace(query.Get("success"))
	transactionID := strings.TrimSpace(query.Get("id"))
	amountCents := strings.TrimSpace(query.Get("amount_cents"))
	signature := strings.TrimSpace(query.Get("hmac"))
	if reference == "" || success == "" || signature == "" {
		return paymentdomain.ValidationResult{ErrorMessage: "missing redirect parameters"}
	}

	expected := a.hmacHex([]byte(strings.Join([]string{amountCents, transactionID, reference, success}, ":")))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ValidationResult{ErrorMessage: "hmac mismatch"}
	}

	status := paymentdomain.WebhookStatusFailed
	if success == "true" {
		status = paymentdomain.WebhookStatusSuccess
	}

	return paymentdomain.ValidationResult{
		Valid:             true,
		MerchantReference: reference,
		Status:            status,
		TransactionID:     transactionID,
	}
}

type notification struct {
	Type string           `json:"type"`
	Obj  notificationItem `json:"obj"`
}

type notificationItem struct {
	ID              int64  `json:"id"`
	Success         bool   `json:"success"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	MerchantOrderID string `json:"merchant_order_id"`
	CreatedAt       string `json:"created_at"`
}

// VerifyWebhook recomputes the HMAC over the transaction fields in their
// contractual order. The fields are read from the raw payload exactly as
// delivered; nothing is re-serialized before signing.
func (a *Adapter) VerifyWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(hmacHeader))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}

	var note notification
	if err := json.Unmarshal(payload, &note); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if note.Obj.ID == 0 {
		return paymentdomain.ErrInvalidPayload
	}

	expected := a.hmacHex([]byte(signingString(note.Obj)))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte) (*paymentdomain.WebhookEvent, error) {
	var note notification
	if err := json.Unmarshal(payload, &note); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(note.Type) != "TRANSACTION" {
		return nil, paymentdomain.ErrEventIgnored
	}
	if note.Obj.ID == 0 || strings.TrimSpace(note.Obj.MerchantOrderID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	status := paymentdomain.WebhookStatusFailed
	if note.Obj.Success {
		status = paymentdomain.WebhookStatusSuccess
	}

	occurredAt := time.Now().UTC()
	if parsed, err := time.Parse(time.RFC3339, note.Obj.CreatedAt); err == nil {
		occurredAt = parsed.UTC()
	}

	return &paymentdomain.WebhookEvent{
		Gateway:           a.Gateway(),
		ProviderEventID:   strconv.FormatInt(note.Obj.ID, 10),
		MerchantReference: strings.TrimSpace(note.Obj.MerchantOrderID),
		Status:            status,
		TransactionID:     strconv.FormatInt(note.Obj.ID, 10),
		AmountCents:       note.Obj.AmountCents,
		Currency:          strings.ToUpper(strings.TrimSpace(note.Obj.Currency)),
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
		"auth_token":     a.apiKey,
		"transaction_id": transactionID,
		"amount_cents":   req.AmountCents,
		"reason":         req.Reason,
	})
	if err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "encode refund request"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.refundURL, bytes.NewReader(body))
	if err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "build refund request"}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "gateway unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	var decoded struct {
		ID      int64  `json:"id"`
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return paymentdomain.RefundResult{ErrorMessage: "decode refund response"}
	}
	if resp.StatusCode != http.StatusOK || !decoded.Success {
		message := decoded.Message
		if message == "" {
			message = fmt.Sprintf("refund rejected (http %d)", resp.StatusCode)
		}
		return paymentdomain.RefundResult{ErrorMessage: message}
	}

	return paymentdomain.RefundResult{
		Success:             true,
		RefundTransactionID: strconv.FormatInt(decoded.ID, 10),
	}
}

func signingString(item notificationItem) string {
	return strings.Join([]string{
		strconv.FormatInt(item.AmountCents, 10),
		item.CreatedAt,
		item.Currency,
		strconv.FormatInt(item.ID, 10),
		item.MerchantOrderID,
		strconv.FormatBool(item.Success),
	}, ":")
}

func (a *Adapter) hmacHex(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(a.hmacSecret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
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
