package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nilemart/storefront/internal/config"
	obsmetrics "github.com/nilemart/storefront/internal/observability/metrics"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	orderrepo "github.com/nilemart/storefront/internal/order/repository"
	orderservice "github.com/nilemart/storefront/internal/order/service"
	"github.com/nilemart/storefront/internal/payment/adapters"
	"github.com/nilemart/storefront/internal/payment/adapters/kashier"
	"github.com/nilemart/storefront/internal/payment/correlation"
	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/payment/refund"
	paymentrepo "github.com/nilemart/storefront/internal/payment/repository"
	paymentservice "github.com/nilemart/storefront/internal/payment/service"
	"github.com/nilemart/storefront/internal/payment/strategy"
	"github.com/nilemart/storefront/internal/payment/webhook"
)

const (
	testAPIKey     = "test-api-key"
	testAdminToken = "admin-token"
)

type testServer struct {
	srv    *Server
	db     *gorm.DB
	node   *snowflake.Node
	orders orderdomain.Repository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&orderdomain.Order{}, &paymentdomain.EventRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		AppName:    "nilemart",
		BaseURL:    "http://localhost:8080",
		HTTPAddr:   ":8080",
		AdminToken: testAdminToken,
	}

	holder, err := config.NewGatewayConfigHolder()
	require.NoError(t, err)
	holder.SetForTest(map[string]config.GatewayConfig{
		"kashier": {MerchantID: "MID-100", APIKey: testAPIKey},
	})

	log := zap.NewNop()
	orders := orderrepo.Provide()
	registry := adapters.NewRegistry(kashier.NewFactory())
	tokens := correlation.NewMemoryStore()

	orderSvc := orderservice.New(orderservice.Params{DB: db, Log: log, GenID: node, Repo: orders})
	state := paymentservice.New(paymentservice.Params{DB: db, Log: log, OrderRepo: orders})

	router, err := strategy.NewRouter(
		strategy.NewCOD(cfg.BaseURL, state),
		strategy.NewInstapay(cfg.BaseURL, state),
		strategy.NewOnline(strategy.OnlineParams{
			Gateway:  "kashier",
			Methods:  []orderdomain.PaymentMethod{orderdomain.MethodCard, orderdomain.MethodWallet},
			Registry: registry,
			Gateways: holder,
			Tokens:   tokens,
			State:    state,
			AppName:  cfg.AppName,
			BaseURL:  cfg.BaseURL,
			Log:      log,
		}),
	)
	require.NoError(t, err)

	webhookSvc := webhook.New(webhook.Params{
		DB:       db,
		Log:      log,
		Cfg:      cfg,
		Registry: registry,
		Gateways: holder,
		GenID:    node,
		Events:   paymentrepo.Provide(),
		Orders:   orders,
		Router:   router,
	})
	refundSvc := refund.New(refund.Params{DB: db, Log: log, Orders: orders, Router: router})

	promReg := prometheus.NewRegistry()
	engine := NewEngine(log, obsmetrics.NewHTTP(promReg), promReg)

	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		DB:         db,
		Log:        log,
		GenID:      node,
		OrderSvc:   orderSvc,
		Router:     router,
		State:      state,
		WebhookSvc: webhookSvc,
		RefundSvc:  refundSvc,
		Registry:   registry,
		Gateways:   holder,
		Tokens:     tokens,
	})

	return &testServer{srv: srv, db: db, node: node, orders: orders}
}

func (ts *testServer) seedOrder(t *testing.T, method orderdomain.PaymentMethod, status orderdomain.PaymentStatus) *orderdomain.Order {
	t.Helper()

	order := &orderdomain.Order{
		ID:             ts.node.Generate(),
		CustomerEmail:  "customer@example.com",
		TotalCents:     15050,
		Currency:       "EGP",
		PaymentMethod:  method,
		PaymentStatus:  status,
		PaymentDetails: datatypes.JSONMap{},
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, ts.db.Create(order).Error)
	return order
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(w, req)
	return w
}

func signedWebhook(eventID, reference, status string) (*bytes.Reader, http.Header) {
	event := "pay.success"
	if status == "FAILED" {
		event = "pay.failure"
	}
	payload := []byte(fmt.Sprintf(
		`{"event":%q,"data":{"eventId":%q,"merchantOrderId":%q,"status":%q,"transactionId":"txn-777","amount":15050,"currency":"EGP"}}`,
		event, eventID, reference, status,
	))
	mac := hmac.New(sha256.New, []byte(testAPIKey))
	mac.Write(payload)
	headers := http.Header{}
	headers.Set("X-Kashier-Signature", hex.EncodeToString(mac.Sum(nil)))
	headers.Set("Content-Type", "application/json")
	return bytes.NewReader(payload), headers
}

func TestWebhookSuccessFlow(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)

	body, headers := signedWebhook("evt-1", "nilemart-"+order.ID.String(), "SUCCESS")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/kashier", body)
	req.Header = headers

	w := ts.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())

	var stored orderdomain.Order
	require.NoError(t, ts.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderdomain.PaymentStatusPaid, stored.PaymentStatus)
}

func TestWebhookDuplicateAcked(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)
	ref := "nilemart-" + order.ID.String()

	for i := 0; i < 2; i++ {
		body, headers := signedWebhook("evt-1", ref, "SUCCESS")
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/kashier", body)
		req.Header = headers
		w := ts.do(req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	var count int64
	require.NoError(t, ts.db.Model(&paymentdomain.EventRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebhookBadSignature(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)

	body, _ := signedWebhook("evt-1", "nilemart-"+order.ID.String(), "SUCCESS")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/kashier", body)
	req.Header.Set("X-Kashier-Signature", "deadbeef")

	w := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookUnknownOrder(t *testing.T) {
	ts := newTestServer(t)

	body, headers := signedWebhook("evt-1", "nilemart-987654321", "SUCCESS")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/kashier", body)
	req.Header = headers

	w := ts.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookUnknownGateway(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", bytes.NewReader([]byte(`{}`)))
	w := ts.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAndPayCashOnDelivery(t *testing.T) {
	ts := newTestServer(t)

	createBody := []byte(`{"customer_email":"buyer@example.com","total_cents":9900,"payment_method":"cash_on_delivery"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Order orderdomain.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/api/orders/"+created.Order.ID.String()+"/pay", nil)
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var payResp struct {
		Payment paymentdomain.PaymentResult `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payResp))
	assert.Equal(t, "cod", payResp.Payment.Mode)
}

func TestInitiateCardPayment(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.String()+"/pay", nil)
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Payment paymentdomain.PaymentResult `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "nilemart-"+order.ID.String(), resp.Payment.OrderReference)
	assert.NotEmpty(t, resp.Payment.Hash)
	assert.Equal(t, "150.50", resp.Payment.Amount)
}

func TestInitiatePaymentOnPaidOrder(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPaid)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.String()+"/pay", nil)
	w := ts.do(req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProofUploadAndAdminReview(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodInstapay, orderdomain.PaymentStatusPending)

	proofBody := []byte(`{"proof_reference":"proofs/receipt-1.png","sender_name":"A. Buyer"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.String()+"/proof", bytes.NewReader(proofBody))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var stored orderdomain.Order
	require.NoError(t, ts.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderdomain.PaymentStatusInReview, stored.PaymentStatus)
	assert.Equal(t, "proofs/receipt-1.png", stored.PaymentProof)

	// Rejection sends it back to Pending with re-upload allowed.
	rejectBody := []byte(`{"reason":"amount mismatch"}`)
	req = httptest.NewRequest(http.MethodPost, "/admin/payments/"+order.ID.String()+"/reject", bytes.NewReader(rejectBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", testAdminToken)
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, ts.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderdomain.PaymentStatusPending, stored.PaymentStatus)

	// Re-upload, then confirm.
	req = httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.String()+"/proof", bytes.NewReader(proofBody))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/payments/"+order.ID.String()+"/confirm", bytes.NewReader([]byte(`{"note":"verified"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", testAdminToken)
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, ts.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderdomain.PaymentStatusPaid, stored.PaymentStatus)
}

func TestProofUploadWrongMethod(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.String()+"/proof", bytes.NewReader([]byte(`{"proof_reference":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodInstapay, orderdomain.PaymentStatusInReview)

	req := httptest.NewRequest(http.MethodPost, "/admin/payments/"+order.ID.String()+"/confirm", nil)
	w := ts.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/payments/"+order.ID.String()+"/confirm", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	w = ts.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentReturnSuccess(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)
	ref := "nilemart-" + order.ID.String()

	signed := fmt.Sprintf("merchantOrderId=%s&paymentStatus=SUCCESS&transactionId=txn-9", ref)
	mac := hmac.New(sha256.New, []byte(testAPIKey))
	mac.Write([]byte(signed))

	query := url.Values{}
	query.Set("merchantOrderId", ref)
	query.Set("paymentStatus", "SUCCESS")
	query.Set("transactionId", "txn-9")
	query.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	req := httptest.NewRequest(http.MethodGet, "/payments/return/kashier?"+query.Encode(), nil)
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var stored orderdomain.Order
	require.NoError(t, ts.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderdomain.PaymentStatusPaid, stored.PaymentStatus)
}

func TestPaymentReturnTamperedSignature(t *testing.T) {
	ts := newTestServer(t)
	order := ts.seedOrder(t, orderdomain.MethodCard, orderdomain.PaymentStatusPending)
	ref := "nilemart-" + order.ID.String()

	query := url.Values{}
	query.Set("merchantOrderId", ref)
	query.Set("paymentStatus", "SUCCESS")
	query.Set("transactionId", "txn-9")
	query.Set("signature", "forged")

	req := httptest.NewRequest(http.MethodGet, "/payments/return/kashier?"+query.Encode(), nil)
	w := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var stored orderdomain.Order
	require.NoError(t, ts.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderdomain.PaymentStatusPending, stored.PaymentStatus)
}

func TestListPaymentMethods(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/payment-methods", nil)
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PaymentMethods []paymentMethodInfo `json:"payment_methods"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.PaymentMethods, 4)
}
