package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/domain/message"
	middlewarex "chatrelay/internal/http/middleware"
	"chatrelay/internal/provider/paypal"
	"chatrelay/internal/provider/whatsapp"
	"chatrelay/internal/services/payment"
	"chatrelay/internal/services/relay"
	"chatrelay/internal/store/nonce"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "your_webhook_secret"

type harness struct {
	router       http.Handler
	verifier     *paypal.Verifier
	mu           sync.Mutex
	sent         []message.Outbound
	executeCalls int32
	paypalDown   atomic.Bool
}

func (h *harness) outbox() []message.Outbound {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]message.Outbound(nil), h.sent...)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{verifier: paypal.NewVerifier(webhookSecret)}

	wa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct{ To, Text string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		h.mu.Lock()
		h.sent = append(h.sent, message.Outbound{To: in.To, Text: in.Text})
		h.mu.Unlock()
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	t.Cleanup(wa.Close)

	pp := http.NewServeMux()
	pp.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	pp.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		if h.paypalDown.Load() {
			http.Error(w, `{"name":"INTERNAL_SERVICE_ERROR"}`, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id":"PAY-1","state":"created","links":[{"href":"https://paypal/approve","rel":"approval_url","method":"REDIRECT"}]}`))
	})
	pp.HandleFunc("/v1/payments/payment/PAY-1/execute", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&h.executeCalls, 1)
		_, _ = w.Write([]byte(`{"id":"PAY-1","state":"approved"}`))
	})
	pp.HandleFunc("/v1/payments/payment/PAY-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"PAY-1","state":"approved"}`))
	})
	pp.HandleFunc("/v1/payments/sale/SALE-1/refund", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"REF-1","state":"completed"}`))
	})
	ppSrv := httptest.NewServer(pp)
	t.Cleanup(ppSrv.Close)

	cfg := config.Cfg{
		WhatsApp: config.WhatsAppCfg{APIURL: wa.URL, AccessToken: "TEST_AUTH_TOKEN", VerifyToken: "TEST_VERIFY", MaxMessageLength: 2000, TimeoutSec: 2},
		PayPal:   config.PayPalCfg{Mode: "sandbox", APIURL: ppSrv.URL, ClientID: "id", ClientSecret: "secret", WebhookSecret: webhookSecret, TimeoutSec: 2},
	}

	h.router = NewRouter(RouterDependencies{
		Config:   cfg,
		Relay:    relay.NewService(whatsapp.New(cfg.WhatsApp), chat.NewClassifier(cfg.WhatsApp.MaxMessageLength)),
		Payments: payment.NewService(paypal.New(cfg), nonce.NewMemoryStore()),
		Verifier: h.verifier,
	})
	return h
}

func (h *harness) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) signed(body string) map[string]string {
	return map[string]string{paypal.SignatureHeader: h.verifier.Sign([]byte(body))}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookGreetingIsRelayed(t *testing.T) {
	h := newHarness(t)
	body := `{"object":"page","entry":[{"changes":[{"value":{"messages":[{"from":"1555","id":"m1","text":{"body":"Hello"}}]}}]}]}`

	rec := h.do(http.MethodPost, "/webhook", body, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	assert.Equal(t, []message.Outbound{{To: "1555", Text: chat.ReplyGreeting}}, h.outbox())
}

func TestWebhookEmptyPayloadIsNoOp(t *testing.T) {
	h := newHarness(t)

	for _, body := range []string{`{}`, `{"object":"page","entry":[{"changes":[{"value":{"messages":[]}}]}]}`} {
		rec := h.do(http.MethodPost, "/webhook", body, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	}
	assert.Empty(t, h.outbox())
}

func TestWebhookMalformedPayload(t *testing.T) {
	h := newHarness(t)

	for _, body := range []string{
		`{not json`,
		`{"object":"page","entry":[{"changes":[{"value":{"messages":[{"id":"m1","text":{"body":"hi"}}]}}]}]}`,
	} {
		rec := h.do(http.MethodPost, "/webhook", body, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)

		var out map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "error", out["status"])
		assert.NotEmpty(t, out["message"])
	}
	assert.Empty(t, h.outbox())
}

func TestWebhookVerification(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=TEST_VERIFY&hub.challenge=1158201444", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1158201444", rec.Body.String())

	rec = h.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Verification failed"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/webhook?hub.mode=unsubscribe&hub.verify_token=TEST_VERIFY&hub.challenge=1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayPalWebhookCompleted(t *testing.T) {
	h := newHarness(t)
	body := `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"S1","custom":"1555"}}`

	rec := h.do(http.MethodPost, "/paypal/webhook", body, h.signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	assert.Equal(t, []message.Outbound{{To: "1555", Text: relay.MsgPaymentCompleted}}, h.outbox())
}

func TestPayPalWebhookRefunded(t *testing.T) {
	h := newHarness(t)
	body := `{"event_type":"PAYMENT.SALE.REFUNDED","resource":{"id":"S1","custom":"1666"}}`

	rec := h.do(http.MethodPost, "/paypal/webhook", body, h.signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []message.Outbound{{To: "1666", Text: relay.MsgPaymentRefunded}}, h.outbox())
}

func TestPayPalWebhookOtherEventAcknowledged(t *testing.T) {
	h := newHarness(t)
	body := `{"event_type":"PAYMENT.SALE.PENDING","resource":{"id":"S1","custom":"1555"}}`

	rec := h.do(http.MethodPost, "/paypal/webhook", body, h.signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.outbox())
}

func TestPayPalWebhookEmptyFieldsAcknowledged(t *testing.T) {
	h := newHarness(t)

	for _, body := range []string{
		`{"event_type":"","resource":{}}`,
		`{"event_type":"PAYMENT.SALE.PENDING","resource":null}`,
	} {
		rec := h.do(http.MethodPost, "/paypal/webhook", body, h.signed(body))
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.JSONEq(t, `{"status":"success"}`, rec.Body.String(), body)
	}
	assert.Empty(t, h.outbox())
}

func TestPayPalWebhookBodyCap(t *testing.T) {
	h := newHarness(t)
	note := `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"custom":"1555"}}`
	body := note + strings.Repeat(" ", middlewarex.MaxWebhookBody)
	prefix := body[:middlewarex.MaxWebhookBody]

	// Bytes past the cap are never hashed.
	rec := h.do(http.MethodPost, "/paypal/webhook", body, h.signed(body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.outbox())

	// Verification and parsing both see the same capped prefix.
	rec = h.do(http.MethodPost, "/paypal/webhook", body, h.signed(prefix))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []message.Outbound{{To: "1555", Text: relay.MsgPaymentCompleted}}, h.outbox())
}

func TestPayPalWebhookRejections(t *testing.T) {
	h := newHarness(t)
	good := `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"custom":"1555"}}`
	malformed := `{"resource":{"custom":"1555"}}`

	// Unsigned malformed body: the missing signature is reported first.
	rec := h.do(http.MethodPost, "/paypal/webhook", malformed, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Missing signature"}`, rec.Body.String())

	// Signed but malformed: field check, never 401.
	rec = h.do(http.MethodPost, "/paypal/webhook", malformed, h.signed(malformed))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid webhook data"}`, rec.Body.String())

	// Signed, not JSON at all.
	rec = h.do(http.MethodPost, "/paypal/webhook", "garbage", h.signed("garbage"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Tampered body.
	tampered := strings.Replace(good, "1555", "1556", 1)
	rec = h.do(http.MethodPost, "/paypal/webhook", tampered, h.signed(good))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid signature"}`, rec.Body.String())

	assert.Empty(t, h.outbox())
}

func TestCreatePayment(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/create_payment", `{"payment":{"amount":10,"currency":"USD"}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","approval_url":"https://paypal/approve","payment_id":"PAY-1"}`, rec.Body.String())

	for _, body := range []string{`{}`, `{"payment":"ten"}`, `nope`, `{"payment":{"amount":0}}`} {
		rec = h.do(http.MethodPost, "/create_payment", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	h.paypalDown.Store(true)
	rec = h.do(http.MethodPost, "/create_payment", `{"payment":{"amount":10}}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Payment creation failed"}`, rec.Body.String())
}

func TestExecutePayment(t *testing.T) {
	h := newHarness(t)
	body := `{"payment_id":"PAY-1","payer_id":"PAYER","nonce":"n-1"}`

	rec := h.do(http.MethodPost, "/execute_payment", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Payment executed successfully"}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/execute_payment", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Nonce has already been used"}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/execute_payment", `{"payment_id":"PAY-1","payer_id":"PAYER"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.executeCalls))
}

func TestExecutePaymentConcurrentSameNonce(t *testing.T) {
	h := newHarness(t)
	body := `{"payment_id":"PAY-1","payer_id":"PAYER","nonce":"race"}`

	const n = 16
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = h.do(http.MethodPost, "/execute_payment", body, nil).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		if c == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusBadRequest, c)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.executeCalls))
}

func TestPaymentStatusAndRefund(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/payments/PAY-1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","payment_id":"PAY-1","state":"approved"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/payments/PAY-404", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = h.do(http.MethodPost, "/refund_payment", `{"sale_id":"SALE-1","amount":2.5,"currency":"USD"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Payment refunded successfully","refund_id":"REF-1"}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/refund_payment", `{"amount":2.5}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
