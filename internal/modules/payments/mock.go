package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

// MockSecret signs payments and webhooks when the mock provider has no secrets configured.
const MockSecret = "mock_secret"

// Mock behaves like the gateway without any network calls. Refunds succeed
// synchronously; signatures use the same HMAC scheme.
type Mock struct {
	keySecret     string
	webhookSecret string
	now           func() time.Time
}

func NewMock(keySecret, webhookSecret string) *Mock {
	if keySecret == "" {
		keySecret = MockSecret
	}
	if webhookSecret == "" {
		webhookSecret = MockSecret
	}
	return &Mock{keySecret: keySecret, webhookSecret: webhookSecret, now: time.Now}
}

func (m *Mock) Name() string  { return "mock" }
func (m *Mock) KeyID() string { return "mock_key" }

func (m *Mock) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	return CheckoutSession{GatewayOrderID: "order_mock_" + randomHex(8), KeyID: m.KeyID()}, nil
}

func (m *Mock) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return verifyPaymentSignature(m.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

// Sign produces the signature the widget would return for a payment.
func (m *Mock) Sign(gatewayOrderID, gatewayPaymentID string) string {
	return PaymentSignature(m.keySecret, gatewayOrderID, gatewayPaymentID)
}

func (m *Mock) RefundPayment(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	return RefundResponse{ProviderRef: "rfnd_mock_" + randomHex(8), Status: StatusSucceeded}, nil
}

func (m *Mock) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	if err := verifyWebhookSignature(m.webhookSecret, headers.Get(SignatureHeader), body, m.now()); err != nil {
		return WebhookEvent{}, err
	}
	return parseWebhook(body)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
