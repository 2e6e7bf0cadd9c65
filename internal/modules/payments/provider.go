package payments

import (
	"context"
	"net/http"

	"geethika.lk/app/internal/config"
)

type CheckoutRequest struct {
	OrderID        string
	OrderNumber    string
	AmountCents    int
	Currency       string
	IdempotencyKey string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
}

// CheckoutSession is what the storefront needs to open the gateway widget.
type CheckoutSession struct {
	GatewayOrderID string
	KeyID          string
}

type RefundRequest struct {
	OrderID        string
	PaymentID      string
	PaymentRef     string // gateway payment id
	AmountCents    int
	Currency       string
	IdempotencyKey string
	Reason         string
}

type RefundResponse struct {
	ProviderRef string
	Status      string // initiated|succeeded|failed
}

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

type WebhookEvent struct {
	EventID string
	Type    string

	GatewayOrderID string // payments.provider_ref
	PaymentRef     string // gateway payment id
	RefundRef      string // refunds.provider_ref

	AmountCents int
	Currency    string
	Reason      string
}

type Provider interface {
	Name() string
	KeyID() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// VerifyPaymentSignature checks the signature the widget hands back to the
	// browser after a successful payment.
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	RefundPayment(ctx context.Context, req RefundRequest) (RefundResponse, error)

	// Webhook: verify signature + parse event
	VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error)
}

func NewProvider(cfg config.PaymentsConfig) (Provider, error) {
	switch cfg.Provider {
	case "mock", "":
		return NewMock(cfg.KeySecret, cfg.WebhookSecret), nil
	case "gateway":
		return NewSignedGateway(cfg.APIBaseURL, cfg.KeyID, cfg.KeySecret, cfg.WebhookSecret), nil
	default:
		return nil, ErrUnknownProvider
	}
}
