package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SignedGateway talks to the card gateway's REST API with basic auth. Payment
// and webhook signatures are HMAC-SHA256 with the key and webhook secrets.
type SignedGateway struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	client        *http.Client
	now           func() time.Time
}

func NewSignedGateway(baseURL, keyID, keySecret, webhookSecret string) *SignedGateway {
	return &SignedGateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
	}
}

func (g *SignedGateway) Name() string  { return "gateway" }
func (g *SignedGateway) KeyID() string { return g.keyID }

type gatewayOrderRequest struct {
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type gatewayObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

func (g *SignedGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	var out gatewayObject
	err := g.post(ctx, "/v1/orders", req.IdempotencyKey, gatewayOrderRequest{
		Amount:   req.AmountCents,
		Currency: req.Currency,
		Receipt:  req.OrderNumber,
		Notes: map[string]string{
			"order_id": req.OrderID,
			"email":    req.CustomerEmail,
			"phone":    req.CustomerPhone,
		},
	}, &out)
	if err != nil {
		return CheckoutSession{}, err
	}
	if out.ID == "" {
		return CheckoutSession{}, fmt.Errorf("gateway: empty order id")
	}
	return CheckoutSession{GatewayOrderID: out.ID, KeyID: g.keyID}, nil
}

func (g *SignedGateway) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return verifyPaymentSignature(g.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

func (g *SignedGateway) RefundPayment(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	if req.PaymentRef == "" {
		return RefundResponse{}, fmt.Errorf("gateway: payment reference missing")
	}
	var out gatewayObject
	err := g.post(ctx, "/v1/payments/"+req.PaymentRef+"/refund", req.IdempotencyKey, map[string]any{
		"amount": req.AmountCents,
		"notes":  map[string]string{"reason": req.Reason, "order_id": req.OrderID},
	}, &out)
	if err != nil {
		return RefundResponse{}, err
	}
	status := StatusInitiated
	switch out.Status {
	case "processed":
		status = StatusSucceeded
	case "failed":
		status = StatusFailed
	}
	return RefundResponse{ProviderRef: out.ID, Status: status}, nil
}

func (g *SignedGateway) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	if err := verifyWebhookSignature(g.webhookSecret, headers.Get(SignatureHeader), body, g.now()); err != nil {
		return WebhookEvent{}, err
	}
	return parseWebhook(body)
}

func (g *SignedGateway) post(ctx context.Context, path, idemKey string, in any, out *gatewayObject) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	_ = json.Unmarshal(raw, out)

	if res.StatusCode >= 400 {
		if out.Error != nil && out.Error.Description != "" {
			return fmt.Errorf("gateway API error %d: %s", res.StatusCode, out.Error.Description)
		}
		return fmt.Errorf("gateway API error: %d", res.StatusCode)
	}
	return nil
}
