package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader  = "X-Gateway-Signature"
	WebhookTolerance = 5 * time.Minute
)

// PaymentSignature is hex(HMAC-SHA256(gatewayOrderID|gatewayPaymentID)).
func PaymentSignature(secret, gatewayOrderID, gatewayPaymentID string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(m.Sum(nil))
}

func verifyPaymentSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if secret == "" || gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	want := PaymentSignature(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// WebhookSignature returns the header value "t=<unix>,v1=<hex hmac(t.body)>".
func WebhookSignature(secret string, t int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", t, computeSig([]byte(secret), t, body))
}

func computeSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func verifyWebhookSignature(secret, header string, body []byte, now time.Time) error {
	if secret == "" || header == "" {
		return ErrInvalidWebhook
	}
	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidWebhook
			}
			ts = n
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return ErrInvalidWebhook
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > WebhookTolerance || age < -WebhookTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidWebhook)
	}
	want := computeSig([]byte(secret), ts, body)
	for _, s := range sigs {
		if hmac.Equal([]byte(want), []byte(s)) {
			return nil
		}
	}
	return ErrInvalidWebhook
}

// WebhookPayload is the JSON body the gateway posts.
type WebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		OrderID     string `json:"order_id"`
		PaymentID   string `json:"payment_id"`
		RefundID    string `json:"refund_id,omitempty"`
		AmountCents int    `json:"amount_cents"`
		Currency    string `json:"currency"`
		Reason      string `json:"reason,omitempty"`
	} `json:"data"`
}

func parseWebhook(body []byte) (WebhookEvent, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if p.ID == "" || p.Type == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing id or type", ErrInvalidWebhook)
	}
	return WebhookEvent{
		EventID:        p.ID,
		Type:           p.Type,
		GatewayOrderID: p.Data.OrderID,
		PaymentRef:     p.Data.PaymentID,
		RefundRef:      p.Data.RefundID,
		AmountCents:    p.Data.AmountCents,
		Currency:       p.Data.Currency,
		Reason:         p.Data.Reason,
	}, nil
}
