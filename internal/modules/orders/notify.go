package orders

import (
	"context"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/shared/money"
)

// Notifier turns order changes into outbox jobs. A nil outbox disables email.
type Notifier struct {
	outbox  *email.Outbox
	baseURL string
}

func NewNotifier(outbox *email.Outbox, appBaseURL string) *Notifier {
	return &Notifier{outbox: outbox, baseURL: strings.TrimRight(appBaseURL, "/")}
}

func (n *Notifier) TrackURL(o Order) string {
	return n.baseURL + "/track?order=" + url.QueryEscape(o.OrderNumber) + "&email=" + url.QueryEscape(o.Email)
}

func (n *Notifier) OrderReceived(ctx context.Context, tx *gorm.DB, o Order, items []OrderItem) error {
	lines := make([]map[string]any, 0, len(items))
	for _, it := range items {
		lines = append(lines, map[string]any{
			"Name": it.ProductName,
			"Qty":  it.Quantity,
			"Line": money.Format(it.LineTotalCents),
		})
	}
	method := "Cash on delivery"
	if o.PaymentMethod == MethodOnline {
		method = "Card / online"
	}
	return n.enqueue(ctx, tx, o, email.TplOrderReceived, map[string]any{
		"Items":         lines,
		"Total":         money.Format(o.TotalCents),
		"PaymentMethod": method,
	})
}

func (n *Notifier) PaymentReceived(ctx context.Context, tx *gorm.DB, o Order, amountCents int) error {
	return n.enqueue(ctx, tx, o, email.TplPaymentReceived, map[string]any{
		"Amount": money.Format(amountCents),
	})
}

func (n *Notifier) StatusChanged(ctx context.Context, tx *gorm.DB, o Order, status, note, courier, trackingNumber string) error {
	return n.enqueue(ctx, tx, o, email.TplOrderStatusChanged, map[string]any{
		"Status":         status,
		"Note":           note,
		"Courier":        courier,
		"TrackingNumber": trackingNumber,
	})
}

func (n *Notifier) ReviewURL(o Order) string {
	return n.baseURL + "/account/orders/" + o.ID
}

// DesignProofReady is sent when an admin uploads a new proof version.
func (n *Notifier) DesignProofReady(ctx context.Context, tx *gorm.DB, o Order, itemName string, version int, proofURL string) error {
	return n.enqueue(ctx, tx, o, email.TplDesignProofReady, map[string]any{
		"ItemName":  itemName,
		"Version":   version,
		"ProofURL":  proofURL,
		"ReviewURL": n.ReviewURL(o),
	})
}

func (n *Notifier) enqueue(ctx context.Context, tx *gorm.DB, o Order, tpl string, payload map[string]any) error {
	if n == nil || n.outbox == nil {
		return nil
	}
	payload["Name"] = o.CustomerName
	payload["OrderNumber"] = o.OrderNumber
	payload["TrackURL"] = n.TrackURL(o)
	return n.outbox.EnqueueTx(ctx, tx, email.Job{To: o.Email, Template: tpl, Payload: payload})
}
