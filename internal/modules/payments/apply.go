package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/shared/textutil"
)

// markPaidTx records a captured payment. The caller holds the payment row
// lock; the order row is locked here.
func markPaidTx(ctx context.Context, tx *gorm.DB, n *orders.Notifier, p Payment, gatewayPaymentID string, actor orders.Actor, now time.Time) error {
	upd := map[string]any{
		"status":        StatusSucceeded,
		"error_message": nil,
		"updated_at":    now,
	}
	if gatewayPaymentID != "" {
		upd["provider_payment_id"] = gatewayPaymentID
	}
	if err := tx.WithContext(ctx).Model(&Payment{}).Where("id = ?", p.ID).Updates(upd).Error; err != nil {
		return err
	}

	o, err := lockOrder(ctx, tx, p.OrderID)
	if err != nil {
		return err
	}

	from := o.Status
	to := from
	orderUpd := map[string]any{
		"payment_status": orders.PaymentPaid,
		"paid_at":        now,
		"updated_at":     now,
	}
	note := "payment " + p.ID
	if from == orders.StatusPending {
		to = orders.StatusConfirmed
		orderUpd["status"] = to
	} else if from == orders.StatusCancelled {
		// money arrived after the order expired; keep it cancelled so an admin refunds it
		note = "payment received after cancellation, refund required"
	}
	if err := tx.WithContext(ctx).Model(&orders.Order{}).Where("id = ?", o.ID).Updates(orderUpd).Error; err != nil {
		return err
	}

	if err := orders.EnsureFinancialEntry(ctx, tx, orders.FinancialEntry{
		OrderID:     o.ID,
		Event:       orders.LedgerPaymentSucceeded,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		RefType:     "payment",
		RefID:       p.ID,
		CreatedAt:   now,
	}); err != nil {
		return err
	}
	if err := orders.RecordEvent(ctx, tx, o.ID, actor, "payment_received", from, to, note, now); err != nil {
		return err
	}
	o.Status = to
	return n.PaymentReceived(ctx, tx, o, p.AmountCents)
}

// markFailedTx marks an attempt failed; the order stays pending so the
// customer can try again.
func markFailedTx(ctx context.Context, tx *gorm.DB, p Payment, reason string, actor orders.Actor, now time.Time) error {
	reason = truncate(reason, 250)
	if err := tx.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": reason,
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("id = ? AND payment_status = ?", p.OrderID, orders.PaymentUnpaid).
		Updates(map[string]any{"payment_status": orders.PaymentFailed, "updated_at": now}).Error; err != nil {
		return err
	}
	return orders.RecordEvent(ctx, tx, p.OrderID, actor, "payment_failed", "", "", reason, now)
}

// applyRefundSucceededTx moves refunded cents onto the order and writes the
// negative ledger entry.
func applyRefundSucceededTx(ctx context.Context, tx *gorm.DB, r Refund, actor orders.Actor, now time.Time) error {
	o, err := lockOrder(ctx, tx, r.OrderID)
	if err != nil {
		return err
	}

	newRefunded := o.RefundedCents + r.AmountCents
	payStatus := orders.PaymentPartiallyRefunded
	if newRefunded >= o.TotalCents {
		newRefunded = o.TotalCents
		payStatus = orders.PaymentRefunded
	}

	if err := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{
			"refunded_cents": newRefunded,
			"payment_status": payStatus,
			"updated_at":     now,
		}).Error; err != nil {
		return err
	}

	// ledger: refund_succeeded (-)
	if err := orders.EnsureFinancialEntry(ctx, tx, orders.FinancialEntry{
		OrderID:     r.OrderID,
		Event:       orders.LedgerRefundSucceeded,
		AmountCents: -r.AmountCents,
		Currency:    r.Currency,
		RefType:     "refund",
		RefID:       r.ID,
		CreatedAt:   now,
	}); err != nil {
		return err
	}
	return orders.RecordEvent(ctx, tx, o.ID, actor, "refund", o.Status, o.Status, "refund_id="+r.ID, now)
}

func lockOrder(ctx context.Context, tx *gorm.DB, id string) (orders.Order, error) {
	var o orders.Order
	err := tx.WithContext(ctx).
		Clauses(lockForUpdate()).
		First(&o, "id = ?", id).Error
	return o, err
}

func truncate(s string, n int) string { return textutil.Truncate(s, n) }

func ptr(s string) *string { return &s }
