package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"geethika.lk/app/internal/modules/checkout"
)

// paymentExpired mirrors the payments module status; orders cannot import it.
const paymentExpired = "expired"

// cancelTx moves a locked order to cancelled, puts its stock back and closes
// any payment attempts still in flight.
func cancelTx(ctx context.Context, tx *gorm.DB, o *Order, actor Actor, action, note string, now time.Time) error {
	from := o.Status
	res := tx.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", o.ID, from).
		Updates(map[string]any{
			"status":       StatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrInvalidTransition
	}

	var items []OrderItem
	if err := tx.WithContext(ctx).Find(&items, "order_id = ?", o.ID).Error; err != nil {
		return err
	}
	lines := make([]checkout.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, checkout.StockLine{ProductID: it.ProductID, Qty: it.Quantity})
	}
	if err := checkout.RestoreStockInTx(ctx, tx, lines); err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Table("payments").
		Where("order_id = ? AND status = ?", o.ID, "initiated").
		Updates(map[string]any{"status": paymentExpired, "updated_at": now}).Error; err != nil {
		return err
	}

	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	return RecordEvent(ctx, tx, o.ID, actor, action, from, StatusCancelled, note, now)
}

func cancellable(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}
