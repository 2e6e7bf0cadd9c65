package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/database"
)

// Reaper cancels online orders that were never paid within the TTL so their
// stock goes back on sale.
type Reaper struct {
	db       *gorm.DB
	notifier *Notifier
	logger   *slog.Logger

	TTL       time.Duration
	Interval  time.Duration
	BatchSize int
}

func NewReaper(db *gorm.DB, notifier *Notifier, ttl, interval time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{db: db, notifier: notifier, logger: logger, TTL: ttl, Interval: interval, BatchSize: 50}
}

func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		if n, err := r.ExpireOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.ErrorContext(ctx, "order reaper failed", slog.Any("err", err))
		} else if n > 0 {
			r.logger.InfoContext(ctx, "expired unpaid orders", slog.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// ExpireOnce processes one batch and returns how many orders were cancelled.
func (r *Reaper) ExpireOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.TTL)

	var ids []string
	if err := r.db.WithContext(ctx).Model(&Order{}).
		Where("status = ? AND payment_method = ? AND payment_status IN ? AND created_at < ?",
			StatusPending, MethodOnline, []string{PaymentUnpaid, PaymentFailed}, cutoff).
		Order("created_at ASC").
		Limit(r.BatchSize).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		ok, err := r.expire(ctx, id, cutoff)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *Reaper) expire(ctx context.Context, orderID string, cutoff time.Time) (bool, error) {
	expired := false
	err := database.WithTxRetry(ctx, r.db, txAttempts, func(tx *gorm.DB) error {
		expired = false
		var o Order
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		// a payment may have landed between the scan and the lock
		if o.Status != StatusPending || o.PaymentStatus == PaymentPaid || !o.CreatedAt.Before(cutoff) {
			return nil
		}
		now := time.Now().UTC()
		if err := cancelTx(ctx, tx, &o, SystemActor(), "expire", "payment not completed in time", now); err != nil {
			return err
		}
		expired = true
		return r.notifier.StatusChanged(ctx, tx, o, StatusCancelled, "We did not receive payment in time, so the order was cancelled.", "", "")
	})
	return expired, err
}
