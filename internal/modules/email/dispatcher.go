package email

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/shared/textutil"
)

type Dispatcher struct {
	db          *gorm.DB
	sender      Sender
	renderer    *Renderer
	logger      *slog.Logger
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
	now         func() time.Time
}

func NewDispatcher(db *gorm.DB, sender Sender, renderer *Renderer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		db:          db,
		sender:      sender,
		renderer:    renderer,
		logger:      logger,
		BatchSize:   20,
		Interval:    5 * time.Second,
		MaxAttempts: 5,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run polls for due jobs until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	t := time.NewTicker(d.Interval)
	defer t.Stop()
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.ErrorContext(ctx, "email_dispatch_failed", slog.Any("err", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// DispatchOnce sends one batch of due jobs and returns how many were sent.
// Rows are locked with SKIP LOCKED so several instances can run side by side.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	sent := 0
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobs []EmailJob
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", JobPending, d.now()).
			Order("created_at ASC").
			Limit(d.BatchSize).
			Find(&jobs).Error; err != nil {
			return err
		}

		for _, j := range jobs {
			updates := d.deliver(ctx, j)
			if updates["status"] == JobSent {
				sent++
			}
			if err := tx.Model(&EmailJob{}).Where("id = ?", j.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return sent, err
}

func (d *Dispatcher) deliver(ctx context.Context, j EmailJob) map[string]any {
	now := d.now()
	attempts := j.Attempts + 1
	updates := map[string]any{"attempts": attempts, "updated_at": now}

	var payload map[string]any
	if len(j.Payload) > 0 {
		if err := json.Unmarshal(j.Payload, &payload); err != nil {
			return d.fail(updates, j, err, true)
		}
	}

	msg, err := d.renderer.Render(j.Template, j.To, payload)
	if err != nil {
		return d.fail(updates, j, err, true)
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		permanent := attempts >= d.MaxAttempts
		if !permanent {
			// quadratic backoff: 1m, 4m, 9m, ...
			updates["next_attempt_at"] = now.Add(time.Duration(attempts*attempts) * time.Minute)
		}
		return d.fail(updates, j, err, permanent)
	}

	updates["status"] = JobSent
	updates["sent_at"] = now
	updates["last_error"] = nil
	d.logger.InfoContext(ctx, "email_sent",
		slog.String("job_id", j.ID),
		slog.String("template", j.Template),
		slog.String("to", j.To),
	)
	return updates
}

func (d *Dispatcher) fail(updates map[string]any, j EmailJob, err error, permanent bool) map[string]any {
	msg := textutil.Truncate(err.Error(), 500)
	updates["last_error"] = msg
	if permanent {
		updates["status"] = JobFailed
	}
	d.logger.Warn("email_send_failed",
		slog.String("job_id", j.ID),
		slog.String("template", j.Template),
		slog.Bool("permanent", permanent),
		slog.String("err", msg),
	)
	return updates
}
