package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/modules/orders"
)

type WebhookService struct {
	db       *gorm.DB
	notifier *orders.Notifier
	logger   *slog.Logger
}

func NewWebhookService(db *gorm.DB, n *orders.Notifier, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{db: db, notifier: n, logger: logger}
}

var gatewayActor = orders.Actor{Role: orders.ActorGateway}

// Handle stores the event once per (provider, event_id) and applies it. A
// returned error means the gateway should retry delivery.
func (s *WebhookService) Handle(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	payload := datatypes.JSON(rawBody)
	if len(payload) == 0 {
		payload = datatypes.JSON("{}")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		pe := ProviderEvent{
			ID:          uuid.NewString(),
			Provider:    providerName,
			EventID:     ev.EventID,
			EventType:   ev.Type,
			PayloadJSON: payload,
			ReceivedAt:  now,
		}

		// dedupe: unique(provider,event_id)
		res := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&pe)
		if res.Error != nil {
			s.logger.ErrorContext(ctx, "failed to persist provider event", "provider", providerName, "event_id", ev.EventID, "err", res.Error)
			return res.Error
		}
		if res.RowsAffected == 0 {
			s.logger.InfoContext(ctx, "webhook event deduplicated", "provider", providerName, "event_id", ev.EventID, "type", ev.Type)
			return nil
		}

		var applyErr error
		switch ev.Type {
		case EventPaymentCaptured:
			applyErr = s.applyPaymentCaptured(ctx, tx, providerName, ev, now)
		case EventPaymentFailed:
			applyErr = s.applyPaymentFailed(ctx, tx, providerName, ev, now)
		case EventRefundProcessed:
			applyErr = s.applyRefundProcessed(ctx, tx, providerName, ev, now)
		case EventRefundFailed:
			applyErr = s.applyRefundFailed(ctx, tx, providerName, ev, now)
		default:
			// stored and acknowledged; nothing to apply
			s.logger.WarnContext(ctx, "unhandled webhook event type", "provider", providerName, "event_id", ev.EventID, "type", ev.Type)
		}

		if applyErr != nil {
			s.logger.ErrorContext(ctx, "webhook event apply failed", "provider", providerName, "event_id", ev.EventID, "type", ev.Type, "error", applyErr.Error())
			// rolls back the provider_events row too, so the retry is not deduplicated
			return applyErr
		}

		if err := tx.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"processed_at": now}).Error; err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "webhook event processed", "provider", providerName, "event_id", ev.EventID, "type", ev.Type)
		return nil
	})
}

func (s *WebhookService) findPayment(ctx context.Context, tx *gorm.DB, provider string, ev WebhookEvent) (Payment, error) {
	if ev.GatewayOrderID == "" {
		return Payment{}, errors.New("missing order_id")
	}
	var p Payment
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("created_at DESC").
		First(&p, "provider = ? AND provider_ref = ?", provider, ev.GatewayOrderID).Error
	return p, err
}

func (s *WebhookService) applyPaymentCaptured(ctx context.Context, tx *gorm.DB, provider string, ev WebhookEvent, now time.Time) error {
	p, err := s.findPayment(ctx, tx, provider, ev)
	if err != nil {
		return err // not found: retry later
	}
	if p.Status == StatusSucceeded {
		return nil
	}
	if ev.AmountCents > 0 && ev.AmountCents != p.AmountCents {
		return errors.New("captured amount does not match payment")
	}
	return markPaidTx(ctx, tx, s.notifier, p, ev.PaymentRef, gatewayActor, now)
}

func (s *WebhookService) applyPaymentFailed(ctx context.Context, tx *gorm.DB, provider string, ev WebhookEvent, now time.Time) error {
	p, err := s.findPayment(ctx, tx, provider, ev)
	if err != nil {
		return err
	}
	// a late failure never overrides a capture
	if p.Status != StatusInitiated {
		return nil
	}
	reason := "provider webhook: failed"
	if ev.Reason != "" {
		reason = "provider webhook: " + ev.Reason
	}
	return markFailedTx(ctx, tx, p, reason, gatewayActor, now)
}

func (s *WebhookService) findRefund(ctx context.Context, tx *gorm.DB, provider string, ev WebhookEvent) (Refund, error) {
	if ev.RefundRef == "" {
		return Refund{}, errors.New("missing refund_id")
	}
	var r Refund
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "provider = ? AND provider_ref = ?", provider, ev.RefundRef).Error
	return r, err
}

func (s *WebhookService) applyRefundProcessed(ctx context.Context, tx *gorm.DB, provider string, ev WebhookEvent, now time.Time) error {
	r, err := s.findRefund(ctx, tx, provider, ev)
	if err != nil {
		return err
	}
	// a refund already settled either way is never applied again
	if r.Status != StatusInitiated {
		return nil
	}
	if err := tx.WithContext(ctx).Model(&Refund{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"status":        StatusSucceeded,
			"error_message": nil,
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}
	return applyRefundSucceededTx(ctx, tx, r, gatewayActor, now)
}

func (s *WebhookService) applyRefundFailed(ctx context.Context, tx *gorm.DB, provider string, ev WebhookEvent, now time.Time) error {
	r, err := s.findRefund(ctx, tx, provider, ev)
	if err != nil {
		return err
	}
	if r.Status != StatusInitiated {
		return nil
	}
	if err := tx.WithContext(ctx).Model(&Refund{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": "provider webhook: failed",
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}

	// ledger: refund_failed (0)
	if err := orders.EnsureFinancialEntry(ctx, tx, orders.FinancialEntry{
		OrderID:     r.OrderID,
		Event:       orders.LedgerRefundFailed,
		AmountCents: 0,
		Currency:    r.Currency,
		RefType:     "refund",
		RefID:       r.ID,
		CreatedAt:   now,
	}); err != nil {
		return err
	}
	return orders.RecordEvent(ctx, tx, r.OrderID, gatewayActor, "refund_failed", "", "", "refund_id="+r.ID, now)
}
