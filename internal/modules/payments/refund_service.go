package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/modules/orders"
)

type RefundService struct {
	db       *gorm.DB
	provider Provider
}

func NewRefundService(db *gorm.DB, p Provider) *RefundService {
	return &RefundService{db: db, provider: p}
}

type RefundOrderInput struct {
	OrderID        string
	ActorUserID    string
	IdempotencyKey string
	AmountCents    int // 0 refunds whatever is left
	Reason         string
}

type RefundOrderResult struct {
	RefundID    string
	Status      string
	AmountCents int
	Idempotent  bool
}

func (s *RefundService) RefundOrder(ctx context.Context, in RefundOrderInput) (RefundOrderResult, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.OrderID == "" || in.ActorUserID == "" {
		return RefundOrderResult{}, ErrNotRefundable
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return RefundOrderResult{}, ErrIdempotencyKeyRequired
	}
	if in.AmountCents < 0 {
		return RefundOrderResult{}, ErrNotRefundable
	}
	actorID := in.ActorUserID
	actor := orders.Actor{UserID: &actorID, Role: orders.ActorAdmin}

	// record an initiated refund against the captured payment while the order is locked
	var ord orders.Order
	var pay Payment
	var ref Refund
	idempotent := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ord, err = lockOrder(ctx, tx, in.OrderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.ErrNotFound
			}
			return err
		}

		// latest captured payment
		if err := tx.WithContext(ctx).
			Order("updated_at DESC").
			First(&pay, "order_id = ? AND status = ?", ord.ID, StatusSucceeded).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSucceededPayment
			}
			return err
		}

		// same key on the same payment replays the earlier refund
		var existing Refund
		e := tx.WithContext(ctx).First(&existing, "payment_id = ? AND idempotency_key = ?", pay.ID, in.IdempotencyKey).Error
		if e == nil {
			ref = existing
			idempotent = true
			return nil
		}
		if !errors.Is(e, gorm.ErrRecordNotFound) {
			return e
		}

		if ord.PaymentStatus != orders.PaymentPaid && ord.PaymentStatus != orders.PaymentPartiallyRefunded {
			return ErrNotRefundable
		}

		// in-flight refunds count against the remaining amount
		var pending int64
		if err := tx.WithContext(ctx).Model(&Refund{}).
			Select("COALESCE(SUM(amount_cents), 0)").
			Where("order_id = ? AND status = ?", ord.ID, StatusInitiated).
			Row().Scan(&pending); err != nil {
			return err
		}
		remaining := ord.TotalCents - ord.RefundedCents - int(pending)
		if remaining <= 0 {
			return ErrNotRefundable
		}

		amount := in.AmountCents
		if amount == 0 || amount > remaining {
			amount = remaining
		}

		now := time.Now().UTC()
		var reasonPtr *string
		if in.Reason != "" {
			reasonPtr = ptr(truncate(in.Reason, 250))
		}

		ref = Refund{
			ID:             uuid.NewString(),
			OrderID:        ord.ID,
			PaymentID:      pay.ID,
			Provider:       s.provider.Name(),
			Status:         StatusInitiated,
			AmountCents:    amount,
			Currency:       ord.Currency,
			IdempotencyKey: in.IdempotencyKey,
			Reason:         reasonPtr,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.WithContext(ctx).Create(&ref).Error
	})
	if err != nil {
		return RefundOrderResult{}, err
	}

	// idempotent hit: the provider was already called for this key
	if idempotent && (ref.Status != StatusInitiated || ref.ProviderRef != nil) {
		return RefundOrderResult{RefundID: ref.ID, Status: ref.Status, AmountCents: ref.AmountCents, Idempotent: true}, nil
	}

	// the provider is called outside any transaction
	paymentRef := ""
	if pay.ProviderPaymentID != nil {
		paymentRef = *pay.ProviderPaymentID
	}
	resp, perr := s.provider.RefundPayment(ctx, RefundRequest{
		OrderID:        ord.ID,
		PaymentID:      pay.ID,
		PaymentRef:     paymentRef,
		AmountCents:    ref.AmountCents,
		Currency:       ref.Currency,
		IdempotencyKey: in.IdempotencyKey,
		Reason:         in.Reason,
	})

	// settle
	finalStatus := resp.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var cur Refund
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cur, "id = ?", ref.ID).Error; err != nil {
			return err
		}
		// a webhook may have finalized it meanwhile
		if cur.Status != StatusInitiated {
			finalStatus = cur.Status
			return nil
		}

		upd := map[string]any{"updated_at": now}
		if resp.ProviderRef != "" {
			upd["provider_ref"] = resp.ProviderRef
		}

		if perr == nil && resp.Status == StatusInitiated {
			// async: webhook will finalize it
			return tx.WithContext(ctx).Model(&Refund{}).Where("id = ?", ref.ID).Updates(upd).Error
		}

		if perr != nil || resp.Status != StatusSucceeded {
			msg := "refund failed"
			if perr != nil {
				msg = perr.Error()
			}
			finalStatus = StatusFailed
			upd["status"] = StatusFailed
			upd["error_message"] = truncate(msg, 250)
			if err := tx.WithContext(ctx).Model(&Refund{}).Where("id = ?", ref.ID).Updates(upd).Error; err != nil {
				return err
			}
			if err := orders.EnsureFinancialEntry(ctx, tx, orders.FinancialEntry{
				OrderID:     ord.ID,
				Event:       orders.LedgerRefundFailed,
				AmountCents: 0,
				Currency:    ord.Currency,
				RefType:     "refund",
				RefID:       ref.ID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			return orders.RecordEvent(ctx, tx, ord.ID, actor, "refund_failed", "", "", "refund failed: "+msg, now)
		}

		upd["status"] = StatusSucceeded
		upd["error_message"] = nil
		if err := tx.WithContext(ctx).Model(&Refund{}).Where("id = ?", ref.ID).Updates(upd).Error; err != nil {
			return err
		}
		return applyRefundSucceededTx(ctx, tx, ref, actor, now)
	})
	if err != nil {
		return RefundOrderResult{}, err
	}

	return RefundOrderResult{RefundID: ref.ID, Status: finalStatus, AmountCents: ref.AmountCents, Idempotent: idempotent}, nil
}

func (s *RefundService) ListForOrder(ctx context.Context, orderID string) ([]Refund, error) {
	var out []Refund
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out, "order_id = ?", orderID).Error
	return out, err
}
