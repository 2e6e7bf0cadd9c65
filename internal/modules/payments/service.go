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

type Service struct {
	db       *gorm.DB
	provider Provider
	notifier *orders.Notifier
}

func NewService(db *gorm.DB, p Provider, n *orders.Notifier) *Service {
	return &Service{db: db, provider: p, notifier: n}
}

func (s *Service) Provider() Provider { return s.provider }

// Payer proves access to an order: the signed-in owner, or a guest who knows
// the order email.
type Payer struct {
	UserID *string
	Email  string
}

func (p Payer) actor() orders.Actor {
	return orders.Actor{UserID: p.UserID, Role: orders.ActorCustomer}
}

func authorize(o orders.Order, p Payer) error {
	if o.UserID != nil {
		if p.UserID == nil || *p.UserID != *o.UserID {
			return ErrForbidden
		}
		return nil
	}
	// guest orders: signed-in users pass their account email
	if !strings.EqualFold(strings.TrimSpace(p.Email), o.Email) {
		return ErrForbidden
	}
	return nil
}

type InitiateInput struct {
	OrderID        string
	Payer          Payer
	IdempotencyKey string
}

type InitiateResult struct {
	OrderID        string
	OrderNumber    string
	PaymentID      string
	GatewayOrderID string
	KeyID          string
	AmountCents    int
	Currency       string
	Status         string
	Idempotent     bool
}

func (s *Service) InitiatePayment(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.OrderID == "" {
		return InitiateResult{}, ErrOrderNotPayable
	}
	if in.IdempotencyKey == "" {
		return InitiateResult{}, ErrIdempotencyKeyRequired
	}

	// Phase-1: order lock + idempotency check + payment initiated create
	var pay Payment
	var ord orders.Order
	idempotent := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ord, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.ErrNotFound
			}
			return err
		}
		if err := authorize(ord, in.Payer); err != nil {
			return err
		}

		var existing Payment
		e := tx.WithContext(ctx).First(&existing, "order_id = ? AND idempotency_key = ?", ord.ID, in.IdempotencyKey).Error
		if e == nil {
			pay = existing
			idempotent = true
			return nil
		}
		if !errors.Is(e, gorm.ErrRecordNotFound) {
			return e
		}

		if ord.Status != orders.StatusPending || ord.PaymentMethod != orders.MethodOnline {
			return ErrOrderNotPayable
		}
		if ord.PaymentStatus != orders.PaymentUnpaid && ord.PaymentStatus != orders.PaymentFailed {
			return ErrOrderNotPayable
		}

		now := time.Now().UTC()
		pay = Payment{
			ID:             uuid.NewString(),
			OrderID:        ord.ID,
			Provider:       s.provider.Name(),
			Status:         StatusInitiated,
			AmountCents:    ord.TotalCents,
			Currency:       ord.Currency,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.WithContext(ctx).Create(&pay).Error
	})
	if err != nil {
		return InitiateResult{}, err
	}

	result := InitiateResult{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		PaymentID:   pay.ID,
		KeyID:       s.provider.KeyID(),
		AmountCents: pay.AmountCents,
		Currency:    pay.Currency,
		Status:      pay.Status,
		Idempotent:  idempotent,
	}
	if pay.ProviderRef != nil {
		result.GatewayOrderID = *pay.ProviderRef
	}
	// same key: hand back the session created the first time
	if idempotent && (result.GatewayOrderID != "" || pay.Status != StatusInitiated) {
		return result, nil
	}

	// Phase-2: provider call (outside tx)
	sess, perr := s.provider.CreateCheckout(ctx, CheckoutRequest{
		OrderID:        ord.ID,
		OrderNumber:    ord.OrderNumber,
		AmountCents:    pay.AmountCents,
		Currency:       pay.Currency,
		IdempotencyKey: in.IdempotencyKey,
		CustomerName:   ord.CustomerName,
		CustomerEmail:  ord.Email,
		CustomerPhone:  ord.Phone,
	})

	// Phase-3: store the gateway reference or the failure
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if perr != nil {
			return markFailedTx(ctx, tx, pay, "checkout: "+perr.Error(), in.Payer.actor(), now)
		}
		return tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ? AND status = ?", pay.ID, StatusInitiated).
			Updates(map[string]any{"provider_ref": sess.GatewayOrderID, "updated_at": now}).Error
	})
	if err != nil {
		return InitiateResult{}, err
	}
	if perr != nil {
		return InitiateResult{}, perr
	}

	result.GatewayOrderID = sess.GatewayOrderID
	if sess.KeyID != "" {
		result.KeyID = sess.KeyID
	}
	return result, nil
}

type VerifyInput struct {
	OrderID          string
	Payer            Payer
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type VerifyResult struct {
	Order           orders.Order
	PaymentID       string
	AlreadyVerified bool
}

func (s *Service) VerifyPayment(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	if in.OrderID == "" || in.GatewayOrderID == "" {
		return VerifyResult{}, ErrPaymentNotFound
	}

	var res VerifyResult
	mismatch := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res = VerifyResult{}
		mismatch = false

		ord, err := lockOrder(ctx, tx, in.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.ErrNotFound
			}
			return err
		}
		if err := authorize(ord, in.Payer); err != nil {
			return err
		}

		var p Payment
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "order_id = ? AND provider = ? AND provider_ref = ?", ord.ID, s.provider.Name(), in.GatewayOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		res.PaymentID = p.ID

		if p.Status == StatusSucceeded {
			res.Order = ord
			res.AlreadyVerified = true
			return nil
		}

		now := time.Now().UTC()
		if !s.provider.VerifyPaymentSignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
			// committed on purpose: the failed attempt stays on record
			mismatch = true
			return markFailedTx(ctx, tx, p, "signature mismatch", in.Payer.actor(), now)
		}

		if err := markPaidTx(ctx, tx, s.notifier, p, in.GatewayPaymentID, in.Payer.actor(), now); err != nil {
			return err
		}
		return tx.WithContext(ctx).First(&res.Order, "id = ?", ord.ID).Error
	})
	if err != nil {
		return VerifyResult{}, err
	}
	if mismatch {
		return VerifyResult{}, ErrSignatureMismatch
	}
	return res, nil
}

type FailInput struct {
	OrderID        string
	Payer          Payer
	GatewayOrderID string
	Reason         string
}

// FailPayment records a failure reported by the widget in the browser.
func (s *Service) FailPayment(ctx context.Context, in FailInput) error {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "payment failed"
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ord orders.Order
		if err := tx.WithContext(ctx).First(&ord, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.ErrNotFound
			}
			return err
		}
		if err := authorize(ord, in.Payer); err != nil {
			return err
		}
		var p Payment
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "order_id = ? AND provider_ref = ?", ord.ID, in.GatewayOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if p.Status != StatusInitiated {
			return nil
		}
		return markFailedTx(ctx, tx, p, "client: "+reason, in.Payer.actor(), time.Now().UTC())
	})
}

func (s *Service) ListForOrder(ctx context.Context, orderID string) ([]Payment, error) {
	var out []Payment
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out, "order_id = ?", orderID).Error
	return out, err
}

func lockForUpdate() clause.Locking { return clause.Locking{Strength: "UPDATE"} }
