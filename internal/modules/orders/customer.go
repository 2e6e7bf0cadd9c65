package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/database"
	"geethika.lk/app/internal/modules/shipping"
)

type Detail struct {
	Order     Order
	Items     []OrderItem
	Events    []OrderEvent
	Shipments []shipping.Shipment
	Financial []FinancialEntry
}

func (s *Service) ListByUser(ctx context.Context, in ListByUserParams) (ListByUserResult, error) {
	return s.repo.ListByUser(ctx, in)
}

// GetForOwner loads an order the user owns, hiding other customers' orders as
// not found.
func (s *Service) GetForOwner(ctx context.Context, orderID, userID string) (Detail, error) {
	email, err := LinkedEmail(ctx, s.db, userID)
	if err != nil {
		return Detail{}, err
	}
	d, err := s.repo.detail(ctx, orderID, false)
	if err != nil {
		return Detail{}, err
	}
	if !d.Order.OwnedBy(userID, email) {
		return Detail{}, ErrNotFound
	}
	return d, nil
}

// CancelByCustomer is allowed until the order goes into production and only
// while nothing has been charged.
func (s *Service) CancelByCustomer(ctx context.Context, orderID, userID, reason string) (Order, error) {
	email, err := LinkedEmail(ctx, s.db, userID)
	if err != nil {
		return Order{}, err
	}
	var out Order
	err = database.WithTxRetry(ctx, s.db, txAttempts, func(tx *gorm.DB) error {
		var o Order
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !o.OwnedBy(userID, email) {
			return ErrNotFound
		}
		if o.Status != StatusPending && o.Status != StatusConfirmed {
			return ErrNotCancellable
		}
		if o.PaymentStatus == PaymentPaid || o.PaymentStatus == PaymentPartiallyRefunded {
			return ErrNotCancellable
		}

		now := time.Now().UTC()
		uid := userID
		if err := cancelTx(ctx, tx, &o, Actor{UserID: &uid, Role: ActorCustomer}, "cancel", reason, now); err != nil {
			return err
		}
		if err := s.notifier.StatusChanged(ctx, tx, o, StatusCancelled, reason, "", ""); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// Track is the public lookup by order number; the email must match the one
// the order was placed with.
func (s *Service) Track(ctx context.Context, orderNumber, email string) (Detail, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	email = strings.ToLower(strings.TrimSpace(email))
	if orderNumber == "" || email == "" {
		return Detail{}, ErrNotFound
	}
	var o Order
	if err := s.db.WithContext(ctx).First(&o, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, err
	}
	if o.Email != email {
		return Detail{}, ErrNotFound
	}
	return s.repo.detail(ctx, o.ID, false)
}
