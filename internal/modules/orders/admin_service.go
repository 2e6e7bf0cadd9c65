package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/database"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/shipping"
)

const (
	ActionConfirm = "confirm"
	ActionProcess = "process"
	ActionShip    = "ship"
	ActionDeliver = "deliver"
	ActionCancel  = "cancel"
)

const lowStockThreshold = 5

// ApprovalGate reports whether every item needing a design sign-off has an
// approved latest proof.
type ApprovalGate interface {
	AllApproved(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
}

type AdminService struct {
	db       *gorm.DB
	repo     *Repo
	notifier *Notifier
	gate     ApprovalGate
}

func NewAdminService(db *gorm.DB, notifier *Notifier, gate ApprovalGate) *AdminService {
	return &AdminService{db: db, repo: NewRepo(db), notifier: notifier, gate: gate}
}

func (s *AdminService) Repo() *Repo { return s.repo }

type TransitionInput struct {
	OrderID        string
	ActorUserID    string // admin user id
	Action         string // confirm|process|ship|deliver|cancel
	Note           string
	Courier        string
	TrackingNumber string
}

func (s *AdminService) Transition(ctx context.Context, in TransitionInput) (Order, error) {
	if in.OrderID == "" || in.ActorUserID == "" || in.Action == "" {
		return Order{}, ErrInvalidTransition
	}
	note := strings.TrimSpace(in.Note)
	actorID := in.ActorUserID
	actor := Actor{UserID: &actorID, Role: ActorAdmin}

	var out Order
	err := database.WithTxRetry(ctx, s.db, txAttempts, func(tx *gorm.DB) error {
		var o Order

		// row lock
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		from := o.Status
		to, err := nextStatus(o, in.Action)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		var shipment shipping.Shipment

		if in.Action == ActionCancel {
			if err := cancelTx(ctx, tx, &o, actor, ActionCancel, note, now); err != nil {
				return err
			}
			out = o
			return s.notifier.StatusChanged(ctx, tx, o, to, note, "", "")
		}

		if in.Action == ActionProcess && s.gate != nil {
			ok, err := s.gate.AllApproved(ctx, tx, o.ID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrDesignApprovalPending
			}
		}

		updates := map[string]any{
			"status":     to,
			"updated_at": now,
		}
		collectCOD := in.Action == ActionDeliver && o.PaymentMethod == MethodCOD && o.PaymentStatus == PaymentUnpaid
		if collectCOD {
			updates["payment_status"] = PaymentPaid
			updates["paid_at"] = now
		}

		res := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, from). // optimistic guard
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidTransition
		}

		if in.Action == ActionShip {
			if shipment, err = shipping.CreateTx(ctx, tx, o.ID, in.Courier, in.TrackingNumber, now); err != nil {
				return err
			}
		}
		if collectCOD {
			if err := EnsureFinancialEntry(ctx, tx, FinancialEntry{
				OrderID:     o.ID,
				Event:       LedgerCODCollected,
				AmountCents: o.TotalCents,
				Currency:    o.Currency,
				RefType:     "order",
				RefID:       o.ID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			o.PaymentStatus = PaymentPaid
			o.PaidAt = &now
		}

		if err := RecordEvent(ctx, tx, o.ID, actor, in.Action, from, to, note, now); err != nil {
			return err
		}

		o.Status = to
		o.UpdatedAt = now
		out = o
		return s.notifier.StatusChanged(ctx, tx, o, to, note, shipment.Courier, shipment.TrackingNumber)
	})
	if err != nil {
		return Order{}, err
	}
	return out, nil
}

func nextStatus(o Order, action string) (string, error) {
	from := o.Status
	switch action {
	case ActionConfirm:
		// online orders are confirmed by their payment
		if from == StatusPending && o.PaymentMethod == MethodCOD {
			return StatusConfirmed, nil
		}
		return "", ErrInvalidTransition
	case ActionProcess:
		if from == StatusConfirmed {
			return StatusProcessing, nil
		}
		return "", ErrInvalidTransition
	case ActionShip:
		if from == StatusProcessing {
			return StatusShipped, nil
		}
		return "", ErrInvalidTransition
	case ActionDeliver:
		if from == StatusShipped {
			return StatusDelivered, nil
		}
		return "", ErrInvalidTransition
	case ActionCancel:
		if cancellable(from) {
			return StatusCancelled, nil
		}
		return "", ErrInvalidTransition
	default:
		return "", ErrInvalidTransition
	}
}

func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{StatusCounts: map[string]int64{}}

	type statusRow struct {
		Status string
		N      int64
	}
	var rows []statusRow
	if err := s.db.WithContext(ctx).Model(&Order{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return Dashboard{}, err
	}
	for _, r := range rows {
		d.StatusCounts[r.Status] = r.N
	}

	if err := s.db.WithContext(ctx).Model(&Order{}).
		Where("status = ? AND payment_method = ? AND payment_status <> ?", StatusPending, MethodOnline, PaymentPaid).
		Count(&d.AwaitingPayment).Error; err != nil {
		return Dashboard{}, err
	}

	type ledgerRow struct {
		Event string
		Cents int64
	}
	var ledger []ledgerRow
	if err := s.db.WithContext(ctx).Model(&FinancialEntry{}).
		Select("event, COALESCE(SUM(amount_cents), 0) AS cents").
		Where("event IN ?", []string{LedgerPaymentSucceeded, LedgerCODCollected, LedgerRefundSucceeded}).
		Group("event").
		Scan(&ledger).Error; err != nil {
		return Dashboard{}, err
	}
	for _, r := range ledger {
		if r.Event == LedgerRefundSucceeded {
			d.RefundedCents -= r.Cents
		} else {
			d.RevenueCents += r.Cents
		}
	}
	d.NetRevenueCents = d.RevenueCents - d.RefundedCents

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if err := s.db.WithContext(ctx).Model(&Order{}).
		Where("created_at >= ?", startOfDay).
		Count(&d.TodayOrders).Error; err != nil {
		return Dashboard{}, err
	}

	low, err := products.NewRepo(s.db).LowStock(ctx, lowStockThreshold, 10)
	if err != nil {
		return Dashboard{}, err
	}
	d.LowStock = make([]LowStockItem, 0, len(low))
	for _, p := range low {
		d.LowStock = append(d.LowStock, LowStockItem{ID: p.ID, Name: p.Name, Stock: p.Stock})
	}
	return d, nil
}
