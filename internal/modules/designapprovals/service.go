package designapprovals

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/database"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/shared/textutil"
	"geethika.lk/app/internal/storage"
)

var (
	ErrNotFound         = errors.New("design approval not found")
	ErrNotRequired      = errors.New("item does not need design approval")
	ErrOrderClosed      = errors.New("order no longer accepts proofs")
	ErrNotLatest        = errors.New("only the latest pending proof can be answered")
	ErrFeedbackRequired = errors.New("feedback required when requesting changes")
	ErrInvalidDecision  = errors.New("invalid decision")
)

type Service struct {
	db       *gorm.DB
	store    storage.Storage
	notifier *orders.Notifier
}

func NewService(db *gorm.DB, store storage.Storage, n *orders.Notifier) *Service {
	return &Service{db: db, store: store, notifier: n}
}

type SubmitInput struct {
	AdminID string
	OrderID string
	ItemID  string
	Note    string
	File    io.Reader
}

// SubmitProof uploads a new proof version for a customized item. Earlier
// pending versions are superseded.
func (s *Service) SubmitProof(ctx context.Context, in SubmitInput) (DesignApproval, error) {
	var o orders.Order
	var item orders.OrderItem
	if err := s.loadItem(ctx, s.db, in.OrderID, in.ItemID, &o, &item); err != nil {
		return DesignApproval{}, err
	}
	if err := checkOpen(o, item); err != nil {
		return DesignApproval{}, err
	}

	// upload outside the transaction; removed again if the insert fails
	up, err := storage.PutImage(ctx, s.store, in.File, storage.FolderProofs)
	if err != nil {
		return DesignApproval{}, err
	}

	var out DesignApproval
	err = database.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", in.OrderID).Error; err != nil {
			return err
		}
		if err := checkOpen(o, item); err != nil {
			return err
		}

		var last int
		if err := tx.WithContext(ctx).Model(&DesignApproval{}).
			Select("COALESCE(MAX(version), 0)").
			Where("order_item_id = ?", item.ID).
			Row().Scan(&last); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.WithContext(ctx).Model(&DesignApproval{}).
			Where("order_item_id = ? AND status = ?", item.ID, StatusPending).
			Updates(map[string]any{"status": StatusSuperseded, "updated_at": now}).Error; err != nil {
			return err
		}

		out = DesignApproval{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			OrderItemID: item.ID,
			Version:     last + 1,
			ProofURL:    up.URL,
			ProofKey:    up.Key,
			Status:      StatusPending,
			AdminNote:   optional(in.Note, 1000),
			CreatedBy:   in.AdminID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
			return err
		}

		admin := in.AdminID
		actor := orders.Actor{UserID: &admin, Role: orders.ActorAdmin}
		if err := orders.RecordEvent(ctx, tx, o.ID, actor, "proof_submitted", "", "", item.ProductName+" v"+strconv.Itoa(out.Version), now); err != nil {
			return err
		}
		return s.notifier.DesignProofReady(ctx, tx, o, item.ProductName, out.Version, out.ProofURL)
	})
	if err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), up.Key)
		return DesignApproval{}, err
	}
	return out, nil
}

type RespondInput struct {
	UserID     string
	ApprovalID string
	Decision   string
	Feedback   string
}

// Respond records the customer's decision on the latest pending proof.
func (s *Service) Respond(ctx context.Context, in RespondInput) (DesignApproval, error) {
	feedback := strings.TrimSpace(in.Feedback)
	var to string
	switch in.Decision {
	case DecisionApprove:
		to = StatusApproved
	case DecisionRequestChanges:
		if feedback == "" {
			return DesignApproval{}, ErrFeedbackRequired
		}
		to = StatusChangesRequested
	default:
		return DesignApproval{}, ErrInvalidDecision
	}

	email, err := orders.LinkedEmail(ctx, s.db, in.UserID)
	if err != nil {
		return DesignApproval{}, err
	}

	var out DesignApproval
	err = database.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		var a DesignApproval
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&a, "id = ?", in.ApprovalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var o orders.Order
		if err := tx.WithContext(ctx).First(&o, "id = ?", a.OrderID).Error; err != nil {
			return err
		}
		if !o.OwnedBy(in.UserID, email) {
			return ErrNotFound
		}
		if a.Status != StatusPending {
			return ErrNotLatest
		}
		var newer int64
		if err := tx.WithContext(ctx).Model(&DesignApproval{}).
			Where("order_item_id = ? AND version > ?", a.OrderItemID, a.Version).
			Count(&newer).Error; err != nil {
			return err
		}
		if newer > 0 {
			return ErrNotLatest
		}

		now := time.Now().UTC()
		res := tx.WithContext(ctx).Model(&DesignApproval{}).
			Where("id = ? AND status = ?", a.ID, StatusPending).
			Updates(map[string]any{
				"status":            to,
				"customer_feedback": optional(feedback, 2000),
				"responded_at":      now,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNotLatest
		}

		uid := in.UserID
		action := "proof_approved"
		if to == StatusChangesRequested {
			action = "proof_changes_requested"
		}
		if err := orders.RecordEvent(ctx, tx, o.ID, orders.Actor{UserID: &uid, Role: orders.ActorCustomer}, action, "", "", feedback, now); err != nil {
			return err
		}

		a.Status = to
		a.CustomerFeedback = optional(feedback, 2000)
		a.RespondedAt = &now
		a.UpdatedAt = now
		out = a
		return nil
	})
	return out, err
}

func (s *Service) ListForOrder(ctx context.Context, orderID string) ([]DesignApproval, error) {
	var out []DesignApproval
	err := s.db.WithContext(ctx).
		Order("order_item_id ASC, version DESC").
		Find(&out, "order_id = ?", orderID).Error
	return out, err
}

// ListForOwner is ListForOrder after an ownership check.
func (s *Service) ListForOwner(ctx context.Context, orderID, userID string) ([]DesignApproval, error) {
	email, err := orders.LinkedEmail(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	var o orders.Order
	if err := s.db.WithContext(ctx).First(&o, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !o.OwnedBy(userID, email) {
		return nil, ErrNotFound
	}
	return s.ListForOrder(ctx, orderID)
}

func (s *Service) Pending(ctx context.Context, orderID string) ([]DesignApproval, error) {
	var out []DesignApproval
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&out, "order_id = ? AND status = ?", orderID, StatusPending).Error
	return out, err
}

// AllApproved reports whether each item that requires approval has an
// approved latest version. Orders without such items pass.
func (s *Service) AllApproved(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	var items []orders.OrderItem
	if err := tx.WithContext(ctx).
		Find(&items, "order_id = ? AND requires_approval = ?", orderID, true).Error; err != nil {
		return false, err
	}
	for _, it := range items {
		var latest DesignApproval
		err := tx.WithContext(ctx).
			Order("version DESC").
			First(&latest, "order_item_id = ?", it.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if latest.Status != StatusApproved {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) loadItem(ctx context.Context, db *gorm.DB, orderID, itemID string, o *orders.Order, item *orders.OrderItem) error {
	if err := db.WithContext(ctx).First(o, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orders.ErrNotFound
		}
		return err
	}
	if err := db.WithContext(ctx).First(item, "id = ? AND order_id = ?", itemID, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orders.ErrNotFound
		}
		return err
	}
	return nil
}

func checkOpen(o orders.Order, item orders.OrderItem) error {
	if !item.RequiresApproval {
		return ErrNotRequired
	}
	switch o.Status {
	case orders.StatusCancelled, orders.StatusShipped, orders.StatusDelivered:
		return ErrOrderClosed
	}
	return nil
}

func optional(s string, limit int) *string {
	s = textutil.Truncate(strings.TrimSpace(s), limit)
	if s == "" {
		return nil
	}
	return &s
}
