package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SkippedItem struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type MergeResult struct {
	CartID  string        `json:"cart_id"`
	Merged  int           `json:"merged"`
	Capped  int           `json:"capped"`
	Skipped []SkippedItem `json:"skipped"`
}

// MergeGuestCart folds an anonymous cart into the user's open cart after
// login. Matching lines sum their quantities, capped at stock and MaxLineQty.
func (s *Service) MergeGuestCart(ctx context.Context, guestCartID, userID string) (MergeResult, error) {
	guest, err := s.repo.GetOpenGuestCart(ctx, guestCartID)
	if err != nil {
		return MergeResult{}, err
	}
	items, err := s.repo.Items(ctx, guest.ID)
	if err != nil {
		return MergeResult{}, err
	}

	inputs := make([]AddInput, 0, len(items))
	for _, it := range items {
		inputs = append(inputs, AddInput{ProductID: it.ProductID, Quantity: it.Quantity, Customization: it.DecodeCustomization()})
	}

	res, err := s.MergeItems(ctx, userID, inputs)
	if err != nil {
		return MergeResult{}, err
	}

	err = s.db.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND status = ?", guest.ID, StatusOpen).
		Updates(map[string]any{"status": StatusMerged, "updated_at": time.Now().UTC()}).Error
	return res, err
}

// MergeItems merges client-held lines (e.g. a local-storage cart) into the
// user's open cart. Invalid lines are skipped and reported, never fatal.
func (s *Service) MergeItems(ctx context.Context, userID string, in []AddInput) (MergeResult, error) {
	c, err := s.repo.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return MergeResult{}, err
	}
	res := MergeResult{CartID: c.ID, Skipped: []SkippedItem{}}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range in {
			if it.Quantity < 1 {
				res.Skipped = append(res.Skipped, SkippedItem{ProductID: it.ProductID, Reason: "invalid quantity"})
				continue
			}
			p, err := loadActiveProduct(ctx, tx, it.ProductID)
			if errors.Is(err, ErrProductUnavailable) {
				res.Skipped = append(res.Skipped, SkippedItem{ProductID: it.ProductID, Reason: "unavailable"})
				continue
			}
			if err != nil {
				return err
			}
			if err := s.validateCustomization(p, it.Customization); err != nil {
				res.Skipped = append(res.Skipped, SkippedItem{ProductID: it.ProductID, Reason: "invalid customization"})
				continue
			}
			if p.Stock < 1 {
				res.Skipped = append(res.Skipped, SkippedItem{ProductID: it.ProductID, Reason: "out of stock"})
				continue
			}

			canon := it.Customization.Canonical()
			key := LineKey(p.ID, canon)
			limit := min(MaxLineQty, p.Stock)

			var existing CartItem
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("cart_id = ? AND line_key = ?", c.ID, key).First(&existing).Error
			now := time.Now().UTC()
			switch {
			case err == nil:
				qty := existing.Quantity + it.Quantity
				if qty > limit {
					qty = limit
					res.Capped++
				}
				if err := tx.Model(&CartItem{}).Where("id = ?", existing.ID).
					Updates(map[string]any{"quantity": qty, "updated_at": now}).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				qty := it.Quantity
				if qty > limit {
					qty = limit
					res.Capped++
				}
				if err := tx.Create(&CartItem{
					ID:            uuid.NewString(),
					CartID:        c.ID,
					ProductID:     p.ID,
					LineKey:       key,
					Quantity:      qty,
					Customization: canon,
					CreatedAt:     now,
					UpdatedAt:     now,
				}).Error; err != nil {
					return err
				}
			default:
				return err
			}
			res.Merged++
		}
		return s.repo.touch(tx, c.ID)
	})
	return res, err
}
