package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/modules/products"
)

var ErrProductUnavailable = errors.New("product unavailable")

type Item struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:ux_wishlist_user_product,priority:1"`
	ProductID string    `gorm:"type:uuid;not null;uniqueIndex:ux_wishlist_user_product,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Item) TableName() string { return "wishlist_items" }

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns the user's wishlisted products that are still active, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]products.Product, error) {
	var out []products.Product
	err := s.db.WithContext(ctx).
		Joins("JOIN wishlist_items w ON w.product_id = products.id").
		Where("w.user_id = ? AND products.status = ?", userID, products.StatusActive).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Order("w.created_at DESC").
		Find(&out).Error
	return out, err
}

// Add is idempotent.
func (s *Service) Add(ctx context.Context, userID, productID string) error {
	if err := s.ensureActive(ctx, s.db, productID); err != nil {
		return err
	}
	return insert(ctx, s.db, userID, productID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&Item{}).Error
}

// Merge unions productIDs into the wishlist, skipping unknown or inactive
// products. It returns how many ids were accepted.
func (s *Service) Merge(ctx context.Context, userID string, productIDs []string) (int, error) {
	added := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[string]bool{}
		for _, id := range productIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if err := s.ensureActive(ctx, tx, id); err != nil {
				if errors.Is(err, ErrProductUnavailable) {
					continue
				}
				return err
			}
			if err := insert(ctx, tx, userID, id); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	return added, err
}

func (s *Service) ensureActive(ctx context.Context, db *gorm.DB, productID string) error {
	var n int64
	if err := db.WithContext(ctx).Model(&products.Product{}).
		Where("id = ? AND status = ?", productID, products.StatusActive).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrProductUnavailable
	}
	return nil
}

func insert(ctx context.Context, db *gorm.DB, userID, productID string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Item{ID: uuid.NewString(), UserID: userID, ProductID: productID, CreatedAt: time.Now().UTC()}).Error
}
