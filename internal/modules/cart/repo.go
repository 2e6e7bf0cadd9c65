package cart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCartNotFound = errors.New("cart not found")

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// GetOrCreateUserCart returns the user's open cart, creating one if needed.
func (r *Repo) GetOrCreateUserCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusOpen).
		Order("updated_at DESC").
		First(&c).Error
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Cart{}, err
	}
	now := time.Now().UTC()
	c = Cart{ID: uuid.NewString(), UserID: &userID, Status: StatusOpen, CreatedAt: now, UpdatedAt: now}
	if err := r.db.WithContext(ctx).Omit("Items").Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race against a concurrent request creating the same cart
			return r.GetOrCreateUserCart(ctx, userID)
		}
		return Cart{}, err
	}
	return c, nil
}

func (r *Repo) CreateGuestCart(ctx context.Context) (Cart, error) {
	now := time.Now().UTC()
	c := Cart{ID: uuid.NewString(), Status: StatusOpen, CreatedAt: now, UpdatedAt: now}
	return c, r.db.WithContext(ctx).Omit("Items").Create(&c).Error
}

// GetOpenGuestCart only returns carts that are still open and not owned by a user.
func (r *Repo) GetOpenGuestCart(ctx context.Context, cartID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id IS NULL AND status = ?", cartID, StatusOpen).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Cart{}, ErrCartNotFound
	}
	return c, err
}

func (r *Repo) Items(ctx context.Context, cartID string) ([]CartItem, error) {
	var items []CartItem
	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *Repo) ClearCart(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItem{}).Error
}

func (r *Repo) touch(tx *gorm.DB, cartID string) error {
	return tx.Model(&Cart{}).Where("id = ?", cartID).UpdateColumn("updated_at", time.Now().UTC()).Error
}

// LineKey identifies a cart line: same product with the same customization.
func LineKey(productID string, canonicalCustomization []byte) string {
	h := sha256.New()
	h.Write([]byte(productID))
	h.Write([]byte{'|'})
	h.Write(canonicalCustomization)
	return hex.EncodeToString(h.Sum(nil))
}
