package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/pkg/view"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 99")
	ErrInsufficientStock  = errors.New("not enough stock")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrLineNotFound       = errors.New("cart line not found")
)

type Service struct {
	db        *gorm.DB
	repo      *Repo
	imageURLs func(string) bool
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, repo: NewRepo(db)}
}

// AcceptImageURLs sets which customization image URLs lines may carry.
// Until it is called every image URL is refused.
func (s *Service) AcceptImageURLs(allow func(string) bool) *Service {
	s.imageURLs = allow
	return s
}

func (s *Service) validateCustomization(p products.Product, c products.Customization) error {
	if err := products.ValidateCustomization(p, c); err != nil {
		return err
	}
	u := strings.TrimSpace(c.ImageURL)
	if u != "" && (s.imageURLs == nil || !s.imageURLs(u)) {
		return &products.CustomizationError{Problems: []products.FieldError{{Field: "image_url", Message: "upload the image before adding it"}}}
	}
	return nil
}

func (s *Service) Repo() *Repo { return s.repo }

type AddInput struct {
	ProductID     string
	Quantity      int
	Customization products.Customization
}

// AddItem adds qty of a product. An existing line with the same customization
// is incremented instead of duplicated.
func (s *Service) AddItem(ctx context.Context, cartID string, in AddInput) (CartItem, error) {
	if in.Quantity < 1 || in.Quantity > MaxLineQty {
		return CartItem{}, ErrInvalidQuantity
	}

	var out CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadActiveProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		if err := s.validateCustomization(p, in.Customization); err != nil {
			return err
		}
		canon := in.Customization.Canonical()
		key := LineKey(p.ID, canon)

		var existing CartItem
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND line_key = ?", cartID, key).
			First(&existing).Error
		switch {
		case err == nil:
			qty := existing.Quantity + in.Quantity
			if qty > MaxLineQty {
				return ErrInvalidQuantity
			}
			if qty > p.Stock {
				return ErrInsufficientStock
			}
			now := time.Now().UTC()
			if err := tx.Model(&CartItem{}).Where("id = ?", existing.ID).
				Updates(map[string]any{"quantity": qty, "updated_at": now}).Error; err != nil {
				return err
			}
			existing.Quantity = qty
			existing.UpdatedAt = now
			out = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if in.Quantity > p.Stock {
				return ErrInsufficientStock
			}
			now := time.Now().UTC()
			out = CartItem{
				ID:            uuid.NewString(),
				CartID:        cartID,
				ProductID:     p.ID,
				LineKey:       key,
				Quantity:      in.Quantity,
				Customization: datatypes.JSON(canon),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&out).Error; err != nil {
				return err
			}
		default:
			return err
		}
		return s.repo.touch(tx, cartID)
	})
	return out, err
}

// UpdateItem sets the quantity of a line; zero removes it.
func (s *Service) UpdateItem(ctx context.Context, cartID, itemID string, qty int) error {
	if qty == 0 {
		return s.RemoveItem(ctx, cartID, itemID)
	}
	if qty < 0 || qty > MaxLineQty {
		return ErrInvalidQuantity
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it CartItem
		if err := tx.First(&it, "id = ? AND cart_id = ?", itemID, cartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return err
		}
		p, err := loadActiveProduct(ctx, tx, it.ProductID)
		if err != nil {
			return err
		}
		if qty > p.Stock {
			return ErrInsufficientStock
		}
		if err := tx.Model(&CartItem{}).Where("id = ?", it.ID).
			Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		return s.repo.touch(tx, cartID)
	})
}

func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	return s.repo.ClearCart(ctx, cartID)
}

type lineRow struct {
	ID            string         `gorm:"column:id"`
	ProductID     string         `gorm:"column:product_id"`
	Quantity      int            `gorm:"column:quantity"`
	Customization datatypes.JSON `gorm:"column:customization"`
	Name          string         `gorm:"column:name"`
	Slug          string         `gorm:"column:slug"`
	PriceCents    int            `gorm:"column:price_cents"`
	Currency      string         `gorm:"column:currency"`
	Stock         int            `gorm:"column:stock"`
	Status        string         `gorm:"column:status"`
}

// View prices the cart against current product data.
func (s *Service) View(ctx context.Context, cartID string) (view.Cart, error) {
	var rows []lineRow
	if err := s.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.id, ci.product_id, ci.quantity, ci.customization,
			p.name, p.slug, p.price_cents, p.currency, p.stock, p.status`).
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.created_at ASC, ci.id ASC").
		Scan(&rows).Error; err != nil {
		return view.Cart{}, err
	}

	images, err := primaryImages(ctx, s.db, rows)
	if err != nil {
		return view.Cart{}, err
	}

	vm := view.Cart{ID: cartID, Currency: "LKR", Lines: make([]view.CartLine, 0, len(rows))}
	for _, r := range rows {
		c := CartItem{Customization: r.Customization}.DecodeCustomization()
		available := r.Status == products.StatusActive && r.Stock >= r.Quantity
		line := r.PriceCents * r.Quantity

		vm.Lines = append(vm.Lines, view.CartLine{
			ID:             r.ID,
			ProductID:      r.ProductID,
			ProductName:    r.Name,
			ProductSlug:    r.Slug,
			ImageURL:       images[r.ProductID],
			Quantity:       r.Quantity,
			UnitPriceCents: r.PriceCents,
			LineTotalCents: line,
			UnitPrice:      view.MoneyFromCents(r.PriceCents, r.Currency),
			LineTotal:      view.MoneyFromCents(line, r.Currency),
			Customization:  view.CustomizationView{Fields: c.Fields, ImageURL: c.ImageURL, Size: c.Size},
			Available:      available,
			Stock:          r.Stock,
		})
		if !available {
			vm.HasUnavailable = true
			continue
		}
		vm.Count += r.Quantity
		vm.SubtotalCents += line
	}
	vm.Subtotal = view.MoneyFromCents(vm.SubtotalCents, vm.Currency)
	return vm, nil
}

func primaryImages(ctx context.Context, db *gorm.DB, rows []lineRow) (map[string]string, error) {
	out := map[string]string{}
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	var imgs []products.ProductImage
	if err := db.WithContext(ctx).Where("product_id IN ?", ids).
		Order("position ASC, id ASC").Find(&imgs).Error; err != nil {
		return nil, err
	}
	for _, im := range imgs {
		if _, ok := out[im.ProductID]; !ok {
			out[im.ProductID] = im.URL
		}
	}
	return out, nil
}

func loadActiveProduct(ctx context.Context, tx *gorm.DB, id string) (products.Product, error) {
	var p products.Product
	err := tx.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return products.Product{}, ErrProductUnavailable
	}
	if err != nil {
		return products.Product{}, err
	}
	if p.Status != products.StatusActive {
		return products.Product{}, ErrProductUnavailable
	}
	return p, nil
}
