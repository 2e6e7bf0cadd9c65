package products

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"geethika.lk/app/internal/shared/slug"
)

var (
	ErrSlugTaken        = errors.New("product slug already in use")
	ErrInvalidSlug      = errors.New("invalid slug")
	ErrInvalidStatus    = errors.New("invalid product status")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrNegativeStock    = errors.New("stock cannot go below zero")
	ErrImageNotFound    = errors.New("image not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSchemaNotAllowed = errors.New("customization schema given for a non-customizable product")
)

// Repo is the admin write side of the catalog.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

type ListAdminParams struct {
	Q        string
	Status   string
	Page     int
	PageSize int
}

func (r *Repo) ListAdmin(ctx context.Context, in ListAdminParams) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 30
	}
	q := r.db.WithContext(ctx).Model(&Product{})
	if s := strings.TrimSpace(in.Status); s != "" {
		q = q.Where("status = ?", s)
	}
	if s := strings.ToLower(strings.TrimSpace(in.Q)); s != "" {
		q = q.Where("(LOWER(name) LIKE ? OR slug LIKE ?)", "%"+s+"%", "%"+s+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}
	var items []Product
	if err := q.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("updated_at DESC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrNotFound
	}
	return p, err
}

type Input struct {
	CategoryID     string
	Name           string
	Slug           string
	Description    string
	PriceCents     int
	CompareAtCents int
	Stock          int
	IsCustomizable bool
	Customization  *CustomizationSchema
	IsFeatured     bool
	Status         string
}

func (r *Repo) Create(ctx context.Context, in Input) (Product, error) {
	fields, err := r.prepare(ctx, in)
	if err != nil {
		return Product{}, err
	}
	now := time.Now().UTC()
	p := Product{
		ID:        uuid.NewString(),
		Currency:  "LKR",
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.apply(&p)
	if err := r.db.WithContext(ctx).Omit("Images").Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Product{}, ErrSlugTaken
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) Update(ctx context.Context, id string, in Input) (Product, error) {
	fields, err := r.prepare(ctx, in)
	if err != nil {
		return Product{}, err
	}
	res := r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Updates(map[string]any{
		"category_id":      fields.categoryID,
		"name":             fields.name,
		"slug":             fields.slug,
		"description":      fields.description,
		"price_cents":      fields.priceCents,
		"compare_at_cents": fields.compareAt,
		"stock":            fields.stock,
		"is_customizable":  fields.customizable,
		"customization":    fields.schema,
		"is_featured":      fields.featured,
		"status":           fields.status,
		"updated_at":       time.Now().UTC(),
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return Product{}, ErrSlugTaken
		}
		return Product{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Product{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a product, or archives it when orders still reference it.
// The returned bool reports whether it was archived instead.
func (r *Repo) Delete(ctx context.Context, id string) (archived bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Table("order_items").Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			res := tx.Model(&Product{}).Where("id = ?", id).
				Updates(map[string]any{"status": StatusArchived, "updated_at": time.Now().UTC()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
			archived = true
			return nil
		}

		for _, tbl := range []string{"cart_items", "wishlist_items"} {
			if err := tx.Exec("DELETE FROM "+tbl+" WHERE product_id = ?", id).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductImage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return archived, err
}

// AdjustStock adds delta (which may be negative) and returns the new stock.
func (r *Repo) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	res := r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Updates(map[string]any{"stock": gorm.Expr("stock + ?", delta), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return 0, err
		}
		return 0, ErrNegativeStock
	}
	var stock int
	err := r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Pluck("stock", &stock).Error
	return stock, err
}

func (r *Repo) AddImage(ctx context.Context, productID, url, key string) (ProductImage, error) {
	if _, err := r.Get(ctx, productID); err != nil {
		return ProductImage{}, err
	}
	var last int
	if err := r.db.WithContext(ctx).Model(&ProductImage{}).Where("product_id = ?", productID).
		Select("COALESCE(MAX(position), -1)").Row().Scan(&last); err != nil {
		return ProductImage{}, err
	}
	pos := last + 1
	img := ProductImage{
		ID:         uuid.NewString(),
		ProductID:  productID,
		URL:        url,
		StorageKey: key,
		Position:   pos,
		CreatedAt:  time.Now().UTC(),
	}
	return img, r.db.WithContext(ctx).Create(&img).Error
}

// RemoveImage deletes the row and returns it so the caller can drop the blob.
func (r *Repo) RemoveImage(ctx context.Context, productID, imageID string) (ProductImage, error) {
	var img ProductImage
	err := r.db.WithContext(ctx).First(&img, "id = ? AND product_id = ?", imageID, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductImage{}, ErrImageNotFound
	}
	if err != nil {
		return ProductImage{}, err
	}
	return img, r.db.WithContext(ctx).Delete(&ProductImage{}, "id = ?", img.ID).Error
}

// LowStock lists active products at or below threshold.
func (r *Repo) LowStock(ctx context.Context, threshold, limit int) ([]Product, error) {
	var out []Product
	err := r.db.WithContext(ctx).
		Where("status = ? AND stock <= ?", StatusActive, threshold).
		Order("stock ASC, name ASC").Limit(limit).Find(&out).Error
	return out, err
}

type preparedFields struct {
	categoryID   *string
	name         string
	slug         string
	description  string
	priceCents   int
	compareAt    *int
	stock        int
	customizable bool
	schema       datatypes.JSON
	featured     bool
	status       string
}

func (f preparedFields) apply(p *Product) {
	p.CategoryID = f.categoryID
	p.Name = f.name
	p.Slug = f.slug
	p.Description = f.description
	p.PriceCents = f.priceCents
	p.CompareAtCents = f.compareAt
	p.Stock = f.stock
	p.IsCustomizable = f.customizable
	p.Customization = f.schema
	p.IsFeatured = f.featured
	p.Status = f.status
}

func (r *Repo) prepare(ctx context.Context, in Input) (preparedFields, error) {
	out := preparedFields{
		name:         strings.TrimSpace(in.Name),
		description:  strings.TrimSpace(in.Description),
		priceCents:   in.PriceCents,
		stock:        in.Stock,
		customizable: in.IsCustomizable,
		featured:     in.IsFeatured,
		status:       in.Status,
	}
	if out.status == "" {
		out.status = StatusDraft
	}
	switch out.status {
	case StatusActive, StatusDraft, StatusArchived:
	default:
		return out, ErrInvalidStatus
	}
	if in.PriceCents <= 0 {
		return out, ErrInvalidPrice
	}
	if in.Stock < 0 {
		return out, ErrNegativeStock
	}
	if in.CompareAtCents > 0 {
		v := in.CompareAtCents
		out.compareAt = &v
	}

	out.slug = strings.TrimSpace(in.Slug)
	if out.slug == "" {
		out.slug = slug.FromName(in.Name, "product")
	} else if !slug.Valid(out.slug) {
		return out, ErrInvalidSlug
	}

	if id := strings.TrimSpace(in.CategoryID); id != "" {
		var n int64
		if err := r.db.WithContext(ctx).Table("categories").Where("id = ?", id).Count(&n).Error; err != nil {
			return out, err
		}
		if n == 0 {
			return out, ErrCategoryNotFound
		}
		out.categoryID = &id
	}

	if in.Customization != nil && !in.Customization.IsZero() {
		if !in.IsCustomizable {
			return out, ErrSchemaNotAllowed
		}
		b, err := json.Marshal(in.Customization)
		if err != nil {
			return out, err
		}
		out.schema = datatypes.JSON(b)
	}
	return out, nil
}
