package products

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("product not found")

// Repository is the read side used by the storefront.
type Repository interface {
	ListActive(ctx context.Context, f ListFilter) (ListResult, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
}

type ListFilter struct {
	CategorySlug  string
	Q             string
	Featured      bool
	MinPriceCents int
	MaxPriceCents int
	Sort          string // newest|price_asc|price_desc|name
	Page          int
	PageSize      int
}

type ListResult struct {
	Items    []Product
	Total    int64
	Page     int
	PageSize int
}

type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

func (r *GormRepo) ListActive(ctx context.Context, f ListFilter) (ListResult, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 100 {
		size = 24
	}

	q := r.db.WithContext(ctx).Model(&Product{}).Where("products.status = ?", StatusActive)
	if s := strings.TrimSpace(f.CategorySlug); s != "" {
		q = q.Where("products.category_id IN (SELECT id FROM categories WHERE slug = ? AND is_active = ?)", s, true)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Q)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", like, like)
	}
	if f.Featured {
		q = q.Where("products.is_featured = ?", true)
	}
	if f.MinPriceCents > 0 {
		q = q.Where("products.price_cents >= ?", f.MinPriceCents)
	}
	if f.MaxPriceCents > 0 {
		q = q.Where("products.price_cents <= ?", f.MaxPriceCents)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var items []Product
	if err := q.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Order(sortClause(f.Sort)).
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (r *GormRepo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).
		Where("slug = ? AND status = ?", slug, StatusActive).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func sortClause(s string) string {
	switch s {
	case "price_asc":
		return "products.price_cents ASC, products.id ASC"
	case "price_desc":
		return "products.price_cents DESC, products.id ASC"
	case "name":
		return "products.name ASC, products.id ASC"
	default:
		return "products.created_at DESC, products.id ASC"
	}
}
