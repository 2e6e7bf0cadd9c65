package categories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"geethika.lk/app/internal/shared/slug"
)

var (
	ErrNotFound      = errors.New("category not found")
	ErrSlugTaken     = errors.New("category slug already in use")
	ErrCategoryInUse = errors.New("category still has products")
	ErrInvalidSlug   = errors.New("invalid slug")
)

type Category struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(140);not null;uniqueIndex:ux_categories_slug" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"type:varchar(500)" json:"image_url"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) ListActive(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.db.WithContext(ctx).Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").Find(&out).Error
	return out, err
}

func (s *Service) ListAll(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&out).Error
	return out, err
}

func (s *Service) GetBySlug(ctx context.Context, sl string) (Category, error) {
	var c Category
	err := s.db.WithContext(ctx).First(&c, "slug = ? AND is_active = ?", sl, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Category{}, ErrNotFound
	}
	return c, err
}

type Input struct {
	Name        string
	Slug        string
	Description string
	ImageURL    string
	SortOrder   int
	IsActive    bool
}

func (s *Service) Create(ctx context.Context, in Input) (Category, error) {
	sl, err := resolveSlug(in)
	if err != nil {
		return Category{}, err
	}
	now := time.Now().UTC()
	c := Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        sl,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		SortOrder:   in.SortOrder,
		IsActive:    in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Category{}, ErrSlugTaken
		}
		return Category{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Category, error) {
	sl, err := resolveSlug(in)
	if err != nil {
		return Category{}, err
	}
	res := s.db.WithContext(ctx).Model(&Category{}).Where("id = ?", id).Updates(map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"slug":        sl,
		"description": strings.TrimSpace(in.Description),
		"image_url":   strings.TrimSpace(in.ImageURL),
		"sort_order":  in.SortOrder,
		"is_active":   in.IsActive,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return Category{}, ErrSlugTaken
		}
		return Category{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Category{}, ErrNotFound
	}
	var c Category
	err = s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Table("products").Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrCategoryInUse
		}
		res := tx.Delete(&Category{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func resolveSlug(in Input) (string, error) {
	sl := strings.TrimSpace(in.Slug)
	if sl == "" {
		return slug.FromName(in.Name, "category"), nil
	}
	if !slug.Valid(sl) {
		return "", ErrInvalidSlug
	}
	return sl, nil
}
