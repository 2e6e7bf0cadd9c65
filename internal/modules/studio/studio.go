// Package studio holds the photography, printing and framing services
// advertised next to the shop catalog.
package studio

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
	ErrNotFound    = errors.New("service not found")
	ErrSlugTaken   = errors.New("service slug already in use")
	ErrInvalidSlug = errors.New("invalid slug")
)

type StudioService struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string    `gorm:"type:varchar(120);not null" json:"name"`
	Slug               string    `gorm:"type:varchar(140);not null;uniqueIndex:ux_services_slug" json:"slug"`
	Description        string    `gorm:"type:text" json:"description"`
	StartingPriceCents int       `gorm:"not null;default:0" json:"starting_price_cents"`
	ImageURL           string    `gorm:"type:varchar(500)" json:"image_url"`
	IsActive           bool      `gorm:"not null" json:"is_active"`
	SortOrder          int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (StudioService) TableName() string { return "services" }

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(ctx context.Context, includeInactive bool) ([]StudioService, error) {
	q := s.db.WithContext(ctx).Order("sort_order ASC, name ASC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []StudioService
	return out, q.Find(&out).Error
}

type Input struct {
	Name               string
	Slug               string
	Description        string
	StartingPriceCents int
	ImageURL           string
	IsActive           bool
	SortOrder          int
}

func (s *Service) Create(ctx context.Context, in Input) (StudioService, error) {
	sl, err := resolveSlug(in)
	if err != nil {
		return StudioService{}, err
	}
	now := time.Now().UTC()
	out := StudioService{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(in.Name),
		Slug:               sl,
		Description:        strings.TrimSpace(in.Description),
		StartingPriceCents: in.StartingPriceCents,
		ImageURL:           strings.TrimSpace(in.ImageURL),
		IsActive:           in.IsActive,
		SortOrder:          in.SortOrder,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.db.WithContext(ctx).Create(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return StudioService{}, ErrSlugTaken
		}
		return StudioService{}, err
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (StudioService, error) {
	sl, err := resolveSlug(in)
	if err != nil {
		return StudioService{}, err
	}
	res := s.db.WithContext(ctx).Model(&StudioService{}).Where("id = ?", id).Updates(map[string]any{
		"name":                 strings.TrimSpace(in.Name),
		"slug":                 sl,
		"description":          strings.TrimSpace(in.Description),
		"starting_price_cents": in.StartingPriceCents,
		"image_url":            strings.TrimSpace(in.ImageURL),
		"is_active":            in.IsActive,
		"sort_order":           in.SortOrder,
		"updated_at":           time.Now().UTC(),
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return StudioService{}, ErrSlugTaken
		}
		return StudioService{}, res.Error
	}
	if res.RowsAffected == 0 {
		return StudioService{}, ErrNotFound
	}
	var out StudioService
	return out, s.db.WithContext(ctx).First(&out, "id = ?", id).Error
}

func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&StudioService{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func resolveSlug(in Input) (string, error) {
	sl := strings.TrimSpace(in.Slug)
	if sl == "" {
		return slug.FromName(in.Name, "service"), nil
	}
	if !slug.Valid(sl) {
		return "", ErrInvalidSlug
	}
	return sl, nil
}
