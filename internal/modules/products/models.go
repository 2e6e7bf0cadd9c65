package products

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusArchived = "archived"
)

type Product struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID     *string        `gorm:"type:uuid;index:ix_products_category_id" json:"category_id,omitempty"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name"`
	Slug           string         `gorm:"type:varchar(220);not null;uniqueIndex:ux_products_slug" json:"slug"`
	Description    string         `gorm:"type:text" json:"description"`
	PriceCents     int            `gorm:"not null" json:"price_cents"`
	CompareAtCents *int           `json:"compare_at_cents,omitempty"`
	Currency       string         `gorm:"type:char(3);not null;default:LKR" json:"currency"`
	Stock          int            `gorm:"not null;default:0" json:"stock"`
	IsCustomizable bool           `gorm:"not null;default:false" json:"is_customizable"`
	Customization  datatypes.JSON `gorm:"type:jsonb" json:"customization,omitempty"`
	IsFeatured     bool           `gorm:"not null;default:false;index:ix_products_featured" json:"is_featured"`
	Status         string         `gorm:"type:varchar(16);not null;default:draft;index:ix_products_status" json:"status"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`

	Images []ProductImage `gorm:"foreignKey:ProductID" json:"images"`
}

func (Product) TableName() string { return "products" }

// Schema decodes the customization schema; an empty column yields the zero schema.
func (p Product) Schema() CustomizationSchema {
	var s CustomizationSchema
	if len(p.Customization) > 0 {
		_ = json.Unmarshal(p.Customization, &s)
	}
	return s
}

func (p Product) PrimaryImage() string {
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

type ProductImage struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  string    `gorm:"type:uuid;not null;index:ix_product_images_product_id" json:"-"`
	URL        string    `gorm:"type:varchar(500);not null" json:"url"`
	StorageKey string    `gorm:"type:varchar(255)" json:"-"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `gorm:"not null" json:"-"`
}

func (ProductImage) TableName() string { return "product_images" }
