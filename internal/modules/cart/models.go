package cart

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"geethika.lk/app/internal/modules/products"
)

const (
	StatusOpen      = "open"
	StatusConverted = "converted"
	StatusMerged    = "merged"

	MaxLineQty = 99
)

type Cart struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	UserID    *string    `gorm:"type:uuid;index:ix_carts_user_status,priority:1"`
	Status    string     `gorm:"type:varchar(16);not null;default:open;index:ix_carts_user_status,priority:2"`
	Items     []CartItem `gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	CartID        string         `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:1"`
	ProductID     string         `gorm:"type:uuid;not null;index:ix_cart_items_product_id"`
	LineKey       string         `gorm:"type:char(64);not null;uniqueIndex:ux_cart_items_line,priority:2"`
	Quantity      int            `gorm:"not null"`
	Customization datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i CartItem) DecodeCustomization() products.Customization {
	var c products.Customization
	if len(i.Customization) > 0 {
		_ = json.Unmarshal(i.Customization, &c)
	}
	return c
}
