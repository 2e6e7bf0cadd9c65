package shipping

import "time"

type Shipment struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        string    `gorm:"type:uuid;not null;index:ix_shipments_order_id" json:"-"`
	Courier        string    `gorm:"type:varchar(64);not null" json:"courier"`
	TrackingNumber string    `gorm:"type:varchar(64)" json:"tracking_number,omitempty"`
	ShippedAt      time.Time `gorm:"not null" json:"shipped_at"`
	CreatedAt      time.Time `gorm:"not null" json:"-"`
}

func (Shipment) TableName() string { return "shipments" }
