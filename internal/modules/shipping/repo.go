package shipping

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// CreateTx records a shipment inside the caller's transaction.
func CreateTx(ctx context.Context, tx *gorm.DB, orderID, courier, trackingNumber string, at time.Time) (Shipment, error) {
	courier = strings.TrimSpace(courier)
	if courier == "" {
		courier = "Store delivery"
	}
	s := Shipment{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		Courier:        courier,
		TrackingNumber: strings.TrimSpace(trackingNumber),
		ShippedAt:      at,
		CreatedAt:      at,
	}
	return s, tx.WithContext(ctx).Create(&s).Error
}

func (r *Repo) ListByOrder(ctx context.Context, orderID string) ([]Shipment, error) {
	orderID = strings.ToLower(strings.TrimSpace(orderID))

	var shipments []Shipment
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&shipments, "order_id = ?", orderID).Error
	return shipments, err
}
