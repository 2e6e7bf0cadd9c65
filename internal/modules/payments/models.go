package payments

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusInitiated = "initiated"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

type Payment struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	OrderID           string    `gorm:"type:uuid;not null;index:ix_payments_order_id"`
	Provider          string    `gorm:"type:varchar(64);not null;index:ix_payments_provider_ref,priority:1"`
	ProviderRef       *string   `gorm:"type:varchar(128);index:ix_payments_provider_ref,priority:2"`
	ProviderPaymentID *string   `gorm:"type:varchar(128)"`
	Status            string    `gorm:"type:varchar(32);not null"`
	AmountCents       int       `gorm:"not null"`
	Currency          string    `gorm:"type:char(3);not null"`
	IdempotencyKey    string    `gorm:"type:varchar(64);not null"`
	ErrorMessage      *string   `gorm:"type:varchar(255)"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

type Refund struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	OrderID   string `gorm:"type:uuid;not null;index:ix_refunds_order_id"`
	PaymentID string `gorm:"type:uuid;not null;index:ix_refunds_payment_id"`

	Provider    string  `gorm:"type:varchar(64);not null"`
	ProviderRef *string `gorm:"type:varchar(128)"`

	Status         string `gorm:"type:varchar(32);not null"`
	AmountCents    int    `gorm:"not null"`
	Currency       string `gorm:"type:char(3);not null"`
	IdempotencyKey string `gorm:"type:varchar(64);not null"`

	Reason       *string `gorm:"type:varchar(255)"`
	ErrorMessage *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Refund) TableName() string { return "refunds" }

type ProviderEvent struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:jsonb;not null"`

	ReceivedAt  time.Time `gorm:"not null"`
	ProcessedAt *time.Time
}

func (ProviderEvent) TableName() string { return "provider_events" }
