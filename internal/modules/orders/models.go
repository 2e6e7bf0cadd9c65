package orders

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"geethika.lk/app/internal/modules/products"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

const (
	PaymentUnpaid            = "unpaid"
	PaymentPaid              = "paid"
	PaymentFailed            = "failed"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentRefunded          = "refunded"
)

const (
	MethodOnline = "online"
	MethodCOD    = "cod"
)

const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
	ActorGateway  = "gateway"
)

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type Order struct {
	ID              string         `gorm:"type:uuid;primaryKey"`
	OrderNumber     string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_orders_number"`
	UserID          *string        `gorm:"type:uuid;index:ix_orders_user_id"`
	Email           string         `gorm:"type:varchar(255);not null;index:ix_orders_email"`
	CustomerName    string         `gorm:"type:varchar(120);not null"`
	Phone           string         `gorm:"type:varchar(32);not null"`
	Status          string         `gorm:"type:varchar(16);not null;index:ix_orders_status_created,priority:1"`
	PaymentStatus   string         `gorm:"type:varchar(24);not null"`
	PaymentMethod   string         `gorm:"type:varchar(16);not null"`
	ShippingMethod  string         `gorm:"type:varchar(16);not null"`
	ShippingAddress datatypes.JSON `gorm:"type:jsonb"`
	Notes           *string        `gorm:"type:text"`
	Currency        string         `gorm:"type:char(3);not null"`
	SubtotalCents   int            `gorm:"not null"`
	ShippingCents   int            `gorm:"not null"`
	DiscountCents   int            `gorm:"not null"`
	TotalCents      int            `gorm:"not null"`
	RefundedCents   int            `gorm:"not null"`
	IdempotencyKey  *string        `gorm:"type:varchar(64);uniqueIndex:ux_orders_idempotency_key"`
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time `gorm:"not null;index:ix_orders_status_created,priority:2"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

func (o Order) Address() Address {
	var a Address
	if len(o.ShippingAddress) > 0 {
		_ = json.Unmarshal(o.ShippingAddress, &a)
	}
	return a
}

// OwnedBy reports whether the order belongs to the user, either directly or
// as a guest order placed with the user's email.
func (o Order) OwnedBy(userID, email string) bool {
	if o.UserID != nil {
		return *o.UserID == userID
	}
	return email != "" && o.Email == email
}

type OrderItem struct {
	ID               string         `gorm:"type:uuid;primaryKey"`
	OrderID          string         `gorm:"type:uuid;not null;index:ix_order_items_order_id"`
	ProductID        string         `gorm:"type:uuid;not null;index:ix_order_items_product_id"`
	ProductName      string         `gorm:"type:varchar(200);not null"`
	ProductSlug      string         `gorm:"type:varchar(220);not null"`
	ImageURL         string         `gorm:"type:varchar(500)"`
	UnitPriceCents   int            `gorm:"not null"`
	Quantity         int            `gorm:"not null"`
	LineTotalCents   int            `gorm:"not null"`
	Customization    datatypes.JSON `gorm:"type:jsonb"`
	RequiresApproval bool           `gorm:"not null"`
	CreatedAt        time.Time      `gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i OrderItem) DecodeCustomization() products.Customization {
	var c products.Customization
	if len(i.Customization) > 0 {
		_ = json.Unmarshal(i.Customization, &c)
	}
	return c
}

type OrderEvent struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	OrderID     string    `gorm:"type:uuid;not null;index:ix_order_events_order_id"`
	ActorUserID *string   `gorm:"type:uuid"`
	ActorRole   string    `gorm:"type:varchar(16);not null"`
	Action      string    `gorm:"type:varchar(32);not null"`
	FromStatus  string    `gorm:"type:varchar(16)"`
	ToStatus    string    `gorm:"type:varchar(16)"`
	Note        *string   `gorm:"type:varchar(500)"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (OrderEvent) TableName() string { return "order_events" }

type FinancialEntry struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	OrderID     string    `gorm:"type:uuid;not null;index:ix_financial_entries_order_id"`
	Event       string    `gorm:"type:varchar(32);not null;index:ix_financial_entries_ref,priority:3"`
	AmountCents int       `gorm:"not null"`
	Currency    string    `gorm:"type:char(3);not null"`
	RefType     string    `gorm:"type:varchar(16);not null;index:ix_financial_entries_ref,priority:1"`
	RefID       string    `gorm:"type:varchar(64);not null;index:ix_financial_entries_ref,priority:2"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (FinancialEntry) TableName() string { return "financial_entries" }

// Ledger events. Refunds are stored negative; refund_failed is always zero.
const (
	LedgerPaymentSucceeded = "payment_succeeded"
	LedgerCODCollected     = "cod_collected"
	LedgerRefundSucceeded  = "refund_succeeded"
	LedgerRefundFailed     = "refund_failed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentUnpaid, PaymentPaid, PaymentFailed, PaymentPartiallyRefunded, PaymentRefunded:
		return true
	}
	return false
}
