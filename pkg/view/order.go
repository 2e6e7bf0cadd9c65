package view

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type OrderItem struct {
	ID               string            `json:"id"`
	ProductID        string            `json:"product_id"`
	ProductName      string            `json:"product_name"`
	ProductSlug      string            `json:"product_slug"`
	ImageURL         string            `json:"image_url,omitempty"`
	Quantity         int               `json:"quantity"`
	UnitPriceCents   int               `json:"unit_price_cents"`
	LineTotalCents   int               `json:"line_total_cents"`
	UnitPrice        string            `json:"unit_price"`
	LineTotal        string            `json:"line_total"`
	Customization    CustomizationView `json:"customization"`
	RequiresApproval bool              `json:"requires_approval"`
}

type OrderEvent struct {
	Action    string `json:"action"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	ActorRole string `json:"actor_role"`
	Note      string `json:"note,omitempty"`
	At        string `json:"at"`
}

type Shipment struct {
	Courier        string `json:"courier"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	ShippedAt      string `json:"shipped_at"`
}

// OrderSummary is one row of an order list.
type OrderSummary struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method"`
	Email         string `json:"email"`
	CustomerName  string `json:"customer_name"`
	ItemCount     int    `json:"item_count,omitempty"`
	TotalCents    int    `json:"total_cents"`
	Total         string `json:"total"`
	CreatedAt     string `json:"created_at"`
}

type OrderList struct {
	Items      []OrderSummary `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

type OrderDetail struct {
	ID             string  `json:"id"`
	OrderNumber    string  `json:"order_number"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"payment_status"`
	PaymentMethod  string  `json:"payment_method"`
	ShippingMethod string  `json:"shipping_method"`
	Email          string  `json:"email"`
	CustomerName   string  `json:"customer_name"`
	Phone          string  `json:"phone"`
	Address        Address `json:"address"`
	Notes          string  `json:"notes,omitempty"`
	Currency       string  `json:"currency"`

	SubtotalCents int    `json:"subtotal_cents"`
	ShippingCents int    `json:"shipping_cents"`
	DiscountCents int    `json:"discount_cents"`
	TotalCents    int    `json:"total_cents"`
	RefundedCents int    `json:"refunded_cents"`
	Subtotal      string `json:"subtotal"`
	Shipping      string `json:"shipping"`
	Discount      string `json:"discount"`
	Total         string `json:"total"`

	PaidAt      string `json:"paid_at,omitempty"`
	CancelledAt string `json:"cancelled_at,omitempty"`
	CreatedAt   string `json:"created_at"`

	Items     []OrderItem  `json:"items"`
	Events    []OrderEvent `json:"events,omitempty"`
	Shipments []Shipment   `json:"shipments,omitempty"`
}

type DesignProof struct {
	ID               string `json:"id"`
	OrderItemID      string `json:"order_item_id"`
	Version          int    `json:"version"`
	ProofURL         string `json:"proof_url"`
	Status           string `json:"status"`
	AdminNote        string `json:"admin_note,omitempty"`
	CustomerFeedback string `json:"customer_feedback,omitempty"`
	RespondedAt      string `json:"responded_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}
