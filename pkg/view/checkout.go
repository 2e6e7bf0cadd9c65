package view

type ShippingOption struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	PriceCents int    `json:"price_cents"`
	Price      string `json:"price"`
}

// CheckoutQuote prices the current cart for each delivery option.
type CheckoutQuote struct {
	Cart            Cart             `json:"cart"`
	ShippingOptions []ShippingOption `json:"shipping_options"`
	PaymentMethods  []string         `json:"payment_methods"`
}

type CheckoutResult struct {
	Order      OrderDetail `json:"order"`
	Idempotent bool        `json:"idempotent"`
	TrackURL   string      `json:"track_url,omitempty"`
	// NextStep is "pay" for online orders and "done" for cash on delivery.
	NextStep string `json:"next_step"`
}
