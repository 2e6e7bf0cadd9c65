package view

type CustomizationView struct {
	Fields   map[string]string `json:"fields,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
	Size     string            `json:"size,omitempty"`
}

type CartLine struct {
	ID             string            `json:"id"`
	ProductID      string            `json:"product_id"`
	ProductName    string            `json:"product_name"`
	ProductSlug    string            `json:"product_slug"`
	ImageURL       string            `json:"image_url"`
	Quantity       int               `json:"quantity"`
	UnitPriceCents int               `json:"unit_price_cents"`
	LineTotalCents int               `json:"line_total_cents"`
	UnitPrice      string            `json:"unit_price"`
	LineTotal      string            `json:"line_total"`
	Customization  CustomizationView `json:"customization"`
	Available      bool              `json:"available"`
	Stock          int               `json:"stock"`
}

// Cart is the priced cart. HasUnavailable is set when a line's product went
// inactive or no longer has enough stock.
type Cart struct {
	ID             string     `json:"id"`
	Lines          []CartLine `json:"lines"`
	Count          int        `json:"count"`
	Currency       string     `json:"currency"`
	SubtotalCents  int        `json:"subtotal_cents"`
	Subtotal       string     `json:"subtotal"`
	HasUnavailable bool       `json:"has_unavailable"`
}
