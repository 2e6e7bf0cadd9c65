package view

// ProductCard is the listing shape of a product.
type ProductCard struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	PriceCents     int    `json:"price_cents"`
	Price          string `json:"price"`
	CompareAtCents *int   `json:"compare_at_cents,omitempty"`
	CompareAt      string `json:"compare_at,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	InStock        bool   `json:"in_stock"`
	IsCustomizable bool   `json:"is_customizable"`
	IsFeatured     bool   `json:"is_featured"`
}

type ProductList struct {
	Items      []ProductCard `json:"items"`
	Pagination Pagination    `json:"pagination"`
}
