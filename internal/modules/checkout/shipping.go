package checkout

const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
	ShippingPickup   = "pickup"
)

// ShippingRates are island-wide flat fees in cents.
type ShippingRates struct {
	StandardCents      int
	ExpressCents       int
	FreeThresholdCents int
}

type ShippingOption struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	PriceCents int    `json:"price_cents"`
}

// Quote returns the fee for method given the order subtotal. Standard delivery
// is free at or above the threshold; pickup is always free.
func (r ShippingRates) Quote(method string, subtotalCents int) (int, error) {
	switch method {
	case ShippingPickup:
		return 0, nil
	case ShippingStandard:
		if r.FreeThresholdCents > 0 && subtotalCents >= r.FreeThresholdCents {
			return 0, nil
		}
		return r.StandardCents, nil
	case ShippingExpress:
		return r.ExpressCents, nil
	default:
		return 0, ErrUnknownShippingMethod
	}
}

func (r ShippingRates) Options(subtotalCents int) []ShippingOption {
	std, _ := r.Quote(ShippingStandard, subtotalCents)
	return []ShippingOption{
		{Code: ShippingStandard, Label: "Standard delivery (2-4 working days)", PriceCents: std},
		{Code: ShippingExpress, Label: "Express delivery (next working day)", PriceCents: r.ExpressCents},
		{Code: ShippingPickup, Label: "Pick up at the studio", PriceCents: 0},
	}
}
