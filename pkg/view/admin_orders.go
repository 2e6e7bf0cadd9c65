package view

type LedgerEntry struct {
	Event       string `json:"event"`
	AmountCents int    `json:"amount_cents"`
	Amount      string `json:"amount"`
	RefType     string `json:"ref_type"`
	RefID       string `json:"ref_id"`
	At          string `json:"at"`
}

type PaymentAttempt struct {
	ID               string `json:"id"`
	Provider         string `json:"provider"`
	GatewayOrderID   string `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	Status           string `json:"status"`
	AmountCents      int    `json:"amount_cents"`
	Error            string `json:"error,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type RefundRecord struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int    `json:"amount_cents"`
	Amount      string `json:"amount"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// AdminOrderDetail adds the money trail staff need on top of the customer view.
type AdminOrderDetail struct {
	OrderDetail
	UserID    string           `json:"user_id,omitempty"`
	Ledger    []LedgerEntry    `json:"ledger"`
	Payments  []PaymentAttempt `json:"payments"`
	Refunds   []RefundRecord   `json:"refunds"`
	Approvals []DesignProof    `json:"design_approvals"`
}
