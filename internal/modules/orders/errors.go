package orders

import "errors"

var (
	ErrCartEmpty             = errors.New("cart is empty")
	ErrCartNotFound          = errors.New("cart not found")
	ErrProductUnavailable    = errors.New("product unavailable")
	ErrNotFound              = errors.New("order not found")
	ErrForbidden             = errors.New("order belongs to another customer")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrNotCancellable        = errors.New("order can no longer be cancelled")
	ErrDesignApprovalPending = errors.New("design approval pending")
	ErrIdempotencyConflict   = errors.New("idempotency key already used")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrAddressRequired       = errors.New("delivery address required")
	ErrContactRequired       = errors.New("contact details required")
)
