package payments

import "errors"

var (
	ErrOrderNotPayable        = errors.New("order not payable")
	ErrForbidden              = errors.New("forbidden")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrSignatureMismatch      = errors.New("payment signature mismatch")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrNoSucceededPayment     = errors.New("no succeeded payment found")
	ErrNotRefundable          = errors.New("order not refundable")
	ErrInvalidWebhook         = errors.New("invalid webhook signature")
	ErrUnknownProvider        = errors.New("unknown payment provider")
)
