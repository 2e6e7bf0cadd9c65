package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/middleware"
	"geethika.lk/app/internal/http/validation"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/designapprovals"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/modules/wishlist"
	"geethika.lk/app/internal/shared/apperr"
	"geethika.lk/app/internal/shared/money"
	"geethika.lk/app/internal/storage"
)

type errMapping struct {
	target error
	kind   apperr.Kind
	msg    string
	field  string
}

// Order matters: wrapped errors match the first entry they satisfy.
var errMappings = []errMapping{
	{users.ErrEmailTaken, apperr.Conflict, "An account with this email already exists.", "email"},
	{users.ErrInvalidCredentials, apperr.Unauthorized, "Invalid email or password.", ""},
	{users.ErrWeakPassword, apperr.Invalid, "Password is too short.", "password"},
	{users.ErrInvalidEmail, apperr.Invalid, "Enter a valid email address.", "email"},
	{users.ErrInvalidRole, apperr.Invalid, "Unknown role.", "role"},
	{users.ErrNotFound, apperr.NotFound, "User not found.", ""},
	{users.ErrSelfDemotion, apperr.Forbidden, "You cannot change your own role.", ""},
	{users.ErrLastSuperAdmin, apperr.Conflict, "The last super admin cannot be removed.", ""},
	{users.ErrInvalidToken, apperr.Invalid, "This link is invalid or has expired.", "token"},
	{users.ErrAlreadyVerified, apperr.Conflict, "This email address is already verified.", ""},

	{categories.ErrNotFound, apperr.NotFound, "Category not found.", ""},
	{categories.ErrSlugTaken, apperr.Conflict, "That slug is already in use.", "slug"},
	{categories.ErrCategoryInUse, apperr.Conflict, "Move or delete the category's products first.", ""},
	{categories.ErrInvalidSlug, apperr.Invalid, "Invalid slug.", "slug"},

	{studio.ErrNotFound, apperr.NotFound, "Service not found.", ""},
	{studio.ErrSlugTaken, apperr.Conflict, "That slug is already in use.", "slug"},
	{studio.ErrInvalidSlug, apperr.Invalid, "Invalid slug.", "slug"},

	{products.ErrNotFound, apperr.NotFound, "Product not found.", ""},
	{products.ErrSlugTaken, apperr.Conflict, "That slug is already in use.", "slug"},
	{products.ErrInvalidSlug, apperr.Invalid, "Invalid slug.", "slug"},
	{products.ErrInvalidStatus, apperr.Invalid, "Invalid product status.", "status"},
	{products.ErrInvalidPrice, apperr.Invalid, "Price must be positive.", "price"},
	{products.ErrNegativeStock, apperr.Unprocessable, "Stock cannot go below zero.", "delta"},
	{products.ErrImageNotFound, apperr.NotFound, "Image not found.", ""},
	{products.ErrCategoryNotFound, apperr.Invalid, "Category not found.", "category_id"},
	{products.ErrSchemaNotAllowed, apperr.Invalid, "Only customizable products take a customization schema.", "customization"},
	{money.ErrInvalidAmount, apperr.Invalid, "Enter an amount such as 1250.50.", ""},

	{cart.ErrInvalidQuantity, apperr.Invalid, "Quantity must be between 1 and 99.", "quantity"},
	{cart.ErrInsufficientStock, apperr.Unprocessable, "Not enough stock for that quantity.", "quantity"},
	{cart.ErrProductUnavailable, apperr.Unprocessable, "This product is no longer available.", ""},
	{cart.ErrLineNotFound, apperr.NotFound, "Cart item not found.", ""},
	{cart.ErrCartNotFound, apperr.NotFound, "Cart not found.", ""},
	{wishlist.ErrProductUnavailable, apperr.Unprocessable, "This product is no longer available.", ""},

	{checkout.ErrUnknownShippingMethod, apperr.Invalid, "Choose a delivery option.", "shipping_method"},
	{orders.ErrCartEmpty, apperr.Unprocessable, "Your cart is empty.", ""},
	{orders.ErrCartNotFound, apperr.NotFound, "Cart not found.", ""},
	{orders.ErrProductUnavailable, apperr.Unprocessable, "A product in your cart is no longer available.", ""},
	{orders.ErrNotFound, apperr.NotFound, "Order not found.", ""},
	{orders.ErrForbidden, apperr.Forbidden, "This order belongs to another customer.", ""},
	{orders.ErrInvalidTransition, apperr.Conflict, "That status change is not allowed.", ""},
	{orders.ErrNotCancellable, apperr.Conflict, "This order can no longer be cancelled.", ""},
	{orders.ErrDesignApprovalPending, apperr.Conflict, "Waiting for the customer to approve the design.", ""},
	{orders.ErrIdempotencyConflict, apperr.Conflict, "This request was already used for another order.", ""},
	{orders.ErrInvalidPaymentMethod, apperr.Invalid, "Choose a payment method.", "payment_method"},
	{orders.ErrAddressRequired, apperr.Invalid, "A delivery address is required.", "address"},
	{orders.ErrContactRequired, apperr.Invalid, "Name, email and phone are required.", ""},

	{payments.ErrOrderNotPayable, apperr.Unprocessable, "This order cannot be paid online.", ""},
	{payments.ErrForbidden, apperr.Forbidden, "This order belongs to another customer.", ""},
	{payments.ErrPaymentNotFound, apperr.NotFound, "Payment not found.", ""},
	{payments.ErrSignatureMismatch, apperr.Unprocessable, "Payment could not be verified.", ""},
	{payments.ErrIdempotencyKeyRequired, apperr.Invalid, "Idempotency-Key header is required.", ""},
	{payments.ErrNoSucceededPayment, apperr.Unprocessable, "There is no captured payment to refund.", ""},
	{payments.ErrNotRefundable, apperr.Unprocessable, "This order has nothing left to refund.", ""},
	{payments.ErrInvalidWebhook, apperr.Invalid, "Invalid webhook.", ""},

	{designapprovals.ErrNotFound, apperr.NotFound, "Design proof not found.", ""},
	{designapprovals.ErrNotRequired, apperr.Unprocessable, "This item does not need a design approval.", ""},
	{designapprovals.ErrOrderClosed, apperr.Conflict, "This order no longer accepts proofs.", ""},
	{designapprovals.ErrNotLatest, apperr.Conflict, "Only the latest proof can be answered.", ""},
	{designapprovals.ErrFeedbackRequired, apperr.Invalid, "Tell us what to change.", "feedback"},
	{designapprovals.ErrInvalidDecision, apperr.Invalid, "Decision must be approve or request_changes.", "decision"},

	{storage.ErrTooLarge, apperr.Invalid, "Images must be 8 MB or smaller.", "file"},
	{storage.ErrUnsupportedImage, apperr.Invalid, "Upload a JPEG, PNG, GIF or WebP image.", "file"},
	{storage.ErrEmptyUpload, apperr.Invalid, "The uploaded file is empty.", "file"},
}

// ToAppErr translates domain errors into client-facing ones. Anything not
// recognised becomes a 500 with the cause kept for the log.
func ToAppErr(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}

	var oos *checkout.OutOfStockError
	if errors.As(err, &oos) {
		fields := make(map[string]string, len(oos.Items))
		for _, it := range oos.Items {
			fields[it.ProductID] = "Only " + strconv.Itoa(it.Available) + " left."
		}
		return &apperr.AppError{Kind: apperr.Unprocessable, PublicMsg: "Some items are out of stock.", Fields: fields, Err: err}
	}
	var ce *products.CustomizationError
	if errors.As(err, &ce) {
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Check your personalisation details.", Fields: ce.Fields(), Err: err}
	}

	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			ae := &apperr.AppError{Kind: m.kind, PublicMsg: m.msg, Err: err}
			if m.field != "" && (m.kind == apperr.Invalid || m.kind == apperr.Unprocessable || m.kind == apperr.Conflict) {
				ae.Fields = map[string]string{m.field: m.msg}
			}
			return ae
		}
	}
	return apperr.Wrap(err)
}

// Fail records err for the error handler and aborts the request.
func Fail(c *gin.Context, err error) {
	middleware.Fail(c, ToAppErr(err))
}

// BindJSON binds and validates the body, failing the request on error.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Please correct the highlighted fields.", validation.FromBindError(err)))
		return false
	}
	return true
}

// Page reads ?page and ?page_size with the given default size, capped at 100.
func Page(c *gin.Context, defSize int) (int, int) {
	page := atoiDefault(c.Query("page"), 1)
	size := atoiDefault(c.Query("page_size"), defSize)
	if size > 100 {
		size = 100
	}
	return page, size
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// MustUser returns the signed-in user; routes using it sit behind RequireAuth.
func MustUser(c *gin.Context) middleware.ContextUser {
	u, _ := middleware.CurrentUser(c)
	return u
}

// MaxIdempotencyKeyLen matches the width of the idempotency_key columns.
const MaxIdempotencyKeyLen = 64

// IdempotencyKey reads the Idempotency-Key header, falling back to a body value.
// It writes a 400 and reports false when the key is longer than MaxIdempotencyKeyLen.
func IdempotencyKey(c *gin.Context, fromBody string) (string, bool) {
	k := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if k == "" {
		k = strings.TrimSpace(fromBody)
	}
	if len(k) > MaxIdempotencyKeyLen {
		msg := "Idempotency keys are at most 64 characters."
		Fail(c, apperr.InvalidErr(msg, map[string]string{"idempotency_key": msg}))
		return "", false
	}
	return k, true
}
