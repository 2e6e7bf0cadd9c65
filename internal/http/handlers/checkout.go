package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/middleware"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/pkg/view"
)

type CheckoutHandler struct {
	Cart     *CartHandler
	Orders   *orders.Service
	Rates    checkout.ShippingRates
	Notifier *orders.Notifier
}

// GET /api/checkout prices the current cart for every delivery option.
func (h *CheckoutHandler) Quote(c *gin.Context) {
	id, err := h.Cart.currentCart(c, false)
	if err != nil {
		Fail(c, err)
		return
	}
	if id == "" {
		Fail(c, orders.ErrCartEmpty)
		return
	}
	vm, err := h.Cart.Carts.View(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	opts := h.Rates.Options(vm.SubtotalCents)
	q := view.CheckoutQuote{
		Cart:            vm,
		ShippingOptions: make([]view.ShippingOption, 0, len(opts)),
		PaymentMethods:  []string{orders.MethodOnline, orders.MethodCOD},
	}
	for _, o := range opts {
		q.ShippingOptions = append(q.ShippingOptions, view.ShippingOption{
			Code:       o.Code,
			Label:      o.Label,
			PriceCents: o.PriceCents,
			Price:      view.MoneyFromCents(o.PriceCents, vm.Currency),
		})
	}
	c.JSON(http.StatusOK, q)
}

type addressReq struct {
	Line1      string `json:"line1" binding:"max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	District   string `json:"district" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=16"`
}

type checkoutReq struct {
	Email          string     `json:"email" binding:"omitempty,email,max=255"`
	CustomerName   string     `json:"customer_name" binding:"required,max=120"`
	Phone          string     `json:"phone" binding:"required,lkphone"`
	Address        addressReq `json:"address"`
	ShippingMethod string     `json:"shipping_method" binding:"required,oneof=standard express pickup"`
	PaymentMethod  string     `json:"payment_method" binding:"required,oneof=online cod"`
	Notes          string     `json:"notes" binding:"max=1000"`
	IdempotencyKey string     `json:"idempotency_key" binding:"max=64"`
}

// POST /api/checkout turns the current cart into an order. Repeating the
// request with the same idempotency key returns the first order.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var in checkoutReq
	if !BindJSON(c, &in) {
		return
	}
	id, err := h.Cart.currentCart(c, false)
	if err != nil {
		Fail(c, err)
		return
	}
	key, ok := IdempotencyKey(c, in.IdempotencyKey)
	if !ok {
		return
	}
	if id == "" && key == "" {
		Fail(c, orders.ErrCartEmpty)
		return
	}

	input := orders.CreateInput{
		CartID:       id,
		Email:        in.Email,
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		Address: orders.Address{
			Line1:      in.Address.Line1,
			Line2:      in.Address.Line2,
			City:       in.Address.City,
			District:   in.Address.District,
			PostalCode: in.Address.PostalCode,
		},
		ShippingMethod: in.ShippingMethod,
		PaymentMethod:  in.PaymentMethod,
		Notes:          in.Notes,
		IdempotencyKey: key,
	}
	u, signedIn := middleware.CurrentUser(c)
	if signedIn {
		uid := u.ID
		input.UserID = &uid
		if input.Email == "" {
			input.Email = u.Email
		}
	}

	res, err := h.Orders.CreateFromCart(c.Request.Context(), input)
	if id == "" && errors.Is(err, orders.ErrCartNotFound) {
		err = orders.ErrCartEmpty
	}
	if err != nil {
		Fail(c, err)
		return
	}
	if !signedIn {
		h.Cart.CK.Clear(c)
	}

	out := view.CheckoutResult{
		Order:      OrderDetail(res.Order, res.Items),
		Idempotent: res.Idempotent,
		NextStep:   "done",
	}
	if res.Order.PaymentMethod == orders.MethodOnline {
		out.NextStep = "pay"
	}
	if h.Notifier != nil {
		out.TrackURL = h.Notifier.TrackURL(res.Order)
	}
	status := http.StatusCreated
	if res.Idempotent {
		status = http.StatusOK
	}
	c.JSON(status, out)
}

