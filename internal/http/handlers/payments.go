package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/middleware"
	"geethika.lk/app/internal/modules/payments"
)

type PaymentHandler struct {
	Payments *payments.Service
}

// payer identifies the caller: the signed-in account, otherwise the order
// email a guest sends along.
func payer(c *gin.Context, email string) payments.Payer {
	if u, ok := middleware.CurrentUser(c); ok {
		uid := u.ID
		return payments.Payer{UserID: &uid, Email: u.Email}
	}
	return payments.Payer{Email: email}
}

type initiateReq struct {
	Email          string `json:"email" binding:"omitempty,email"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}

type initiateResp struct {
	OrderID        string `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	PaymentID      string `json:"payment_id"`
	Provider       string `json:"provider"`
	GatewayOrderID string `json:"gateway_order_id"`
	KeyID          string `json:"key_id"`
	AmountCents    int    `json:"amount_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Idempotent     bool   `json:"idempotent"`
}

// POST /api/orders/:id/payments opens a gateway session for the order.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var in initiateReq
	if !BindJSON(c, &in) {
		return
	}
	key, ok := IdempotencyKey(c, in.IdempotencyKey)
	if !ok {
		return
	}
	res, err := h.Payments.InitiatePayment(c.Request.Context(), payments.InitiateInput{
		OrderID:        c.Param("id"),
		Payer:          payer(c, in.Email),
		IdempotencyKey: key,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	status := http.StatusCreated
	if res.Idempotent {
		status = http.StatusOK
	}
	c.JSON(status, initiateResp{
		OrderID:        res.OrderID,
		OrderNumber:    res.OrderNumber,
		PaymentID:      res.PaymentID,
		Provider:       h.Payments.Provider().Name(),
		GatewayOrderID: res.GatewayOrderID,
		KeyID:          res.KeyID,
		AmountCents:    res.AmountCents,
		Currency:       res.Currency,
		Status:         res.Status,
		Idempotent:     res.Idempotent,
	})
}

type verifyReq struct {
	Email            string `json:"email" binding:"omitempty,email"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"required,max=128"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required,max=128"`
	Signature        string `json:"signature" binding:"required,max=256"`
}

// POST /api/orders/:id/payments/verify checks the widget's signature.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var in verifyReq
	if !BindJSON(c, &in) {
		return
	}
	res, err := h.Payments.VerifyPayment(c.Request.Context(), payments.VerifyInput{
		OrderID:          c.Param("id"),
		Payer:            payer(c, in.Email),
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
		Signature:        in.Signature,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":            OrderSummary(res.Order, 0),
		"payment_id":       res.PaymentID,
		"already_verified": res.AlreadyVerified,
	})
}

type failReq struct {
	Email          string `json:"email" binding:"omitempty,email"`
	GatewayOrderID string `json:"gateway_order_id" binding:"required,max=128"`
	Reason         string `json:"reason" binding:"max=500"`
}

// POST /api/orders/:id/payments/fail records a failure the widget reported.
func (h *PaymentHandler) ReportFailure(c *gin.Context) {
	var in failReq
	if !BindJSON(c, &in) {
		return
	}
	if err := h.Payments.FailPayment(c.Request.Context(), payments.FailInput{
		OrderID:        c.Param("id"),
		Payer:          payer(c, in.Email),
		GatewayOrderID: in.GatewayOrderID,
		Reason:         in.Reason,
	}); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
