package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/handlers"
	"geethika.lk/app/internal/modules/designapprovals"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/shared/apperr"
	"geethika.lk/app/internal/shared/money"
	"geethika.lk/app/internal/storage"
	"geethika.lk/app/pkg/view"
)

type OrdersHandler struct {
	Orders    *orders.AdminService
	Payments  *payments.Service
	Refunds   *payments.RefundService
	Approvals *designapprovals.Service
}

// GET /api/admin/orders?q=&status=&payment_status=&page=
func (h *OrdersHandler) List(c *gin.Context) {
	page, size := handlers.Page(c, 30)
	res, err := h.Orders.Repo().AdminList(c.Request.Context(), orders.AdminListParams{
		Q:             strings.TrimSpace(c.Query("q")),
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	out := view.OrderList{
		Items:      make([]view.OrderSummary, 0, len(res.Items)),
		Pagination: view.NewPagination(page, size, res.Total),
	}
	for _, o := range res.Items {
		out.Items = append(out.Items, handlers.OrderSummary(o, 0))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/admin/orders/:id
func (h *OrdersHandler) Detail(c *gin.Context) {
	h.renderDetail(c, c.Param("id"))
}

func (h *OrdersHandler) renderDetail(c *gin.Context, id string) {
	ctx := c.Request.Context()
	det, err := h.Orders.Repo().AdminGetDetail(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	pays, err := h.Payments.ListForOrder(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	refunds, err := h.Refunds.ListForOrder(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	proofs, err := h.Approvals.ListForOrder(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": handlers.AdminOrderDetail(det, pays, refunds, proofs)})
}

type transitionReq struct {
	Action         string `json:"action" binding:"required,oneof=confirm process ship deliver cancel"`
	Note           string `json:"note" binding:"max=500"`
	Courier        string `json:"courier" binding:"max=64"`
	TrackingNumber string `json:"tracking_number" binding:"max=64"`
}

// POST /api/admin/orders/:id/transition
func (h *OrdersHandler) Transition(c *gin.Context) {
	var in transitionReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	if _, err := h.Orders.Transition(c.Request.Context(), orders.TransitionInput{
		OrderID:        c.Param("id"),
		ActorUserID:    handlers.MustUser(c).ID,
		Action:         in.Action,
		Note:           in.Note,
		Courier:        in.Courier,
		TrackingNumber: in.TrackingNumber,
	}); err != nil {
		handlers.Fail(c, err)
		return
	}
	h.renderDetail(c, c.Param("id"))
}

type refundReq struct {
	// Amount is a decimal string; empty refunds whatever is left.
	Amount         string `json:"amount"`
	Reason         string `json:"reason" binding:"max=500"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}

// POST /api/admin/orders/:id/refunds
func (h *OrdersHandler) Refund(c *gin.Context) {
	var in refundReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	var amount int
	if strings.TrimSpace(in.Amount) != "" {
		var err error
		if amount, err = money.ParseCents(in.Amount); err != nil || amount == 0 {
			handlers.Fail(c, apperr.InvalidErr("Enter an amount such as 1250.50.", map[string]string{"amount": "Enter an amount such as 1250.50."}))
			return
		}
	}
	key, ok := handlers.IdempotencyKey(c, in.IdempotencyKey)
	if !ok {
		return
	}
	if key == "" {
		handlers.Fail(c, payments.ErrIdempotencyKeyRequired)
		return
	}
	res, err := h.Refunds.RefundOrder(c.Request.Context(), payments.RefundOrderInput{
		OrderID:        c.Param("id"),
		ActorUserID:    handlers.MustUser(c).ID,
		IdempotencyKey: key,
		AmountCents:    amount,
		Reason:         in.Reason,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	status := http.StatusCreated
	if res.Idempotent {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"refund_id":    res.RefundID,
		"status":       res.Status,
		"amount_cents": res.AmountCents,
		"amount":       view.MoneyFromCents(res.AmountCents, money.Currency),
		"idempotent":   res.Idempotent,
	})
}

// POST /api/admin/orders/:id/items/:itemID/proofs (multipart "file", "note")
func (h *OrdersHandler) SubmitProof(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		handlers.Fail(c, apperr.InvalidErr("Choose an image to upload.", map[string]string{"file": "Choose an image to upload."}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	defer f.Close()

	a, err := h.Approvals.SubmitProof(c.Request.Context(), designapprovals.SubmitInput{
		AdminID: handlers.MustUser(c).ID,
		OrderID: c.Param("id"),
		ItemID:  c.Param("itemID"),
		Note:    c.PostForm("note"),
		File:    f,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"approval": handlers.DesignProof(a)})
}
