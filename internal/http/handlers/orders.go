package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/modules/designapprovals"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/pkg/view"
)

type OrderHandler struct {
	Orders    *orders.Service
	Approvals *designapprovals.Service
}

// GET /api/orders/track?order=GDW-...&email=...
func (h *OrderHandler) Track(c *gin.Context) {
	det, err := h.Orders.Track(c.Request.Context(), c.Query("order"), c.Query("email"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": FullOrderDetail(det)})
}

// GET /api/orders
func (h *OrderHandler) Mine(c *gin.Context) {
	page, size := Page(c, 20)
	res, err := h.Orders.ListByUser(c.Request.Context(), orders.ListByUserParams{
		UserID:   MustUser(c).ID,
		Page:     page,
		PageSize: size,
		Status:   c.Query("status"),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	out := view.OrderList{
		Items:      make([]view.OrderSummary, 0, len(res.Items)),
		Pagination: view.NewPagination(page, size, res.Total),
	}
	for _, it := range res.Items {
		out.Items = append(out.Items, OrderSummary(it.Order, it.Count))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/orders/:id
func (h *OrderHandler) Detail(c *gin.Context) {
	u := MustUser(c)
	det, err := h.Orders.GetForOwner(c.Request.Context(), c.Param("id"), u.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	proofs, err := h.Approvals.ListForOwner(c.Request.Context(), det.Order.ID, u.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": FullOrderDetail(det), "design_approvals": DesignProofs(proofs)})
}

type cancelReq struct {
	Reason string `json:"reason" binding:"max=500"`
}

// POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	var in cancelReq
	if c.Request.ContentLength > 0 && !BindJSON(c, &in) {
		return
	}
	o, err := h.Orders.CancelByCustomer(c.Request.Context(), c.Param("id"), MustUser(c).ID, in.Reason)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": OrderSummary(o, 0)})
}

// GET /api/orders/:id/approvals
func (h *OrderHandler) ListApprovals(c *gin.Context) {
	list, err := h.Approvals.ListForOwner(c.Request.Context(), c.Param("id"), MustUser(c).ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": DesignProofs(list)})
}

type respondReq struct {
	Decision string `json:"decision" binding:"required,oneof=approve request_changes"`
	Feedback string `json:"feedback" binding:"max=2000"`
}

// POST /api/approvals/:id/respond
func (h *OrderHandler) RespondApproval(c *gin.Context) {
	var in respondReq
	if !BindJSON(c, &in) {
		return
	}
	a, err := h.Approvals.Respond(c.Request.Context(), designapprovals.RespondInput{
		UserID:     MustUser(c).ID,
		ApprovalID: c.Param("id"),
		Decision:   in.Decision,
		Feedback:   in.Feedback,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approval": DesignProof(a)})
}
