package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/handlers"
	"geethika.lk/app/internal/metrics"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/shared/money"
	"geethika.lk/app/pkg/view"
)

type DashboardHandler struct {
	Orders   *orders.AdminService
	Recorder *metrics.Recorder
}

// GET /api/admin/dashboard
func (h *DashboardHandler) Show(c *gin.Context) {
	d, err := h.Orders.Dashboard(c.Request.Context())
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dashboard":   d,
		"revenue":     view.MoneyFromCents(int(d.RevenueCents), money.Currency),
		"refunded":    view.MoneyFromCents(int(d.RefundedCents), money.Currency),
		"net_revenue": view.MoneyFromCents(int(d.NetRevenueCents), money.Currency),
	})
}

// GET /api/admin/metrics
func (h *DashboardHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Recorder.Snapshot())
}
