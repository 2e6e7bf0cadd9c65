package orders

import (
	"context"
	"strings"
)

type AdminListParams struct {
	Q             string
	Status        string
	PaymentStatus string
	Page          int
	PageSize      int
}

type AdminListResult struct {
	Items []Order
	Total int64
}

func (r *Repo) AdminList(ctx context.Context, in AdminListParams) (AdminListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 30
	}

	q := strings.TrimSpace(in.Q)
	status := strings.TrimSpace(in.Status)
	payStatus := strings.TrimSpace(in.PaymentStatus)

	base := r.db.WithContext(ctx).Model(&Order{})
	if status != "" {
		base = base.Where("status = ?", status)
	}
	if payStatus != "" {
		base = base.Where("payment_status = ?", payStatus)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		base = base.Where("(LOWER(order_number) LIKE ? OR LOWER(email) LIKE ? OR LOWER(customer_name) LIKE ? OR phone LIKE ?)",
			like, like, like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return AdminListResult{}, err
	}

	var items []Order
	if err := base.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return AdminListResult{}, err
	}

	return AdminListResult{Items: items, Total: total}, nil
}

// AdminGetDetail includes the ledger on top of what customers see.
func (r *Repo) AdminGetDetail(ctx context.Context, orderID string) (Detail, error) {
	return r.detail(ctx, orderID, true)
}

func (r *Repo) AdminListFinancial(ctx context.Context, orderID string) ([]FinancialEntry, error) {
	var out []FinancialEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out, "order_id = ?", orderID).Error
	return out, err
}

// Dashboard figures. RevenueCents is gross captured money (online captures
// and collected COD); refunds are reported separately.
type Dashboard struct {
	StatusCounts    map[string]int64 `json:"status_counts"`
	AwaitingPayment int64            `json:"awaiting_payment"`
	RevenueCents    int64            `json:"revenue_cents"`
	RefundedCents   int64            `json:"refunded_cents"`
	NetRevenueCents int64            `json:"net_revenue_cents"`
	TodayOrders     int64            `json:"today_orders"`
	LowStock        []LowStockItem   `json:"low_stock"`
}

type LowStockItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}
