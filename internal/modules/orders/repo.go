package orders

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"geethika.lk/app/internal/modules/shipping"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

type ListByUserParams struct {
	UserID   string
	Page     int
	PageSize int
	Status   string // optional filter
}

type ListByUserResult struct {
	Items []ListByUserItem
	Total int64
}

type ListByUserItem struct {
	Order Order
	Count int
}

func (r *Repo) ListByUser(ctx context.Context, in ListByUserParams) (ListByUserResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	status := strings.TrimSpace(in.Status)

	userEmail, err := LinkedEmail(ctx, r.db, in.UserID)
	if err != nil {
		return ListByUserResult{}, err
	}

	q := r.db.WithContext(ctx).Model(&Order{})
	if userEmail != "" {
		// guest orders placed with a verified account email belong to the user too
		q = q.Where("user_id = ? OR (user_id IS NULL AND email = ?)", in.UserID, userEmail)
	} else {
		q = q.Where("user_id = ?", in.UserID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListByUserResult{}, err
	}

	var orders []Order
	if err := q.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&orders).Error; err != nil {
		return ListByUserResult{}, err
	}

	counts, err := r.itemCounts(ctx, orders)
	if err != nil {
		return ListByUserResult{}, err
	}
	items := make([]ListByUserItem, len(orders))
	for i, o := range orders {
		items[i] = ListByUserItem{Order: o, Count: counts[o.ID]}
	}

	return ListByUserResult{Items: items, Total: total}, nil
}

func (r *Repo) itemCounts(ctx context.Context, orders []Order) (map[string]int, error) {
	out := make(map[string]int, len(orders))
	if len(orders) == 0 {
		return out, nil
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	type row struct {
		OrderID string
		Qty     int
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&OrderItem{}).
		Select("order_id, SUM(quantity) AS qty").
		Where("order_id IN ?", ids).
		Group("order_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.OrderID] = rw.Qty
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) GetWithItems(ctx context.Context, id string) (Order, []OrderItem, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return Order{}, nil, err
	}
	var items []OrderItem
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&items, "order_id = ?", id).Error; err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

func (r *Repo) detail(ctx context.Context, id string, withLedger bool) (Detail, error) {
	o, items, err := r.GetWithItems(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Order: o, Items: items}
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&d.Events, "order_id = ?", id).Error; err != nil {
		return Detail{}, err
	}
	if d.Shipments, err = shipping.NewRepo(r.db).ListByOrder(ctx, id); err != nil {
		return Detail{}, err
	}
	if withLedger {
		if d.Financial, err = r.AdminListFinancial(ctx, id); err != nil {
			return Detail{}, err
		}
	}
	return d, nil
}

// LinkedEmail returns the user's email once it has been verified, and ""
// otherwise. Guest orders are matched to accounts through it.
func LinkedEmail(ctx context.Context, db *gorm.DB, userID string) (string, error) {
	var email string
	err := db.WithContext(ctx).Table("users").Select("email").
		Where("id = ? AND email_verified_at IS NOT NULL", userID).
		Scan(&email).Error
	return email, err
}
