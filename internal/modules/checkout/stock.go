package checkout

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockLine struct {
	ProductID string
	Qty       int
}

// DeductStockInTx runs inside the caller's transaction (no nested tx). Rows are
// locked in id order so concurrent checkouts cannot deadlock on each other.
// Either every line is deducted or an *OutOfStockError lists all short lines.
func DeductStockInTx(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	want, ids := aggregate(lines)
	if len(ids) == 0 {
		return nil
	}

	type productRow struct {
		ID    string `gorm:"column:id"`
		Stock int    `gorm:"column:stock"`
	}
	var rows []productRow

	if err := tx.WithContext(ctx).
		Table("products").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "stock").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return err
	}

	avail := make(map[string]int, len(rows))
	for _, r := range rows {
		avail[r.ID] = r.Stock
	}

	var oos []OutOfStockItem
	for _, id := range ids {
		req := want[id]
		av, ok := avail[id]
		if !ok || av < req {
			oos = append(oos, OutOfStockItem{ProductID: id, Requested: req, Available: av})
		}
	}
	if len(oos) > 0 {
		return &OutOfStockError{Items: oos}
	}

	for _, id := range ids {
		req := want[id]
		res := tx.WithContext(ctx).
			Table("products").
			Where("id = ? AND stock >= ?", id, req).
			UpdateColumn("stock", gorm.Expr("stock - ?", req))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return &OutOfStockError{Items: []OutOfStockItem{{ProductID: id, Requested: req, Available: 0}}}
		}
	}
	return nil
}

// RestoreStockInTx puts stock back for cancelled or expired orders.
func RestoreStockInTx(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	want, ids := aggregate(lines)
	for _, id := range ids {
		if err := tx.WithContext(ctx).
			Table("products").
			Where("id = ?", id).
			UpdateColumn("stock", gorm.Expr("stock + ?", want[id])).Error; err != nil {
			return err
		}
	}
	return nil
}

func aggregate(lines []StockLine) (map[string]int, []string) {
	want := make(map[string]int, len(lines))
	for _, ln := range lines {
		if ln.ProductID == "" {
			continue
		}
		q := ln.Qty
		if q < 1 {
			q = 1
		}
		want[ln.ProductID] += q
	}
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return want, ids
}
