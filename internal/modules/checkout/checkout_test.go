package checkout_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/products"
)

var rates = checkout.ShippingRates{StandardCents: 35000, ExpressCents: 75000, FreeThresholdCents: 1000000}

func TestQuote(t *testing.T) {
	cases := []struct {
		method   string
		subtotal int
		want     int
	}{
		{checkout.ShippingStandard, 500000, 35000},
		{checkout.ShippingStandard, 1000000, 0},
		{checkout.ShippingExpress, 2000000, 75000},
		{checkout.ShippingPickup, 100, 0},
	}
	for _, tc := range cases {
		got, err := rates.Quote(tc.method, tc.subtotal)
		if err != nil {
			t.Errorf("Quote(%s, %d): %v", tc.method, tc.subtotal, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Quote(%s, %d): expected %d, got %d", tc.method, tc.subtotal, tc.want, got)
		}
	}

	if _, err := rates.Quote("drone", 100); !errors.Is(err, checkout.ErrUnknownShippingMethod) {
		t.Errorf("Expected ErrUnknownShippingMethod, got %v", err)
	}

	noFree := checkout.ShippingRates{StandardCents: 35000}
	if got, _ := noFree.Quote(checkout.ShippingStandard, 99999999); got != 35000 {
		t.Errorf("Expected no free shipping without a threshold, got %d", got)
	}
}

func TestOptions(t *testing.T) {
	opts := rates.Options(1200000)
	if len(opts) != 3 {
		t.Fatalf("Expected 3 options, got %d", len(opts))
	}
	if opts[0].Code != checkout.ShippingStandard || opts[0].PriceCents != 0 {
		t.Errorf("Expected free standard above threshold, got %+v", opts[0])
	}
	if opts[1].PriceCents != 75000 || opts[2].PriceCents != 0 {
		t.Errorf("Unexpected options %+v", opts)
	}
}

func product(t *testing.T, db *gorm.DB, slug string, stock int) products.Product {
	t.Helper()
	p, err := products.NewRepo(db).Create(context.Background(), products.Input{
		Name: slug, Slug: slug, PriceCents: 1000, Stock: stock, Status: products.StatusActive,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func stock(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var n int
	if err := db.Model(&products.Product{}).Where("id = ?", id).Pluck("stock", &n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDeductStockInTx(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	a := product(t, db, "album", 5)
	b := product(t, db, "banner", 1)

	// duplicate lines for the same product are summed
	err := db.Transaction(func(tx *gorm.DB) error {
		return checkout.DeductStockInTx(ctx, tx, []checkout.StockLine{
			{ProductID: a.ID, Qty: 2},
			{ProductID: a.ID, Qty: 1},
			{ProductID: b.ID, Qty: 1},
		})
	})
	if err != nil {
		t.Fatalf("DeductStockInTx: %v", err)
	}
	if got := stock(t, db, a.ID); got != 2 {
		t.Errorf("Expected album stock 2, got %d", got)
	}
	if got := stock(t, db, b.ID); got != 0 {
		t.Errorf("Expected banner stock 0, got %d", got)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return checkout.DeductStockInTx(ctx, tx, []checkout.StockLine{
			{ProductID: a.ID, Qty: 1},
			{ProductID: b.ID, Qty: 1},
		})
	})
	var oos *checkout.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("Expected OutOfStockError, got %v", err)
	}
	if len(oos.Items) != 1 || oos.Items[0].ProductID != b.ID || oos.Items[0].Available != 0 {
		t.Errorf("Unexpected out of stock items %+v", oos.Items)
	}
	if got := stock(t, db, a.ID); got != 2 {
		t.Errorf("Expected no partial deduction, got album stock %d", got)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return checkout.RestoreStockInTx(ctx, tx, []checkout.StockLine{{ProductID: b.ID, Qty: 3}})
	})
	if err != nil {
		t.Fatalf("RestoreStockInTx: %v", err)
	}
	if got := stock(t, db, b.ID); got != 3 {
		t.Errorf("Expected banner stock 3, got %d", got)
	}
}
