package orders_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/shared/slug"
)

var testRates = checkout.ShippingRates{StandardCents: 35000, ExpressCents: 75000, FreeThresholdCents: 1000000}

func newProduct(t *testing.T, db *gorm.DB, name string, price, stock int) products.Product {
	t.Helper()
	p, err := products.NewRepo(db).Create(context.Background(), products.Input{
		Name:       name,
		Slug:       slug.FromName(name, "product") + "-" + uuid.NewString()[:8],
		PriceCents: price,
		Stock:      stock,
		Status:     products.StatusActive,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func guestCartWith(t *testing.T, db *gorm.DB, lines ...cart.AddInput) cart.Cart {
	t.Helper()
	ctx := context.Background()
	svc := cart.NewService(db)
	c, err := svc.Repo().CreateGuestCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for _, ln := range lines {
		if _, err := svc.AddItem(ctx, c.ID, ln); err != nil {
			t.Fatalf("add item: %v", err)
		}
	}
	return c
}

func checkoutInput(cartID, method string) orders.CreateInput {
	return orders.CreateInput{
		CartID:         cartID,
		Email:          "Nimal@Example.com ",
		CustomerName:   "Nimal Perera",
		Phone:          "0771234567",
		Address:        orders.Address{Line1: "12 Temple Road", City: "Kandy"},
		ShippingMethod: checkout.ShippingStandard,
		PaymentMethod:  method,
	}
}

func stockOf(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var p products.Product
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Stock
}

func placeOrder(t *testing.T, db *gorm.DB, method string) (orders.CreateResult, products.Product) {
	t.Helper()
	p := newProduct(t, db, "Photo Mug", 250000, 10)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 2})
	svc := orders.NewService(db, nil, testRates)
	res, err := svc.CreateFromCart(context.Background(), checkoutInput(c.ID, method))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return res, p
}

func TestCreateFromCart(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	outbox := email.NewOutbox(db)
	svc := orders.NewService(db, orders.NewNotifier(outbox, "http://shop.test"), testRates)

	mug := newProduct(t, db, "Photo Mug", 250000, 10)
	frame := newProduct(t, db, "Wooden Frame", 180000, 3)
	c := guestCartWith(t, db,
		cart.AddInput{ProductID: mug.ID, Quantity: 2},
		cart.AddInput{ProductID: frame.ID, Quantity: 1},
	)

	res, err := svc.CreateFromCart(ctx, checkoutInput(c.ID, orders.MethodCOD))
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	o := res.Order
	if o.Status != orders.StatusPending || o.PaymentStatus != orders.PaymentUnpaid {
		t.Errorf("Expected pending/unpaid, got %s/%s", o.Status, o.PaymentStatus)
	}
	if o.Email != "nimal@example.com" {
		t.Errorf("Expected normalized email, got %q", o.Email)
	}
	if o.SubtotalCents != 680000 {
		t.Errorf("Expected subtotal 680000, got %d", o.SubtotalCents)
	}
	if o.ShippingCents != 35000 || o.TotalCents != 715000 {
		t.Errorf("Expected shipping 35000 and total 715000, got %d and %d", o.ShippingCents, o.TotalCents)
	}
	if !strings.HasPrefix(o.OrderNumber, "GDW-") || len(o.OrderNumber) != len("GDW-060102-ABCDEF") {
		t.Errorf("Unexpected order number %q", o.OrderNumber)
	}
	if len(res.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(res.Items))
	}
	if got := o.Address(); got.City != "Kandy" {
		t.Errorf("Expected address city Kandy, got %q", got.City)
	}

	if got := stockOf(t, db, mug.ID); got != 8 {
		t.Errorf("Expected mug stock 8, got %d", got)
	}
	if got := stockOf(t, db, frame.ID); got != 2 {
		t.Errorf("Expected frame stock 2, got %d", got)
	}

	var reloaded cart.Cart
	if err := db.First(&reloaded, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if reloaded.Status != cart.StatusConverted {
		t.Errorf("Expected cart converted, got %s", reloaded.Status)
	}

	var jobs []email.EmailJob
	if err := db.Find(&jobs).Error; err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Template != email.TplOrderReceived || jobs[0].To != "nimal@example.com" {
		t.Errorf("Expected one order_received job, got %+v", jobs)
	}

	var events []orders.OrderEvent
	db.Find(&events, "order_id = ?", o.ID)
	if len(events) != 1 || events[0].Action != "created" {
		t.Errorf("Expected a created event, got %+v", events)
	}

	// a converted cart cannot be checked out twice
	if _, err := svc.CreateFromCart(ctx, checkoutInput(c.ID, orders.MethodCOD)); !errors.Is(err, orders.ErrCartNotFound) {
		t.Errorf("Expected ErrCartNotFound, got %v", err)
	}
}

func TestCreateFromCartFreeShippingAndPickup(t *testing.T) {
	db := dbtest.Open(t)
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Canvas Print", 1200000, 5)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})
	res, err := svc.CreateFromCart(context.Background(), checkoutInput(c.ID, orders.MethodCOD))
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if res.Order.ShippingCents != 0 {
		t.Errorf("Expected free standard shipping above threshold, got %d", res.Order.ShippingCents)
	}

	c2 := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})
	in := checkoutInput(c2.ID, orders.MethodCOD)
	in.ShippingMethod = checkout.ShippingPickup
	in.Address = orders.Address{}
	res, err = svc.CreateFromCart(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateFromCart pickup: %v", err)
	}
	if res.Order.ShippingCents != 0 || len(res.Order.ShippingAddress) != 0 {
		t.Errorf("Expected pickup without address or fee, got %d / %s", res.Order.ShippingCents, res.Order.ShippingAddress)
	}
}

func TestCreateFromCartValidation(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Photo Mug", 250000, 10)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})

	in := checkoutInput(c.ID, "bitcoin")
	if _, err := svc.CreateFromCart(ctx, in); !errors.Is(err, orders.ErrInvalidPaymentMethod) {
		t.Errorf("Expected ErrInvalidPaymentMethod, got %v", err)
	}

	in = checkoutInput(c.ID, orders.MethodCOD)
	in.Address = orders.Address{}
	if _, err := svc.CreateFromCart(ctx, in); !errors.Is(err, orders.ErrAddressRequired) {
		t.Errorf("Expected ErrAddressRequired, got %v", err)
	}

	in = checkoutInput(c.ID, orders.MethodCOD)
	in.Phone = " "
	if _, err := svc.CreateFromCart(ctx, in); !errors.Is(err, orders.ErrContactRequired) {
		t.Errorf("Expected ErrContactRequired, got %v", err)
	}

	in = checkoutInput(c.ID, orders.MethodCOD)
	in.ShippingMethod = "drone"
	if _, err := svc.CreateFromCart(ctx, in); !errors.Is(err, checkout.ErrUnknownShippingMethod) {
		t.Errorf("Expected ErrUnknownShippingMethod, got %v", err)
	}
	if got := stockOf(t, db, p.ID); got != 10 {
		t.Errorf("Expected stock untouched after a failed checkout, got %d", got)
	}

	empty := guestCartWith(t, db)
	if _, err := svc.CreateFromCart(ctx, checkoutInput(empty.ID, orders.MethodCOD)); !errors.Is(err, orders.ErrCartEmpty) {
		t.Errorf("Expected ErrCartEmpty, got %v", err)
	}
}

func TestCreateFromCartOutOfStock(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	mug := newProduct(t, db, "Photo Mug", 250000, 5)
	frame := newProduct(t, db, "Wooden Frame", 180000, 5)
	c := guestCartWith(t, db,
		cart.AddInput{ProductID: mug.ID, Quantity: 4},
		cart.AddInput{ProductID: frame.ID, Quantity: 1},
	)
	// someone else bought most of the mugs after they were carted
	if _, err := products.NewRepo(db).AdjustStock(ctx, mug.ID, -3); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}

	_, err := svc.CreateFromCart(ctx, checkoutInput(c.ID, orders.MethodCOD))
	var oos *checkout.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("Expected OutOfStockError, got %v", err)
	}
	if len(oos.Items) != 1 || oos.Items[0].ProductID != mug.ID || oos.Items[0].Requested != 4 || oos.Items[0].Available != 2 {
		t.Errorf("Unexpected shortage report %+v", oos.Items)
	}
	if got := stockOf(t, db, frame.ID); got != 5 {
		t.Errorf("Expected frame stock untouched, got %d", got)
	}
	var n int64
	db.Model(&orders.Order{}).Count(&n)
	if n != 0 {
		t.Errorf("Expected no order rows, got %d", n)
	}
}

func TestCreateFromCartInactiveProduct(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Photo Mug", 250000, 5)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})
	db.Model(&products.Product{}).Where("id = ?", p.ID).Update("status", products.StatusArchived)

	_, err := svc.CreateFromCart(ctx, checkoutInput(c.ID, orders.MethodCOD))
	if !errors.Is(err, orders.ErrProductUnavailable) {
		t.Errorf("Expected ErrProductUnavailable, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "Photo Mug") {
		t.Errorf("Expected product name in error, got %v", err)
	}
}

func TestCreateFromCartIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Photo Mug", 250000, 10)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})
	in := checkoutInput(c.ID, orders.MethodOnline)
	in.IdempotencyKey = "chk-123"

	first, err := svc.CreateFromCart(ctx, in)
	if err != nil {
		t.Fatalf("first CreateFromCart: %v", err)
	}
	second, err := svc.CreateFromCart(ctx, in)
	if err != nil {
		t.Fatalf("second CreateFromCart: %v", err)
	}
	if !second.Idempotent || second.Order.ID != first.Order.ID {
		t.Errorf("Expected replay of order %s, got %s (idempotent=%v)", first.Order.ID, second.Order.ID, second.Idempotent)
	}
	if len(second.Items) != 1 {
		t.Errorf("Expected replayed items, got %d", len(second.Items))
	}
	if got := stockOf(t, db, p.ID); got != 9 {
		t.Errorf("Expected stock deducted once, got %d", got)
	}

	other := in
	other.Email = "someone@else.lk"
	if _, err := svc.CreateFromCart(ctx, other); !errors.Is(err, orders.ErrIdempotencyConflict) {
		t.Errorf("Expected ErrIdempotencyConflict, got %v", err)
	}
}

func TestCreateFromCartUserCartOwnership(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Photo Mug", 250000, 10)
	owner := "0b8f8e5c-8a53-4c3a-9d7a-1f1f1f1f1f1f"
	cs := cart.NewService(db)
	c, err := cs.Repo().GetOrCreateUserCart(ctx, owner)
	if err != nil {
		t.Fatalf("user cart: %v", err)
	}
	if _, err := cs.AddItem(ctx, c.ID, cart.AddInput{ProductID: p.ID, Quantity: 1}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	in := checkoutInput(c.ID, orders.MethodCOD)
	if _, err := svc.CreateFromCart(ctx, in); !errors.Is(err, orders.ErrCartNotFound) {
		t.Errorf("Expected guest checkout of a user cart to fail, got %v", err)
	}
	in.UserID = &owner
	res, err := svc.CreateFromCart(ctx, in)
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if res.Order.UserID == nil || *res.Order.UserID != owner {
		t.Errorf("Expected order owned by %s, got %v", owner, res.Order.UserID)
	}
}

func TestCreateFromCartMarksCustomItemsForApproval(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	p, err := products.NewRepo(db).Create(ctx, products.Input{
		Name:           "Engraved Pen",
		PriceCents:     90000,
		Stock:          5,
		Status:         products.StatusActive,
		IsCustomizable: true,
		Customization: &products.CustomizationSchema{
			TextFields: []products.TextField{{Key: "name", Label: "Name", MaxLength: 20, Required: true}},
		},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	c := guestCartWith(t, db, cart.AddInput{
		ProductID:     p.ID,
		Quantity:      1,
		Customization: products.Customization{Fields: map[string]string{"name": "Amaya"}},
	})
	res, err := svc.CreateFromCart(ctx, checkoutInput(c.ID, orders.MethodCOD))
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	it := res.Items[0]
	if !it.RequiresApproval {
		t.Errorf("Expected customized item to require approval")
	}
	if got := it.DecodeCustomization().Fields["name"]; got != "Amaya" {
		t.Errorf("Expected customization snapshot, got %q", got)
	}
}

func TestNewOrderNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n := orders.NewOrderNumber(mustTime(t, "2026-03-04T10:00:00Z"))
		if !strings.HasPrefix(n, "GDW-260304-") {
			t.Fatalf("Unexpected prefix in %q", n)
		}
		for _, r := range n[len("GDW-260304-"):] {
			if strings.ContainsRune("01IO", r) {
				t.Fatalf("Expected no look-alike characters, got %q", n)
			}
		}
		seen[n] = true
	}
	if len(seen) < 190 {
		t.Errorf("Expected mostly unique numbers, got %d distinct", len(seen))
	}
}

func TestCreateFromCartRetryWithoutCart(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Photo Mug", 250000, 10)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})
	in := checkoutInput(c.ID, orders.MethodCOD)
	in.IdempotencyKey = "retry-1"
	first, err := svc.CreateFromCart(ctx, in)
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}

	in.CartID = ""
	again, err := svc.CreateFromCart(ctx, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !again.Idempotent || again.Order.ID != first.Order.ID {
		t.Errorf("Expected the first order back, got %+v", again.Order)
	}

	in.IdempotencyKey = "retry-2"
	if _, err := svc.CreateFromCart(ctx, in); !errors.Is(err, orders.ErrCartNotFound) {
		t.Errorf("Expected ErrCartNotFound for an unknown key without a cart, got %v", err)
	}
}

func TestCreateFromCartSinhalaNotes(t *testing.T) {
	db := dbtest.Open(t)
	svc := orders.NewService(db, nil, testRates)

	p := newProduct(t, db, "Photo Mug", 250000, 10)
	c := guestCartWith(t, db, cart.AddInput{ProductID: p.ID, Quantity: 1})
	in := checkoutInput(c.ID, orders.MethodCOD)
	in.Notes = strings.Repeat("ශ", orders.MaxNoteRunes+200)

	res, err := svc.CreateFromCart(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	var o orders.Order
	if err := db.First(&o, "id = ?", res.Order.ID).Error; err != nil {
		t.Fatal(err)
	}
	if o.Notes == nil || !utf8.ValidString(*o.Notes) {
		t.Fatalf("Expected valid UTF-8 notes, got %v", o.Notes)
	}
	if n := utf8.RuneCountInString(*o.Notes); n != orders.MaxNoteRunes {
		t.Errorf("Expected %d runes, got %d", orders.MaxNoteRunes, n)
	}
}
