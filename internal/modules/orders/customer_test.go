package orders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/orders"
)

func TestTrack(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	res, _ := placeOrder(t, db, orders.MethodCOD)
	svc := orders.NewService(db, nil, testRates)

	d, err := svc.Track(ctx, " "+res.Order.OrderNumber+" ", "NIMAL@example.com")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if d.Order.ID != res.Order.ID || len(d.Items) != 1 || len(d.Events) != 1 {
		t.Errorf("Unexpected tracking detail %+v", d)
	}
	if d.Financial != nil {
		t.Errorf("Expected no ledger in the public view")
	}

	if _, err := svc.Track(ctx, res.Order.OrderNumber, "other@example.com"); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for the wrong email, got %v", err)
	}
	if _, err := svc.Track(ctx, "GDW-000000-XXXXXX", "nimal@example.com"); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown number, got %v", err)
	}
}

func insertUser(t *testing.T, db *gorm.DB, id, addr string, verified bool) {
	t.Helper()
	now := time.Now().UTC()
	var verifiedAt *time.Time
	if verified {
		verifiedAt = &now
	}
	if err := db.Exec(`INSERT INTO users (id, email, email_verified_at, password_hash, full_name, role, created_at, updated_at)
		VALUES (?, ?, ?, 'x', 'Nimal Perera', 'customer', ?, ?)`,
		id, addr, verifiedAt, now, now).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func TestCustomerOrders(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	userID := "4f1c2d3e-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	insertUser(t, db, userID, "nimal@example.com", true)

	// a guest order placed with the verified account email
	res, p := placeOrder(t, db, orders.MethodCOD)
	svc := orders.NewService(db, nil, testRates)

	list, err := svc.ListByUser(ctx, orders.ListByUserParams{UserID: userID})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if list.Total != 1 || list.Items[0].Count != 2 {
		t.Errorf("Expected one order with 2 units, got %+v", list)
	}

	if _, err := svc.GetForOwner(ctx, res.Order.ID, userID); err != nil {
		t.Errorf("GetForOwner: %v", err)
	}
	if _, err := svc.GetForOwner(ctx, res.Order.ID, "99999999-0000-0000-0000-000000000000"); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("Expected a stranger to get ErrNotFound, got %v", err)
	}

	o, err := svc.CancelByCustomer(ctx, res.Order.ID, userID, "ordered twice")
	if err != nil {
		t.Fatalf("CancelByCustomer: %v", err)
	}
	if o.Status != orders.StatusCancelled {
		t.Errorf("Expected cancelled, got %s", o.Status)
	}
	if got := stockOf(t, db, p.ID); got != 10 {
		t.Errorf("Expected stock restored, got %d", got)
	}
	if _, err := svc.CancelByCustomer(ctx, res.Order.ID, userID, ""); !errors.Is(err, orders.ErrNotCancellable) {
		t.Errorf("Expected ErrNotCancellable, got %v", err)
	}
}

func TestUnverifiedAccountCannotClaimGuestOrders(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	res, _ := placeOrder(t, db, orders.MethodCOD)

	// registered later under the buyer's address, never verified
	userID := "7a6b5c4d-3e2f-4a1b-9c8d-7e6f5a4b3c2d"
	insertUser(t, db, userID, "nimal@example.com", false)
	svc := orders.NewService(db, nil, testRates)

	list, err := svc.ListByUser(ctx, orders.ListByUserParams{UserID: userID})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if list.Total != 0 || len(list.Items) != 0 {
		t.Errorf("Expected no orders for an unverified account, got %d", list.Total)
	}
	if _, err := svc.GetForOwner(ctx, res.Order.ID, userID); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from GetForOwner, got %v", err)
	}
	if _, err := svc.CancelByCustomer(ctx, res.Order.ID, userID, ""); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from CancelByCustomer, got %v", err)
	}

	if err := db.Exec(`UPDATE users SET email_verified_at = ? WHERE id = ?`, time.Now().UTC(), userID).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetForOwner(ctx, res.Order.ID, userID); err != nil {
		t.Errorf("Expected access once verified, got %v", err)
	}
}

func TestCustomerCannotCancelInProduction(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	userID := "4f1c2d3e-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	insertUser(t, db, userID, "nimal@example.com", true)

	res, _ := placeOrder(t, db, orders.MethodCOD)
	admin := orders.NewAdminService(db, nil, nil)
	transition(t, admin, res.Order.ID, orders.ActionConfirm)
	transition(t, admin, res.Order.ID, orders.ActionProcess)

	svc := orders.NewService(db, nil, testRates)
	if _, err := svc.CancelByCustomer(ctx, res.Order.ID, userID, ""); !errors.Is(err, orders.ErrNotCancellable) {
		t.Errorf("Expected ErrNotCancellable, got %v", err)
	}
}

func TestCustomerCannotCancelPaidOrder(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	userID := "5b2d3e4f-6a7b-4c8d-9e0f-1a2b3c4d5e6f"
	insertUser(t, db, userID, "nimal@example.com", true)
	svc := orders.NewService(db, nil, testRates)

	for _, status := range []string{orders.PaymentPaid, orders.PaymentPartiallyRefunded} {
		res, p := placeOrder(t, db, orders.MethodOnline)
		if err := db.Model(&orders.Order{}).Where("id = ?", res.Order.ID).Update("payment_status", status).Error; err != nil {
			t.Fatal(err)
		}
		if _, err := svc.CancelByCustomer(ctx, res.Order.ID, userID, "changed my mind"); !errors.Is(err, orders.ErrNotCancellable) {
			t.Errorf("%s: expected ErrNotCancellable, got %v", status, err)
		}
		got, _ := orders.NewRepo(db).Get(ctx, res.Order.ID)
		if got.Status != orders.StatusPending {
			t.Errorf("%s: expected the order left pending, got %s", status, got.Status)
		}
		if s := stockOf(t, db, p.ID); s != 8 {
			t.Errorf("%s: expected stock to stay deducted, got %d", status, s)
		}
	}
}

func TestOwnedBy(t *testing.T) {
	uid := "u1"
	mine := orders.Order{UserID: &uid, Email: "a@b.lk"}
	guest := orders.Order{Email: "a@b.lk"}

	if !mine.OwnedBy("u1", "") {
		t.Errorf("Expected user order owned by its user")
	}
	if mine.OwnedBy("u2", "a@b.lk") {
		t.Errorf("Expected user order not owned by another account with the same email")
	}
	if !guest.OwnedBy("u2", "a@b.lk") {
		t.Errorf("Expected guest order owned by the account with its email")
	}
	if guest.OwnedBy("u2", "") {
		t.Errorf("Expected guest order not owned without an email")
	}
}
