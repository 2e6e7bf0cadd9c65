package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/users"
)

// testEnv points every command at a fresh SQLite database and an observed logger.
func testEnv(t *testing.T) (*gorm.DB, *observer.ObservedLogs) {
	t.Helper()
	db := dbtest.Open(t)
	core, logs := observer.New(zapcore.InfoLevel)

	prev := openEnv
	openEnv = func() (*env, error) {
		return &env{
			cfg:  config.Defaults(),
			db:   db,
			log:  zap.New(core),
			ping: func(context.Context) (string, error) { return "SQLite (test)", nil },
		}, nil
	}
	t.Cleanup(func() { openEnv = prev })
	return db, logs
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func onlineOrder(t *testing.T, db *gorm.DB, age time.Duration) orders.Order {
	t.Helper()
	ctx := context.Background()
	p, err := products.NewRepo(db).Create(ctx, products.Input{
		Name:       "Photo Mug",
		Slug:       "mug-" + uuid.NewString()[:8],
		PriceCents: 250000,
		Stock:      5,
		Status:     products.StatusActive,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	carts := cart.NewService(db)
	c, err := carts.Repo().CreateGuestCart(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := carts.AddItem(ctx, c.ID, cart.AddInput{ProductID: p.ID, Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	res, err := orders.NewService(db, nil, checkout.ShippingRates{StandardCents: 35000}).CreateFromCart(ctx, orders.CreateInput{
		CartID:         c.ID,
		Email:          "nimal@example.com",
		CustomerName:   "Nimal Perera",
		Phone:          "0771234567",
		Address:        orders.Address{Line1: "12 Temple Road", City: "Kandy"},
		ShippingMethod: checkout.ShippingStandard,
		PaymentMethod:  orders.MethodOnline,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := db.Model(&orders.Order{}).Where("id = ?", res.Order.ID).
		Update("created_at", time.Now().UTC().Add(-age)).Error; err != nil {
		t.Fatal(err)
	}
	return res.Order
}

func TestDoctorAllGood(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	if !strings.Contains(out, "SQLite (test)") || !strings.Contains(out, "all good") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "orders") {
		t.Errorf("Expected the orders table listed, got:\n%s", out)
	}
}

func TestDoctorReportsDriftAndStuckOrders(t *testing.T) {
	db, logs := testEnv(t)
	stale := onlineOrder(t, db, 2*time.Hour)
	onlineOrder(t, db, time.Minute)

	if err := db.Migrator().DropTable(&users.EmailVerification{}); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "doctor")
	if err == nil || !strings.Contains(err.Error(), "1 schema problems") {
		t.Fatalf("Expected one schema problem, got %v", err)
	}
	if !strings.Contains(out, "email_verifications") || !strings.Contains(out, "missing table") {
		t.Errorf("Expected the dropped table reported, got:\n%s", out)
	}
	if !strings.Contains(out, "1 online orders pending") || !strings.Contains(out, stale.OrderNumber) {
		t.Errorf("Expected the stale order listed, got:\n%s", out)
	}
	if got := logs.FilterMessage("orders stuck awaiting payment").All(); len(got) != 1 || got[0].ContextMap()["count"] != int64(1) {
		t.Errorf("Expected one stuck-orders warning with count 1, got %+v", got)
	}
}

func TestOrdersExpire(t *testing.T) {
	db, logs := testEnv(t)
	stale := onlineOrder(t, db, 2*time.Hour)
	fresh := onlineOrder(t, db, time.Minute)

	if out, err := execute(t, "orders", "expire", "--ttl", "1h"); err != nil {
		t.Fatalf("orders expire: %v\n%s", err, out)
	}

	repo := orders.NewRepo(db)
	if o, _ := repo.Get(context.Background(), stale.ID); o.Status != orders.StatusCancelled {
		t.Errorf("Expected the stale order cancelled, got %s", o.Status)
	}
	if o, _ := repo.Get(context.Background(), fresh.ID); o.Status != orders.StatusPending {
		t.Errorf("Expected the fresh order pending, got %s", o.Status)
	}

	entries := logs.FilterMessage("expired unpaid orders").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one summary log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["count"] != int64(1) || fields["ttl"] != time.Hour {
		t.Errorf("Unexpected log fields %v", fields)
	}
}

func TestAdminPromote(t *testing.T) {
	db, logs := testEnv(t)
	u, err := users.NewService(db).Register(context.Background(), users.RegisterInput{
		Email:    "staff@example.com",
		Password: "correct-horse",
		FullName: "Sunil Fernando",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if out, err := execute(t, "admin", "promote", "Staff@Example.com", "--role", users.RoleAdmin); err != nil {
		t.Fatalf("promote: %v\n%s", err, out)
	}
	var got users.User
	db.First(&got, "id = ?", u.ID)
	if got.Role != users.RoleAdmin {
		t.Errorf("Expected role %s, got %s", users.RoleAdmin, got.Role)
	}
	if n := logs.FilterField(zap.String("role", users.RoleAdmin)).Len(); n != 1 {
		t.Errorf("Expected one role update logged, got %d", n)
	}

	if _, err := execute(t, "admin", "promote", "staff@example.com", "--role", "owner"); err == nil {
		t.Error("Expected an unknown role to fail")
	}
	if _, err := execute(t, "admin", "promote", "nobody@example.com"); err == nil {
		t.Error("Expected an unknown email to fail")
	}
	if _, err := execute(t, "admin", "promote"); err == nil {
		t.Error("Expected a missing email argument to fail")
	}
}

func TestWebhookSend(t *testing.T) {
	mock := payments.NewMock("", "whsec_test")
	var got payments.WebhookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ev, err := mock.VerifyAndParseWebhook(r.Header, body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got = ev
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	out, err := execute(t, "webhook", "send",
		"--url", srv.URL, "--secret", "whsec_test",
		"--event-id", "evt_cli_1", "--type", payments.EventRefundProcessed,
		"--refund-ref", "rfnd_9", "--amount", "50000")
	if err != nil {
		t.Fatalf("webhook send: %v\n%s", err, out)
	}
	if got.EventID != "evt_cli_1" || got.Type != payments.EventRefundProcessed || got.RefundRef != "rfnd_9" || got.AmountCents != 50000 {
		t.Errorf("Unexpected delivered event %+v", got)
	}
	if !strings.Contains(out, "Status: 200") {
		t.Errorf("Expected the response status printed, got:\n%s", out)
	}

	if _, err := execute(t, "webhook", "send", "--url", srv.URL, "--secret", "wrong"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("Expected a rejected signature to fail with 400, got %v", err)
	}
}

func TestWebhookSendDryRun(t *testing.T) {
	out, err := execute(t, "webhook", "send", "--url", "http://127.0.0.1:1/unused", "--secret", "s", "--dry-run", "--event-id", "evt_dry")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, payments.SignatureHeader+": t=") || !strings.Contains(out, `"id":"evt_dry"`) {
		t.Errorf("Expected the signed request printed, got:\n%s", out)
	}
	if strings.Contains(out, "Status:") {
		t.Error("Expected nothing sent on a dry run")
	}
}
