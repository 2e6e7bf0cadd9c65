package orders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/shipping"
)

const adminID = "7d9a2c1e-3b4f-4e5a-8c6d-9e0f1a2b3c4d"

type stubGate struct{ approved bool }

func (g stubGate) AllApproved(context.Context, *gorm.DB, string) (bool, error) {
	return g.approved, nil
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func transition(t *testing.T, svc *orders.AdminService, orderID, action string) orders.Order {
	t.Helper()
	o, err := svc.Transition(context.Background(), orders.TransitionInput{
		OrderID:     orderID,
		ActorUserID: adminID,
		Action:      action,
	})
	if err != nil {
		t.Fatalf("%s: %v", action, err)
	}
	return o
}

func TestAdminCODLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	res, _ := placeOrder(t, db, orders.MethodCOD)
	svc := orders.NewAdminService(db, nil, stubGate{approved: true})
	id := res.Order.ID

	if o := transition(t, svc, id, orders.ActionConfirm); o.Status != orders.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", o.Status)
	}
	if _, err := svc.Transition(ctx, orders.TransitionInput{OrderID: id, ActorUserID: adminID, Action: orders.ActionDeliver}); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("Expected deliver from confirmed to be rejected, got %v", err)
	}
	transition(t, svc, id, orders.ActionProcess)

	o, err := svc.Transition(ctx, orders.TransitionInput{
		OrderID:        id,
		ActorUserID:    adminID,
		Action:         orders.ActionShip,
		Courier:        "Pronto",
		TrackingNumber: "PR123456",
	})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if o.Status != orders.StatusShipped {
		t.Errorf("Expected shipped, got %s", o.Status)
	}
	ships, err := shipping.NewRepo(db).ListByOrder(ctx, id)
	if err != nil {
		t.Fatalf("list shipments: %v", err)
	}
	if len(ships) != 1 || ships[0].TrackingNumber != "PR123456" || ships[0].Courier != "Pronto" {
		t.Errorf("Unexpected shipments %+v", ships)
	}

	o = transition(t, svc, id, orders.ActionDeliver)
	if o.Status != orders.StatusDelivered || o.PaymentStatus != orders.PaymentPaid {
		t.Errorf("Expected delivered/paid, got %s/%s", o.Status, o.PaymentStatus)
	}

	d, err := svc.Repo().AdminGetDetail(ctx, id)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(d.Financial) != 1 || d.Financial[0].Event != "cod_collected" || d.Financial[0].AmountCents != res.Order.TotalCents {
		t.Errorf("Expected cod_collected ledger entry, got %+v", d.Financial)
	}
	// created + confirm + process + ship + deliver
	if len(d.Events) != 5 {
		t.Errorf("Expected 5 events, got %d", len(d.Events))
	}

	if _, err := svc.Transition(ctx, orders.TransitionInput{OrderID: id, ActorUserID: adminID, Action: orders.ActionCancel}); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("Expected delivered order to be final, got %v", err)
	}
}

func TestAdminConfirmRejectsOnlineOrders(t *testing.T) {
	db := dbtest.Open(t)
	res, _ := placeOrder(t, db, orders.MethodOnline)
	svc := orders.NewAdminService(db, nil, nil)

	_, err := svc.Transition(context.Background(), orders.TransitionInput{OrderID: res.Order.ID, ActorUserID: adminID, Action: orders.ActionConfirm})
	if !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	_, err = svc.Transition(context.Background(), orders.TransitionInput{OrderID: res.Order.ID, ActorUserID: adminID, Action: "teleport"})
	if !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("Expected unknown action rejected, got %v", err)
	}
	_, err = svc.Transition(context.Background(), orders.TransitionInput{OrderID: "missing", ActorUserID: adminID, Action: orders.ActionCancel})
	if !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAdminProcessWaitsForDesignApproval(t *testing.T) {
	db := dbtest.Open(t)
	res, _ := placeOrder(t, db, orders.MethodCOD)

	blocked := orders.NewAdminService(db, nil, stubGate{approved: false})
	transition(t, blocked, res.Order.ID, orders.ActionConfirm)
	_, err := blocked.Transition(context.Background(), orders.TransitionInput{OrderID: res.Order.ID, ActorUserID: adminID, Action: orders.ActionProcess})
	if !errors.Is(err, orders.ErrDesignApprovalPending) {
		t.Fatalf("Expected ErrDesignApprovalPending, got %v", err)
	}

	open := orders.NewAdminService(db, nil, stubGate{approved: true})
	if o := transition(t, open, res.Order.ID, orders.ActionProcess); o.Status != orders.StatusProcessing {
		t.Errorf("Expected processing, got %s", o.Status)
	}
}

func TestAdminCancelRestoresStock(t *testing.T) {
	db := dbtest.Open(t)
	res, p := placeOrder(t, db, orders.MethodCOD)
	svc := orders.NewAdminService(db, nil, nil)

	if got := stockOf(t, db, p.ID); got != 8 {
		t.Fatalf("Expected stock 8 after order, got %d", got)
	}
	transition(t, svc, res.Order.ID, orders.ActionConfirm)
	o := transition(t, svc, res.Order.ID, orders.ActionCancel)
	if o.Status != orders.StatusCancelled || o.CancelledAt == nil {
		t.Errorf("Expected cancelled with timestamp, got %s / %v", o.Status, o.CancelledAt)
	}
	if got := stockOf(t, db, p.ID); got != 10 {
		t.Errorf("Expected stock restored to 10, got %d", got)
	}
	if _, err := svc.Transition(context.Background(), orders.TransitionInput{OrderID: o.ID, ActorUserID: adminID, Action: orders.ActionCancel}); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("Expected second cancel rejected, got %v", err)
	}
	if got := stockOf(t, db, p.ID); got != 10 {
		t.Errorf("Expected stock restored only once, got %d", got)
	}
}

func TestAdminListAndDashboard(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	cod, _ := placeOrder(t, db, orders.MethodCOD)
	placeOrder(t, db, orders.MethodOnline)
	svc := orders.NewAdminService(db, nil, nil)

	all, err := svc.Repo().AdminList(ctx, orders.AdminListParams{})
	if err != nil {
		t.Fatalf("AdminList: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("Expected 2 orders, got %d", all.Total)
	}
	byNumber, err := svc.Repo().AdminList(ctx, orders.AdminListParams{Q: cod.Order.OrderNumber})
	if err != nil {
		t.Fatalf("AdminList search: %v", err)
	}
	if byNumber.Total != 1 || byNumber.Items[0].ID != cod.Order.ID {
		t.Errorf("Expected search to find the COD order, got %+v", byNumber.Items)
	}

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.StatusCounts[orders.StatusPending] != 2 {
		t.Errorf("Expected 2 pending, got %d", d.StatusCounts[orders.StatusPending])
	}
	if d.AwaitingPayment != 1 {
		t.Errorf("Expected 1 online order awaiting payment, got %d", d.AwaitingPayment)
	}
	if d.TodayOrders != 2 {
		t.Errorf("Expected 2 orders today, got %d", d.TodayOrders)
	}
}

func TestDashboardRevenueSplitsRefunds(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	online, _ := placeOrder(t, db, orders.MethodOnline)
	cod, _ := placeOrder(t, db, orders.MethodCOD)
	now := time.Now().UTC()

	for _, e := range []orders.FinancialEntry{
		{OrderID: online.Order.ID, Event: orders.LedgerPaymentSucceeded, AmountCents: 535000, RefType: "payment", RefID: "p1"},
		{OrderID: cod.Order.ID, Event: orders.LedgerCODCollected, AmountCents: 535000, RefType: "order", RefID: cod.Order.ID},
		{OrderID: online.Order.ID, Event: orders.LedgerRefundSucceeded, AmountCents: -100000, RefType: "refund", RefID: "r1"},
		{OrderID: online.Order.ID, Event: orders.LedgerRefundFailed, AmountCents: 0, RefType: "refund", RefID: "r2"},
	} {
		e.Currency = "LKR"
		e.CreatedAt = now
		if err := orders.EnsureFinancialEntry(ctx, db, e); err != nil {
			t.Fatalf("EnsureFinancialEntry: %v", err)
		}
	}

	d, err := orders.NewAdminService(db, nil, nil).Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.RevenueCents != 1070000 {
		t.Errorf("Expected gross revenue 1070000, got %d", d.RevenueCents)
	}
	if d.RefundedCents != 100000 {
		t.Errorf("Expected refunded 100000, got %d", d.RefundedCents)
	}
	if d.NetRevenueCents != 970000 {
		t.Errorf("Expected net revenue 970000, got %d", d.NetRevenueCents)
	}
}
