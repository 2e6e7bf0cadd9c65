package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/database/dbtest"
	apphttp "geethika.lk/app/internal/http"
	"geethika.lk/app/internal/http/cartcookie"
	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/storage"
)

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	cfg := config.Defaults()
	cfg.Cart.Secret = "router-test-cart-secret-0123456789"
	cfg.Storage.LocalDir = t.TempDir()

	provider, err := payments.NewProvider(cfg.Payments)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	r, err := apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		DB:       db,
		Store:    storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.LocalURLPrefix),
		Provider: provider,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &testServer{t: t, db: db, router: r}
}

// do sends a JSON request; headers are given as name/value pairs.
func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func (s *testServer) product(name string, price, stock int) products.Product {
	s.t.Helper()
	p, err := products.NewRepo(s.db).Create(context.Background(), products.Input{
		Name:       name,
		Slug:       "p-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		PriceCents: price,
		Stock:      stock,
		Status:     products.StatusActive,
	})
	if err != nil {
		s.t.Fatalf("create product: %v", err)
	}
	return p
}

// register signs up a customer and returns the bearer header value.
func (s *testServer) register(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":     email,
		"password":  "correct-horse",
		"full_name": "Kamala Silva",
	})
	if w.Code != http.StatusCreated {
		s.t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(s.t, w, &resp)
	return "Bearer " + resp.Token
}

type errorBody struct {
	Error     string            `json:"error"`
	RequestID string            `json:"request_id"`
	Fields    map[string]string `json:"fields"`
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestAuthRequiredErrorShape(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/auth/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	var body errorBody
	decode(t, w, &body)
	if body.Error == "" {
		t.Errorf("Expected an error message")
	}
	if body.RequestID == "" || body.RequestID != w.Header().Get("X-Request-ID") {
		t.Errorf("Expected request_id to match the header, got %q vs %q", body.RequestID, w.Header().Get("X-Request-ID"))
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	var body errorBody
	decode(t, w, &body)
	for _, f := range []string{"email", "password", "full_name"} {
		if body.Fields[f] == "" {
			t.Errorf("Expected a message for %s, got %v", f, body.Fields)
		}
	}
}

func TestRegisterLoginMe(t *testing.T) {
	s := newServer(t)
	bearer := s.register("kamala@example.com")

	w := s.do(http.MethodGet, "/api/auth/me", nil, "Authorization", bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me struct {
		User users.User `json:"user"`
	}
	decode(t, w, &me)
	if me.User.Email != "kamala@example.com" || me.User.Role != users.RoleCustomer {
		t.Errorf("Unexpected user %+v", me.User)
	}

	dup := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "KAMALA@example.com", "password": "correct-horse", "full_name": "K",
	})
	if dup.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a taken email, got %d", dup.Code)
	}

	bad := s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "kamala@example.com", "password": "wrong-password"})
	if bad.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a wrong password, got %d", bad.Code)
	}

	if w := s.do(http.MethodPost, "/api/auth/logout", nil, "Authorization", bearer); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 from logout, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/auth/me", nil, "Authorization", bearer); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", w.Code)
	}
}

func TestAdminRoutesNeedRole(t *testing.T) {
	s := newServer(t)
	customer := s.register("customer@example.com")
	if w := s.do(http.MethodGet, "/api/admin/customers", nil, "Authorization", customer); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a customer, got %d", w.Code)
	}

	staff := s.register("staff@example.com")
	admins := users.NewAdminService(s.db, users.NewService(s.db))
	if _, err := admins.Promote(context.Background(), "staff@example.com", users.RoleAdmin); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if w := s.do(http.MethodGet, "/api/admin/customers", nil, "Authorization", staff); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for an admin, got %d: %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/api/admin/admins", nil, "Authorization", staff); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a non-super admin, got %d", w.Code)
	}
}

func TestGuestCheckoutAndPayment(t *testing.T) {
	s := newServer(t)
	p := s.product("Photo Frame", 250000, 5)

	add := s.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": p.ID, "quantity": 2})
	if add.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", add.Code, add.Body.String())
	}
	token := add.Header().Get(cartcookie.HeaderToken)
	if token == "" {
		t.Fatal("Expected a cart token header")
	}

	quote := s.do(http.MethodGet, "/api/checkout", nil, cartcookie.HeaderToken, token)
	if quote.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d", quote.Code)
	}
	var q struct {
		Cart struct {
			SubtotalCents int `json:"subtotal_cents"`
		} `json:"cart"`
		ShippingOptions []struct {
			Code string `json:"code"`
		} `json:"shipping_options"`
	}
	decode(t, quote, &q)
	if q.Cart.SubtotalCents != 500000 || len(q.ShippingOptions) != 3 {
		t.Errorf("Unexpected quote %+v", q)
	}

	badCheckout := s.do(http.MethodPost, "/api/checkout", map[string]any{
		"customer_name": "Nimal", "phone": "12345", "shipping_method": "standard", "payment_method": "online",
	}, cartcookie.HeaderToken, token)
	if badCheckout.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad phone, got %d", badCheckout.Code)
	}

	body := map[string]any{
		"email":           "nimal@example.com",
		"customer_name":   "Nimal Perera",
		"phone":           "0771234567",
		"address":         map[string]string{"line1": "12 Temple Road", "city": "Kandy"},
		"shipping_method": "standard",
		"payment_method":  "online",
	}
	created := s.do(http.MethodPost, "/api/checkout", body, cartcookie.HeaderToken, token, "Idempotency-Key", "co-1")
	if created.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var res struct {
		Order struct {
			ID          string `json:"id"`
			OrderNumber string `json:"order_number"`
			TotalCents  int    `json:"total_cents"`
			Status      string `json:"status"`
		} `json:"order"`
		NextStep string `json:"next_step"`
	}
	decode(t, created, &res)
	if res.NextStep != "pay" || res.Order.TotalCents != 535000 || res.Order.Status != "pending" {
		t.Errorf("Unexpected checkout result %+v", res)
	}

	again := s.do(http.MethodPost, "/api/checkout", body, cartcookie.HeaderToken, token, "Idempotency-Key", "co-1")
	if again.Code != http.StatusOK {
		t.Errorf("Expected 200 for a repeated key, got %d: %s", again.Code, again.Body.String())
	}

	track := s.do(http.MethodGet, "/api/orders/track?order="+res.Order.OrderNumber+"&email=NIMAL@example.com", nil)
	if track.Code != http.StatusOK {
		t.Errorf("track: expected 200, got %d", track.Code)
	}
	if w := s.do(http.MethodGet, "/api/orders/track?order="+res.Order.OrderNumber+"&email=other@example.com", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a wrong email, got %d", w.Code)
	}

	init := s.do(http.MethodPost, "/api/orders/"+res.Order.ID+"/payments",
		map[string]string{"email": "nimal@example.com"}, "Idempotency-Key", "pay-1")
	if init.Code != http.StatusCreated {
		t.Fatalf("initiate: expected 201, got %d: %s", init.Code, init.Body.String())
	}
	var session struct {
		GatewayOrderID string `json:"gateway_order_id"`
		AmountCents    int    `json:"amount_cents"`
		Provider       string `json:"provider"`
	}
	decode(t, init, &session)
	if session.AmountCents != 535000 || session.Provider != "mock" {
		t.Errorf("Unexpected session %+v", session)
	}

	verify := s.do(http.MethodPost, "/api/orders/"+res.Order.ID+"/payments/verify", map[string]string{
		"email":              "nimal@example.com",
		"gateway_order_id":   session.GatewayOrderID,
		"gateway_payment_id": "pay_test_1",
		"signature":          payments.PaymentSignature(payments.MockSecret, session.GatewayOrderID, "pay_test_1"),
	})
	if verify.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", verify.Code, verify.Body.String())
	}
	var paid struct {
		Order struct {
			Status        string `json:"status"`
			PaymentStatus string `json:"payment_status"`
		} `json:"order"`
	}
	decode(t, verify, &paid)
	if paid.Order.Status != "confirmed" || paid.Order.PaymentStatus != "paid" {
		t.Errorf("Expected confirmed/paid, got %+v", paid.Order)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/checkout", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
}

func TestWishlistNeedsAccount(t *testing.T) {
	s := newServer(t)
	p := s.product("Wedding Album", 1500000, 3)

	if w := s.do(http.MethodPost, "/api/wishlist", map[string]string{"product_id": p.ID}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a guest, got %d", w.Code)
	}

	bearer := s.register("wish@example.com")
	for i := 0; i < 2; i++ {
		if w := s.do(http.MethodPost, "/api/wishlist", map[string]string{"product_id": p.ID}, "Authorization", bearer); w.Code != http.StatusCreated {
			t.Fatalf("add #%d: expected 201, got %d: %s", i+1, w.Code, w.Body.String())
		}
	}
	w := s.do(http.MethodGet, "/api/wishlist", nil, "Authorization", bearer)
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	decode(t, w, &list)
	if len(list.Items) != 1 {
		t.Errorf("Expected 1 wishlist item, got %d", len(list.Items))
	}

	if w := s.do(http.MethodDelete, "/api/wishlist/"+p.ID, nil, "Authorization", bearer); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newServer(t)
	body := []byte(`{"id":"evt_1","type":"payment.captured","data":{"order_id":"order_x","payment_id":"pay_x","amount_cents":100,"currency":"LKR"}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mock", bytes.NewReader(body))
	req.Header.Set(payments.SignatureHeader, payments.WebhookSignature("wrong", time.Now().Unix(), body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown provider, got %d", w.Code)
	}
}

func (s *testServer) guestCart(p products.Product) string {
	s.t.Helper()
	add := s.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": p.ID, "quantity": 1})
	if add.Code != http.StatusCreated {
		s.t.Fatalf("add: expected 201, got %d: %s", add.Code, add.Body.String())
	}
	return add.Header().Get(cartcookie.HeaderToken)
}

func guestCheckoutBody(addr string) map[string]any {
	return map[string]any{
		"email":           addr,
		"customer_name":   "Nimal Perera",
		"phone":           "0771234567",
		"address":         map[string]string{"line1": "12 Temple Road", "city": "Kandy"},
		"shipping_method": "standard",
		"payment_method":  "online",
	}
}

func TestCheckoutRejectsLongIdempotencyKey(t *testing.T) {
	s := newServer(t)
	token := s.guestCart(s.product("Mug", 120000, 5))
	body := guestCheckoutBody("nimal@example.com")

	long := strings.Repeat("k", 65)
	w := s.do(http.MethodPost, "/api/checkout", body, cartcookie.HeaderToken, token, "Idempotency-Key", long)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a 65 character key, got %d: %s", w.Code, w.Body.String())
	}
	var e errorBody
	decode(t, w, &e)
	if e.Fields["idempotency_key"] == "" {
		t.Errorf("Expected an idempotency_key field error, got %+v", e)
	}

	body["idempotency_key"] = long
	if w := s.do(http.MethodPost, "/api/checkout", body, cartcookie.HeaderToken, token); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a long body key, got %d", w.Code)
	}
	delete(body, "idempotency_key")

	w = s.do(http.MethodPost, "/api/checkout", body, cartcookie.HeaderToken, token, "Idempotency-Key", strings.Repeat("k", 64))
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 for a 64 character key, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGuestOrdersNeedVerifiedEmail(t *testing.T) {
	s := newServer(t)
	token := s.guestCart(s.product("Photo Frame", 250000, 5))
	if w := s.do(http.MethodPost, "/api/checkout", guestCheckoutBody("nimal@example.com"), cartcookie.HeaderToken, token); w.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	bearer := s.register("nimal@example.com")
	var list struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	decode(t, s.do(http.MethodGet, "/api/orders", nil, "Authorization", bearer), &list)
	if len(list.Items) != 0 || list.Pagination.Total != 0 {
		t.Fatalf("Expected no orders before verification, got %d", len(list.Items))
	}

	var job email.EmailJob
	if err := s.db.Where("template = ?", email.TplVerifyEmail).First(&job).Error; err != nil {
		t.Fatalf("load verification job: %v", err)
	}
	var payload struct {
		VerifyURL string
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	link, err := url.Parse(payload.VerifyURL)
	if err != nil {
		t.Fatal(err)
	}

	w := s.do(http.MethodPost, "/api/auth/verify-email/confirm", map[string]string{"token": link.Query().Get("token")})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, s.do(http.MethodGet, "/api/orders", nil, "Authorization", bearer), &list)
	if len(list.Items) != 1 || list.Pagination.Total != 1 {
		t.Errorf("Expected 1 order after verification, got %d", len(list.Items))
	}

	if w := s.do(http.MethodPost, "/api/auth/verify-email", nil, "Authorization", bearer); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 when resending to a verified address, got %d", w.Code)
	}
}
