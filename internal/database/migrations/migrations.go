package migrations

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/designapprovals"
	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/shipping"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/modules/wishlist"
)

// Group is a set of tables migrated together, in dependency order.
type Group struct {
	Name   string
	Models []any
}

func Groups() []Group {
	return []Group{
		{Name: "users", Models: []any{&users.User{}, &users.Session{}, &users.PasswordReset{}, &users.EmailVerification{}}},
		{Name: "catalog", Models: []any{&categories.Category{}, &products.Product{}, &products.ProductImage{}, &studio.StudioService{}}},
		{Name: "carts", Models: []any{&cart.Cart{}, &cart.CartItem{}, &wishlist.Item{}}},
		{Name: "orders", Models: []any{&orders.Order{}, &orders.OrderItem{}, &orders.OrderEvent{}, &orders.FinancialEntry{}, &shipping.Shipment{}}},
		{Name: "payments", Models: []any{&payments.Payment{}, &payments.Refund{}, &payments.ProviderEvent{}}},
		{Name: "design approvals", Models: []any{&designapprovals.DesignApproval{}}},
		{Name: "email", Models: []any{&email.EmailJob{}}},
	}
}

// Models lists every model across all groups.
func Models() []any {
	var out []any
	for _, g := range Groups() {
		out = append(out, g.Models...)
	}
	return out
}

func Run(db *gorm.DB, log *zap.Logger) error {
	log.Info("running migrations")
	for _, g := range Groups() {
		log.Info(" -> migrating", zap.String("group", g.Name))
		if err := db.AutoMigrate(g.Models...); err != nil {
			log.Error("migration failed", zap.String("group", g.Name), zap.Error(err))
			return err
		}
	}
	if db.Dialector.Name() == "postgres" {
		if err := runPostgres(db, log); err != nil {
			return err
		}
	}
	log.Info("migrations completed")
	return nil
}

// postgresStatements are idempotent constraints AutoMigrate cannot express.
var postgresStatements = []struct {
	name string
	sql  string
}{
	{"one open cart per user", `CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_user_open ON carts (user_id) WHERE status = 'open' AND user_id IS NOT NULL`},
	{"products stock non-negative", `DO $$ BEGIN
  ALTER TABLE products ADD CONSTRAINT ck_products_stock CHECK (stock >= 0);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`},
	{"products price non-negative", `DO $$ BEGIN
  ALTER TABLE products ADD CONSTRAINT ck_products_price CHECK (price_cents >= 0);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`},
	{"cart item quantity range", `DO $$ BEGIN
  ALTER TABLE cart_items ADD CONSTRAINT ck_cart_items_quantity CHECK (quantity BETWEEN 1 AND 99);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`},
	{"order status values", `DO $$ BEGIN
  ALTER TABLE orders ADD CONSTRAINT ck_orders_status CHECK (status IN ('pending','confirmed','processing','shipped','delivered','cancelled'));
EXCEPTION WHEN duplicate_object THEN NULL; END $$`},
	{"order refund bound", `DO $$ BEGIN
  ALTER TABLE orders ADD CONSTRAINT ck_orders_refunded CHECK (refunded_cents BETWEEN 0 AND total_cents);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`},
	{"payment idempotency", `CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_order_idem ON payments (order_id, idempotency_key)`},
	{"refund idempotency", `CREATE UNIQUE INDEX IF NOT EXISTS ux_refunds_payment_idem ON refunds (payment_id, idempotency_key)`},
}

func runPostgres(db *gorm.DB, log *zap.Logger) error {
	for _, st := range postgresStatements {
		log.Info(" -> applying", zap.String("statement", st.name))
		if err := db.Exec(st.sql).Error; err != nil {
			log.Error("post-migration statement failed", zap.String("statement", st.name), zap.Error(err))
			return err
		}
	}
	return nil
}
