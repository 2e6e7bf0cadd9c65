package orders

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geethika.lk/app/internal/database"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/shared/money"
	"geethika.lk/app/internal/shared/textutil"
)

const txAttempts = 3

type Service struct {
	db       *gorm.DB
	repo     *Repo
	notifier *Notifier
	rates    checkout.ShippingRates
}

func NewService(db *gorm.DB, notifier *Notifier, rates checkout.ShippingRates) *Service {
	return &Service{db: db, repo: NewRepo(db), notifier: notifier, rates: rates}
}

func (s *Service) Repo() *Repo { return s.repo }

// Actor identifies who caused an order change; UserID is nil for guests and
// background jobs.
type Actor struct {
	UserID *string
	Role   string
}

func SystemActor() Actor { return Actor{Role: ActorSystem} }

type CreateInput struct {
	CartID         string
	UserID         *string
	Email          string
	CustomerName   string
	Phone          string
	Address        Address
	ShippingMethod string
	PaymentMethod  string
	Notes          string
	IdempotencyKey string
}

type CreateResult struct {
	Order      Order
	Items      []OrderItem
	Idempotent bool
}

func (s *Service) CreateFromCart(ctx context.Context, in CreateInput) (CreateResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	// A retry may arrive after the cart was converted, so only a keyless
	// request needs a cart up front.
	if in.CartID == "" && in.IdempotencyKey == "" {
		return CreateResult{}, ErrCartNotFound
	}
	if in.Email == "" || in.CustomerName == "" || in.Phone == "" {
		return CreateResult{}, ErrContactRequired
	}
	if in.PaymentMethod != MethodOnline && in.PaymentMethod != MethodCOD {
		return CreateResult{}, ErrInvalidPaymentMethod
	}
	if in.ShippingMethod != checkout.ShippingPickup &&
		(strings.TrimSpace(in.Address.Line1) == "" || strings.TrimSpace(in.Address.City) == "") {
		return CreateResult{}, ErrAddressRequired
	}

	var res CreateResult
	err := database.WithTxRetry(ctx, s.db, txAttempts, func(tx *gorm.DB) error {
		res = CreateResult{}

		if in.IdempotencyKey != "" {
			existing, found, err := s.findByIdempotencyKey(ctx, tx, in)
			if err != nil {
				return err
			}
			if found {
				res = existing
				return nil
			}
		}
		if in.CartID == "" {
			return ErrCartNotFound
		}

		var c cart.Cart
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&c, "id = ? AND status = ?", in.CartID, cart.StatusOpen).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if c.UserID != nil && (in.UserID == nil || *c.UserID != *in.UserID) {
			return ErrCartNotFound
		}

		var lines []cart.CartItem
		if err := tx.WithContext(ctx).Order("created_at ASC").Find(&lines, "cart_id = ?", c.ID).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrCartEmpty
		}

		prods, err := lockProducts(ctx, tx, lines)
		if err != nil {
			return err
		}
		images, err := primaryImages(ctx, tx, prods)
		if err != nil {
			return err
		}

		stock := make([]checkout.StockLine, 0, len(lines))
		subtotal := 0
		for _, ln := range lines {
			p, ok := prods[ln.ProductID]
			if !ok || p.Status != products.StatusActive {
				name := ln.ProductID
				if ok {
					name = p.Name
				}
				return fmt.Errorf("%w: %s", ErrProductUnavailable, name)
			}
			if err := products.ValidateCustomization(p, ln.DecodeCustomization()); err != nil {
				return err
			}
			stock = append(stock, checkout.StockLine{ProductID: p.ID, Qty: ln.Quantity})
			subtotal += p.PriceCents * ln.Quantity
		}

		if err := checkout.DeductStockInTx(ctx, tx, stock); err != nil {
			return err
		}

		shippingCents, err := s.rates.Quote(in.ShippingMethod, subtotal)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		o := Order{
			ID:             uuid.NewString(),
			OrderNumber:    NewOrderNumber(now),
			UserID:         in.UserID,
			Email:          in.Email,
			CustomerName:   in.CustomerName,
			Phone:          in.Phone,
			Status:         StatusPending,
			PaymentStatus:  PaymentUnpaid,
			PaymentMethod:  in.PaymentMethod,
			ShippingMethod: in.ShippingMethod,
			Notes:          optional(in.Notes, MaxNoteRunes),
			Currency:       money.Currency,
			SubtotalCents:  subtotal,
			ShippingCents:  shippingCents,
			TotalCents:     subtotal + shippingCents,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if in.IdempotencyKey != "" {
			k := in.IdempotencyKey
			o.IdempotencyKey = &k
		}
		if in.ShippingMethod != checkout.ShippingPickup {
			b, err := json.Marshal(in.Address)
			if err != nil {
				return err
			}
			o.ShippingAddress = datatypes.JSON(b)
		}
		if err := tx.WithContext(ctx).Create(&o).Error; err != nil {
			return err
		}

		items := make([]OrderItem, 0, len(lines))
		for _, ln := range lines {
			p := prods[ln.ProductID]
			cz := ln.DecodeCustomization()
			items = append(items, OrderItem{
				ID:               uuid.NewString(),
				OrderID:          o.ID,
				ProductID:        p.ID,
				ProductName:      p.Name,
				ProductSlug:      p.Slug,
				ImageURL:         images[p.ID],
				UnitPriceCents:   p.PriceCents,
				Quantity:         ln.Quantity,
				LineTotalCents:   p.PriceCents * ln.Quantity,
				Customization:    ln.Customization,
				RequiresApproval: p.IsCustomizable && !cz.IsZero(),
				CreatedAt:        now,
			})
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Model(&cart.Cart{}).
			Where("id = ? AND status = ?", c.ID, cart.StatusOpen).
			Updates(map[string]any{"status": cart.StatusConverted, "updated_at": now}).Error; err != nil {
			return err
		}

		actor := Actor{UserID: in.UserID, Role: ActorCustomer}
		if err := RecordEvent(ctx, tx, o.ID, actor, "created", "", StatusPending, "", now); err != nil {
			return err
		}
		if err := s.notifier.OrderReceived(ctx, tx, o, items); err != nil {
			return err
		}

		res = CreateResult{Order: o, Items: items}
		return nil
	})
	if err != nil && in.IdempotencyKey != "" && database.IsDuplicate(err) {
		// lost a race against a concurrent request with the same key
		existing, found, ferr := s.findByIdempotencyKey(ctx, s.db, in)
		if ferr == nil && found {
			return existing, nil
		}
	}
	if err != nil {
		return CreateResult{}, err
	}
	return res, nil
}

func (s *Service) findByIdempotencyKey(ctx context.Context, db *gorm.DB, in CreateInput) (CreateResult, bool, error) {
	var o Order
	err := db.WithContext(ctx).First(&o, "idempotency_key = ?", in.IdempotencyKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CreateResult{}, false, nil
	}
	if err != nil {
		return CreateResult{}, false, err
	}
	if !sameOwner(o, in) {
		return CreateResult{}, false, ErrIdempotencyConflict
	}
	var items []OrderItem
	if err := db.WithContext(ctx).Order("created_at ASC").Find(&items, "order_id = ?", o.ID).Error; err != nil {
		return CreateResult{}, false, err
	}
	return CreateResult{Order: o, Items: items, Idempotent: true}, true, nil
}

func sameOwner(o Order, in CreateInput) bool {
	if o.UserID != nil || in.UserID != nil {
		return o.UserID != nil && in.UserID != nil && *o.UserID == *in.UserID
	}
	return o.Email == in.Email
}

func lockProducts(ctx context.Context, tx *gorm.DB, lines []cart.CartItem) (map[string]products.Product, error) {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		if _, ok := seen[ln.ProductID]; ok {
			continue
		}
		seen[ln.ProductID] = struct{}{}
		ids = append(ids, ln.ProductID)
	}
	sort.Strings(ids)

	var rows []products.Product
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]products.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func primaryImages(ctx context.Context, tx *gorm.DB, prods map[string]products.Product) (map[string]string, error) {
	ids := make([]string, 0, len(prods))
	for id := range prods {
		ids = append(ids, id)
	}
	var imgs []products.ProductImage
	if err := tx.WithContext(ctx).
		Where("product_id IN ?", ids).
		Order("position ASC").
		Find(&imgs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for _, im := range imgs {
		if _, ok := out[im.ProductID]; !ok {
			out[im.ProductID] = im.URL
		}
	}
	return out, nil
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber returns GDW-YYMMDD-XXXXXX with a random suffix drawn from an
// alphabet without look-alike characters.
func NewOrderNumber(at time.Time) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = orderNumberAlphabet[int(b[i])%len(orderNumberAlphabet)]
	}
	return "GDW-" + at.UTC().Format("060102") + "-" + string(b)
}

// RecordEvent appends an audit row to the order timeline.
func RecordEvent(ctx context.Context, tx *gorm.DB, orderID string, actor Actor, action, from, to, note string, at time.Time) error {
	role := actor.Role
	if role == "" {
		role = ActorSystem
	}
	return tx.WithContext(ctx).Create(&OrderEvent{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		ActorUserID: actor.UserID,
		ActorRole:   role,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		Note:        optional(note, MaxEventNoteRunes),
		CreatedAt:   at,
	}).Error
}

// EnsureFinancialEntry writes e unless an entry for the same reference and
// event already exists.
func EnsureFinancialEntry(ctx context.Context, tx *gorm.DB, e FinancialEntry) error {
	var cnt int64
	if err := tx.WithContext(ctx).
		Model(&FinancialEntry{}).
		Where("ref_type = ? AND ref_id = ? AND event = ?", e.RefType, e.RefID, e.Event).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return tx.WithContext(ctx).Create(&e).Error
}

// Character limits of the free-text columns.
const (
	MaxNoteRunes      = 1000
	MaxEventNoteRunes = 500
)

func optional(s string, limit int) *string {
	s = textutil.Truncate(strings.TrimSpace(s), limit)
	if s == "" {
		return nil
	}
	return &s
}
