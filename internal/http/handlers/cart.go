package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/cartcookie"
	"geethika.lk/app/internal/http/middleware"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/pkg/view"
)

// CartHandler serves both carts: signed-in users get their account cart,
// guests a cart referenced by the signed cart cookie or X-Cart-Token.
type CartHandler struct {
	Carts *cart.Service
	CK    *cartcookie.Codec
}

// currentCart returns the caller's open cart id. With create=false a guest
// without a usable cart gets "".
func (h *CartHandler) currentCart(c *gin.Context, create bool) (string, error) {
	ctx := c.Request.Context()
	if u, ok := middleware.CurrentUser(c); ok {
		ct, err := h.Carts.Repo().GetOrCreateUserCart(ctx, u.ID)
		return ct.ID, err
	}

	if id, ok := h.CK.GetCartID(c); ok {
		ct, err := h.Carts.Repo().GetOpenGuestCart(ctx, id)
		if err == nil {
			return ct.ID, nil
		}
		if !errors.Is(err, cart.ErrCartNotFound) {
			return "", err
		}
		// converted or merged carts are never reused
		h.CK.Clear(c)
	}
	if !create {
		return "", nil
	}
	ct, err := h.Carts.Repo().CreateGuestCart(ctx)
	if err != nil {
		return "", err
	}
	h.CK.Set(c, ct.ID)
	return ct.ID, nil
}

func (h *CartHandler) render(c *gin.Context, status int, cartID string) {
	if cartID == "" {
		c.JSON(status, gin.H{"cart": view.Cart{Lines: []view.CartLine{}, Currency: "LKR", Subtotal: view.MoneyFromCents(0, "LKR")}})
		return
	}
	vm, err := h.Carts.View(c.Request.Context(), cartID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(status, gin.H{"cart": vm})
}

// GET /api/cart
func (h *CartHandler) Get(c *gin.Context) {
	id, err := h.currentCart(c, false)
	if err != nil {
		Fail(c, err)
		return
	}
	h.render(c, http.StatusOK, id)
}

type customizationReq struct {
	Fields   map[string]string `json:"fields"`
	ImageURL string            `json:"image_url" binding:"omitempty,max=500"`
	Size     string            `json:"size" binding:"max=32"`
}

func (r customizationReq) toDomain() products.Customization {
	return products.Customization{Fields: r.Fields, ImageURL: r.ImageURL, Size: r.Size}
}

type addItemReq struct {
	ProductID     string           `json:"product_id" binding:"required,uuid"`
	Quantity      int              `json:"quantity" binding:"required,min=1,max=99"`
	Customization customizationReq `json:"customization"`
}

// POST /api/cart/items
func (h *CartHandler) Add(c *gin.Context) {
	var in addItemReq
	if !BindJSON(c, &in) {
		return
	}
	id, err := h.currentCart(c, true)
	if err != nil {
		Fail(c, err)
		return
	}
	if _, err := h.Carts.AddItem(c.Request.Context(), id, cart.AddInput{
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		Customization: in.Customization.toDomain(),
	}); err != nil {
		Fail(c, err)
		return
	}
	h.render(c, http.StatusCreated, id)
}

type updateItemReq struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=99"`
}

// PATCH /api/cart/items/:id; quantity 0 removes the line.
func (h *CartHandler) Update(c *gin.Context) {
	var in updateItemReq
	if !BindJSON(c, &in) {
		return
	}
	id, err := h.currentCart(c, false)
	if err != nil {
		Fail(c, err)
		return
	}
	if id == "" {
		Fail(c, cart.ErrLineNotFound)
		return
	}
	if err := h.Carts.UpdateItem(c.Request.Context(), id, c.Param("id"), *in.Quantity); err != nil {
		Fail(c, err)
		return
	}
	h.render(c, http.StatusOK, id)
}

// DELETE /api/cart/items/:id
func (h *CartHandler) Remove(c *gin.Context) {
	id, err := h.currentCart(c, false)
	if err != nil {
		Fail(c, err)
		return
	}
	if id == "" {
		Fail(c, cart.ErrLineNotFound)
		return
	}
	if err := h.Carts.RemoveItem(c.Request.Context(), id, c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	h.render(c, http.StatusOK, id)
}

// DELETE /api/cart
func (h *CartHandler) Clear(c *gin.Context) {
	id, err := h.currentCart(c, false)
	if err != nil {
		Fail(c, err)
		return
	}
	if id != "" {
		if err := h.Carts.Clear(c.Request.Context(), id); err != nil {
			Fail(c, err)
			return
		}
	}
	h.render(c, http.StatusOK, id)
}

// mergeLine is unvalidated: bad lines are skipped and reported, not rejected.
type mergeLine struct {
	ProductID     string           `json:"product_id"`
	Quantity      int              `json:"quantity"`
	Customization customizationReq `json:"customization"`
}

type mergeReq struct {
	Items []mergeLine `json:"items" binding:"max=100"`
}

// POST /api/cart/merge folds a browser-held cart into the account cart.
func (h *CartHandler) Merge(c *gin.Context) {
	var in mergeReq
	if !BindJSON(c, &in) {
		return
	}
	lines := make([]cart.AddInput, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, cart.AddInput{ProductID: it.ProductID, Quantity: it.Quantity, Customization: it.Customization.toDomain()})
	}
	res, err := h.Carts.MergeItems(c.Request.Context(), MustUser(c).ID, lines)
	if err != nil {
		Fail(c, err)
		return
	}
	vm, err := h.Carts.View(c.Request.Context(), res.CartID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merge": res, "cart": vm})
}
