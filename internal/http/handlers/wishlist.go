package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/modules/wishlist"
	"geethika.lk/app/pkg/view"
)

type WishlistHandler struct {
	Wishlist *wishlist.Service
}

func (h *WishlistHandler) list(c *gin.Context, status int) {
	list, err := h.Wishlist.List(c.Request.Context(), MustUser(c).ID)
	if err != nil {
		Fail(c, err)
		return
	}
	items := make([]view.ProductCard, 0, len(list))
	for _, p := range list {
		items = append(items, ProductCard(p))
	}
	c.JSON(status, gin.H{"items": items})
}

// GET /api/wishlist
func (h *WishlistHandler) List(c *gin.Context) { h.list(c, http.StatusOK) }

type wishlistAddReq struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
}

// POST /api/wishlist
func (h *WishlistHandler) Add(c *gin.Context) {
	var in wishlistAddReq
	if !BindJSON(c, &in) {
		return
	}
	if err := h.Wishlist.Add(c.Request.Context(), MustUser(c).ID, in.ProductID); err != nil {
		Fail(c, err)
		return
	}
	h.list(c, http.StatusCreated)
}

// DELETE /api/wishlist/:productID
func (h *WishlistHandler) Remove(c *gin.Context) {
	if err := h.Wishlist.Remove(c.Request.Context(), MustUser(c).ID, c.Param("productID")); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type wishlistMergeReq struct {
	ProductIDs []string `json:"product_ids" binding:"max=200"`
}

// POST /api/wishlist/merge
func (h *WishlistHandler) Merge(c *gin.Context) {
	var in wishlistMergeReq
	if !BindJSON(c, &in) {
		return
	}
	added, err := h.Wishlist.Merge(c.Request.Context(), MustUser(c).ID, in.ProductIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	list, err := h.Wishlist.List(c.Request.Context(), MustUser(c).ID)
	if err != nil {
		Fail(c, err)
		return
	}
	items := make([]view.ProductCard, 0, len(list))
	for _, p := range list {
		items = append(items, ProductCard(p))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "accepted": added})
}
