package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/shared/apperr"
	"geethika.lk/app/internal/shared/money"
)

// CatalogHandler serves the public storefront reads.
type CatalogHandler struct {
	Categories *categories.Service
	Products   products.Repository
	Studio     *studio.Service
}

// GET /api/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	list, err := h.Categories.ListActive(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// GET /api/categories/:slug
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	cat, err := h.Categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

// GET /api/products?category=&q=&featured=&min_price=&max_price=&sort=&page=&page_size=
// Prices are rupees ("1500" or "1500.00").
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	f := products.ListFilter{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Q:            strings.TrimSpace(c.Query("q")),
		Featured:     c.Query("featured") == "true" || c.Query("featured") == "1",
		Sort:         c.Query("sort"),
	}
	f.Page, f.PageSize = Page(c, 24)

	for param, dst := range map[string]*int{"min_price": &f.MinPriceCents, "max_price": &f.MaxPriceCents} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		cents, err := money.ParseCents(v)
		if err != nil {
			Fail(c, apperr.InvalidErr("Invalid price filter.", map[string]string{param: "Enter an amount such as 1500."}))
			return
		}
		*dst = cents
	}

	res, err := h.Products.ListActive(c.Request.Context(), f)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ProductList(res))
}

// GET /api/products/:slug
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.Products.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":  p,
		"price":    money.Format(p.PriceCents),
		"schema":   p.Schema(),
		"in_stock": p.Stock > 0,
	})
}

// GET /api/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	list, err := h.Studio.List(c.Request.Context(), false)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}
