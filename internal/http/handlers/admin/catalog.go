package admin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/handlers"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/shared/apperr"
	"geethika.lk/app/internal/shared/money"
	"geethika.lk/app/internal/storage"
)

type CatalogHandler struct {
	Products   *products.Repo
	Categories *categories.Service
	Studio     *studio.Service
	Store      storage.Storage
	Logger     *slog.Logger
}

type productReq struct {
	CategoryID     string                        `json:"category_id" binding:"omitempty,uuid"`
	Name           string                        `json:"name" binding:"required,max=200"`
	Slug           string                        `json:"slug" binding:"omitempty,slug,max=220"`
	Description    string                        `json:"description" binding:"max=10000"`
	Price          string                        `json:"price" binding:"required"`
	CompareAt      string                        `json:"compare_at"`
	Stock          int                           `json:"stock" binding:"min=0"`
	IsCustomizable bool                          `json:"is_customizable"`
	Customization  *products.CustomizationSchema `json:"customization"`
	IsFeatured     bool                          `json:"is_featured"`
	Status         string                        `json:"status" binding:"required,oneof=draft active archived"`
}

// toInput parses the decimal prices; errors carry the offending field.
func (r productReq) toInput() (products.Input, error) {
	price, err := money.ParseCents(r.Price)
	if err != nil {
		return products.Input{}, apperr.InvalidErr("Enter a price such as 1250.50.", map[string]string{"price": "Enter a price such as 1250.50."})
	}
	var compareAt int
	if strings.TrimSpace(r.CompareAt) != "" {
		if compareAt, err = money.ParseCents(r.CompareAt); err != nil {
			return products.Input{}, apperr.InvalidErr("Enter a price such as 1250.50.", map[string]string{"compare_at": "Enter a price such as 1250.50."})
		}
	}
	return products.Input{
		CategoryID:     r.CategoryID,
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		PriceCents:     price,
		CompareAtCents: compareAt,
		Stock:          r.Stock,
		IsCustomizable: r.IsCustomizable,
		Customization:  r.Customization,
		IsFeatured:     r.IsFeatured,
		Status:         r.Status,
	}, nil
}

// GET /api/admin/products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, size := handlers.Page(c, 30)
	res, err := h.Products.ListAdmin(c.Request.Context(), products.ListAdminParams{
		Q:        c.Query("q"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handlers.ProductList(res))
}

// GET /api/admin/products/:id returns the full record including drafts.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p, "schema": p.Schema()})
}

// POST /api/admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var in productReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	input, err := in.toInput()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	p, err := h.Products.Create(c.Request.Context(), input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// PUT /api/admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var in productReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	input, err := in.toInput()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	p, err := h.Products.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// DELETE /api/admin/products/:id archives products that were ever ordered.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	archived, err := h.Products.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived, "deleted": !archived})
}

type stockReq struct {
	Delta int `json:"delta" binding:"required,ne=0"`
}

// POST /api/admin/products/:id/stock
func (h *CatalogHandler) AdjustStock(c *gin.Context) {
	var in stockReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	stock, err := h.Products.AdjustStock(c.Request.Context(), c.Param("id"), in.Delta)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// POST /api/admin/products/:id/images (multipart "file")
func (h *CatalogHandler) UploadImage(c *gin.Context) {
	if _, err := h.Products.Get(c.Request.Context(), c.Param("id")); err != nil {
		handlers.Fail(c, err)
		return
	}
	res, ok := handlers.FormImage(c, h.Store, storage.FolderProducts)
	if !ok {
		return
	}
	img, err := h.Products.AddImage(c.Request.Context(), c.Param("id"), res.URL, res.Key)
	if err != nil {
		h.removeObject(c, res.Key)
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"image": img})
}

// DELETE /api/admin/products/:id/images/:imageID
func (h *CatalogHandler) RemoveImage(c *gin.Context) {
	img, err := h.Products.RemoveImage(c.Request.Context(), c.Param("id"), c.Param("imageID"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.removeObject(c, img.StorageKey)
	c.Status(http.StatusNoContent)
}

// removeObject is best effort; an orphaned file is only wasted space.
func (h *CatalogHandler) removeObject(c *gin.Context, key string) {
	if key == "" {
		return
	}
	if err := h.Store.Delete(c.Request.Context(), key); err != nil {
		h.Logger.Warn("storage delete failed", "key", key, "err", err)
	}
}

type categoryReq struct {
	Name        string `json:"name" binding:"required,max=120"`
	Slug        string `json:"slug" binding:"omitempty,slug,max=140"`
	Description string `json:"description" binding:"max=5000"`
	ImageURL    string `json:"image_url" binding:"omitempty,max=500"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

func (r categoryReq) toInput() categories.Input {
	return categories.Input{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		SortOrder:   r.SortOrder,
		IsActive:    r.IsActive == nil || *r.IsActive,
	}
}

// GET /api/admin/categories includes inactive ones.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	list, err := h.Categories.ListAll(c.Request.Context())
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// POST /api/admin/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var in categoryReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	cat, err := h.Categories.Create(c.Request.Context(), in.toInput())
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": cat})
}

// PUT /api/admin/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var in categoryReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	cat, err := h.Categories.Update(c.Request.Context(), c.Param("id"), in.toInput())
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

// DELETE /api/admin/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.Categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type serviceReq struct {
	Name          string `json:"name" binding:"required,max=120"`
	Slug          string `json:"slug" binding:"omitempty,slug,max=140"`
	Description   string `json:"description" binding:"max=5000"`
	StartingPrice string `json:"starting_price"`
	ImageURL      string `json:"image_url" binding:"omitempty,max=500"`
	SortOrder     int    `json:"sort_order"`
	IsActive      *bool  `json:"is_active"`
}

func (r serviceReq) toInput() (studio.Input, error) {
	var price int
	if strings.TrimSpace(r.StartingPrice) != "" {
		var err error
		if price, err = money.ParseCents(r.StartingPrice); err != nil {
			return studio.Input{}, apperr.InvalidErr("Enter a price such as 1250.50.", map[string]string{"starting_price": "Enter a price such as 1250.50."})
		}
	}
	return studio.Input{
		Name:               r.Name,
		Slug:               r.Slug,
		Description:        r.Description,
		StartingPriceCents: price,
		ImageURL:           r.ImageURL,
		IsActive:           r.IsActive == nil || *r.IsActive,
		SortOrder:          r.SortOrder,
	}, nil
}

// GET /api/admin/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	list, err := h.Studio.List(c.Request.Context(), true)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// POST /api/admin/services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var in serviceReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	input, err := in.toInput()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	s, err := h.Studio.Create(c.Request.Context(), input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"service": s})
}

// PUT /api/admin/services/:id
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var in serviceReq
	if !handlers.BindJSON(c, &in) {
		return
	}
	input, err := in.toInput()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	s, err := h.Studio.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": s})
}

// DELETE /api/admin/services/:id
func (h *CatalogHandler) DeleteService(c *gin.Context) {
	if err := h.Studio.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
