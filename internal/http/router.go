package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/http/cartcookie"
	"geethika.lk/app/internal/http/handlers"
	"geethika.lk/app/internal/http/handlers/admin"
	"geethika.lk/app/internal/http/middleware"
	"geethika.lk/app/internal/http/validation"
	"geethika.lk/app/internal/metrics"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/checkout"
	"geethika.lk/app/internal/modules/designapprovals"
	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/modules/wishlist"
	"geethika.lk/app/internal/storage"
)

// Deps are the process-wide collaborators the API is built from.
type Deps struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Store    storage.Storage
	Provider payments.Provider
	Sessions *users.SessionStore
	Metrics  *metrics.Recorder
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if err := validation.Register(); err != nil {
		return nil, err
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewRecorder()
	}
	if d.Sessions == nil {
		d.Sessions = users.NewSessionStore(d.DB, d.Config.Session.TTL)
	}
	cfg := d.Config

	outbox := email.NewOutbox(d.DB)
	notifier := orders.NewNotifier(outbox, cfg.HTTP.BaseURL)
	rates := checkout.ShippingRates{
		StandardCents:      cfg.Orders.StandardShippingCents,
		ExpressCents:       cfg.Orders.ExpressShippingCents,
		FreeThresholdCents: cfg.Orders.FreeShippingThresholdCents,
	}

	userSvc := users.NewService(d.DB)
	cartSvc := cart.NewService(d.DB).AcceptImageURLs(func(u string) bool {
		return storage.OwnsURL(d.Store, storage.FolderCustomizations, u)
	})
	orderSvc := orders.NewService(d.DB, notifier, rates)
	approvals := designapprovals.NewService(d.DB, d.Store, notifier)
	orderAdmin := orders.NewAdminService(d.DB, notifier, approvals)
	paySvc := payments.NewService(d.DB, d.Provider, notifier)
	categorySvc := categories.NewService(d.DB)
	studioSvc := studio.NewService(d.DB)

	sessCfg := middleware.SessionCfg{
		Sessions:   d.Sessions,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		TTL:        cfg.Session.TTL,
	}
	ck := cartcookie.New([]byte(cfg.Cart.Secret), cfg.Cart.CookieName, cfg.Session.Secure)

	authH := &handlers.AuthHandler{
		Users:    userSvc,
		Sessions: d.Sessions,
		Resets:   users.NewPasswordResetService(d.DB, outbox, d.Sessions, cfg.HTTP.BaseURL),
		Verify:   users.NewVerifyService(d.DB, outbox, cfg.HTTP.BaseURL),
		Carts:    cartSvc,
		CK:       ck,
		SessCfg:  sessCfg,
		Logger:   d.Logger,
	}
	catalogH := &handlers.CatalogHandler{Categories: categorySvc, Products: products.NewGormRepo(d.DB), Studio: studioSvc}
	cartH := &handlers.CartHandler{Carts: cartSvc, CK: ck}
	checkoutH := &handlers.CheckoutHandler{Cart: cartH, Orders: orderSvc, Rates: rates, Notifier: notifier}
	wishH := &handlers.WishlistHandler{Wishlist: wishlist.NewService(d.DB)}
	uploadH := &handlers.UploadHandler{Store: d.Store}
	orderH := &handlers.OrderHandler{Orders: orderSvc, Approvals: approvals}
	payH := &handlers.PaymentHandler{Payments: paySvc}
	webhookH := handlers.NewWebhookHandler(d.Logger, d.Provider, payments.NewWebhookService(d.DB, notifier, d.Logger))

	adminCatalog := &admin.CatalogHandler{
		Products:   products.NewRepo(d.DB),
		Categories: categorySvc,
		Studio:     studioSvc,
		Store:      d.Store,
		Logger:     d.Logger,
	}
	adminOrders := &admin.OrdersHandler{
		Orders:    orderAdmin,
		Payments:  paySvc,
		Refunds:   payments.NewRefundService(d.DB, d.Provider),
		Approvals: approvals,
	}
	adminUsers := &admin.UsersHandler{Users: users.NewAdminService(d.DB, userSvc)}
	dashboard := &admin.DashboardHandler{Orders: orderAdmin, Recorder: d.Metrics}

	r := gin.New()
	r.MaxMultipartMemory = storage.MaxUploadBytes
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		// ErrorHandler wraps Recovery so a recovered panic is still rendered.
		middleware.ErrorHandler(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.CORS(cfg.HTTP.CORSOrigins),
		metrics.Middleware(d.Metrics),
	)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		r.Static(cfg.Storage.LocalURLPrefix, cfg.Storage.LocalDir)
	}

	r.POST("/webhooks/:provider", webhookH.Handle)

	api := r.Group("/api", middleware.Session(sessCfg))
	{
		api.GET("/categories", catalogH.ListCategories)
		api.GET("/categories/:slug", catalogH.GetCategory)
		api.GET("/products", catalogH.ListProducts)
		api.GET("/products/:slug", catalogH.GetProduct)
		api.GET("/services", catalogH.ListServices)

		api.POST("/auth/register", authH.Register)
		api.POST("/auth/login", authH.Login)
		api.POST("/auth/logout", authH.Logout)
		api.POST("/auth/password-reset", authH.ResetStart)
		api.POST("/auth/password-reset/confirm", authH.ResetConfirm)
		api.POST("/auth/verify-email/confirm", authH.VerifyConfirm)

		api.GET("/cart", cartH.Get)
		api.DELETE("/cart", cartH.Clear)
		api.POST("/cart/items", cartH.Add)
		api.PATCH("/cart/items/:id", cartH.Update)
		api.DELETE("/cart/items/:id", cartH.Remove)

		api.POST("/uploads/customization", uploadH.Customization)

		api.GET("/checkout", checkoutH.Quote)
		api.POST("/checkout", checkoutH.Create)

		api.GET("/orders/track", orderH.Track)
		api.POST("/orders/:id/payments", payH.Initiate)
		api.POST("/orders/:id/payments/verify", payH.Verify)
		api.POST("/orders/:id/payments/fail", payH.ReportFailure)
	}

	auth := api.Group("", middleware.RequireAuth())
	{
		auth.GET("/auth/me", authH.Me)
		auth.POST("/auth/verify-email", authH.VerifyResend)
		auth.PUT("/account/profile", authH.UpdateProfile)
		auth.POST("/account/password", authH.ChangePassword)

		auth.POST("/cart/merge", cartH.Merge)

		auth.GET("/wishlist", wishH.List)
		auth.POST("/wishlist", wishH.Add)
		auth.DELETE("/wishlist/:productID", wishH.Remove)
		auth.POST("/wishlist/merge", wishH.Merge)

		auth.GET("/orders", orderH.Mine)
		auth.GET("/orders/:id", orderH.Detail)
		auth.POST("/orders/:id/cancel", orderH.Cancel)
		auth.GET("/orders/:id/approvals", orderH.ListApprovals)
		auth.POST("/approvals/:id/respond", orderH.RespondApproval)
	}

	adm := api.Group("/admin", middleware.RequireAdmin())
	{
		adm.GET("/dashboard", dashboard.Show)
		adm.GET("/metrics", dashboard.Metrics)

		adm.GET("/products", adminCatalog.ListProducts)
		adm.POST("/products", adminCatalog.CreateProduct)
		adm.GET("/products/:id", adminCatalog.GetProduct)
		adm.PUT("/products/:id", adminCatalog.UpdateProduct)
		adm.DELETE("/products/:id", adminCatalog.DeleteProduct)
		adm.POST("/products/:id/stock", adminCatalog.AdjustStock)
		adm.POST("/products/:id/images", adminCatalog.UploadImage)
		adm.DELETE("/products/:id/images/:imageID", adminCatalog.RemoveImage)

		adm.GET("/categories", adminCatalog.ListCategories)
		adm.POST("/categories", adminCatalog.CreateCategory)
		adm.PUT("/categories/:id", adminCatalog.UpdateCategory)
		adm.DELETE("/categories/:id", adminCatalog.DeleteCategory)

		adm.GET("/services", adminCatalog.ListServices)
		adm.POST("/services", adminCatalog.CreateService)
		adm.PUT("/services/:id", adminCatalog.UpdateService)
		adm.DELETE("/services/:id", adminCatalog.DeleteService)

		adm.GET("/orders", adminOrders.List)
		adm.GET("/orders/:id", adminOrders.Detail)
		adm.POST("/orders/:id/transition", adminOrders.Transition)
		adm.POST("/orders/:id/refunds", adminOrders.Refund)
		adm.POST("/orders/:id/items/:itemID/proofs", adminOrders.SubmitProof)

		adm.GET("/customers", adminUsers.Customers)
	}

	super := adm.Group("/admins", middleware.RequireSuperAdmin())
	{
		super.GET("", adminUsers.Admins)
		super.POST("", adminUsers.CreateAdmin)
		super.PATCH("/:id/role", adminUsers.SetRole)
		super.DELETE("/:id", adminUsers.RemoveAdmin)
	}

	return r, nil
}
