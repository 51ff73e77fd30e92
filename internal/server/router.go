package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/auth"
	"github.com/valeevte/PriceLedger/internal/expenses"
	"github.com/valeevte/PriceLedger/internal/logger"
	"github.com/valeevte/PriceLedger/internal/metrics"
	"github.com/valeevte/PriceLedger/internal/prices"
	"github.com/valeevte/PriceLedger/internal/products"
	"github.com/valeevte/PriceLedger/internal/receipts"
	"github.com/valeevte/PriceLedger/internal/response"
	"github.com/valeevte/PriceLedger/internal/stores"
	"github.com/valeevte/PriceLedger/internal/wishlist"
)

// Pinger проверяет доступность базы для /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps — всё, что нужно роутеру; собирается в main.
type Deps struct {
	Log            *zap.Logger
	Verifier       auth.Verifier
	RequestTimeout time.Duration
	DB             Pinger

	Products products.Repository
	Stores   stores.Repository
	Prices   *prices.Service
	Wishlist *wishlist.Service
	Expenses *expenses.Service
	Receipts *receipts.Service
}

// Timeout ограничивает время обработки запроса.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error("panic recovered",
			zap.Any("panic", rec),
			zap.String("path", c.Request.URL.Path),
			zap.String(logger.RequestIDKey, c.GetString(logger.RequestIDKey)),
		)
		response.Fail(c, nil, apperr.New(apperr.KindInternal, "Internal server error", nil), nil)
	})
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "timestamp": time.Now().UTC()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	}
}

// NewRouter собирает gin-движок со всеми маршрутами /api.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(recovery(d.Log), logger.RequestID(), logger.RequestLogger(d.Log), metrics.Middleware(), Timeout(d.RequestTimeout))

	r.GET("/health", health(d.DB))
	r.GET("/metrics", metrics.Handler())

	requireAuth := auth.RequireAuth(d.Verifier, d.Log)
	api := r.Group("/api")
	// публичные маршруты видят пользователя, если токен валиден
	public := api.Group("", auth.OptionalAuth(d.Verifier))

	ph := products.NewHandler(d.Products, d.Log, products.OnRetire(d.Prices.InvalidateProduct))
	pg := public.Group("/products")
	{
		pg.GET("", ph.ListProducts)
		pg.GET("/search", ph.SearchProducts)
		pg.GET("/:id", ph.GetProduct)
		pg.POST("", requireAuth, ph.CreateProduct)
		pg.DELETE("/:id", requireAuth, ph.RetireProduct)
	}

	sh := stores.NewHandler(d.Stores, d.Log)
	sg := public.Group("/stores")
	{
		sg.GET("", sh.ListStores)
		sg.GET("/:id", sh.GetStore)
		sg.POST("", requireAuth, sh.CreateStore)
	}

	prh := prices.NewHandler(d.Prices, d.Log)
	pr := public.Group("/prices")
	{
		pr.GET("/product/:productId", prh.GetHistory)
		pr.GET("/effective/:productId", prh.GetEffective)
		pr.GET("/compare/:productId", prh.Compare)
		pr.GET("/trends/:productId", prh.GetTrends)
		pr.POST("", requireAuth, prh.CreatePrice)
		pr.DELETE("/:id", requireAuth, prh.RetirePrice)
	}

	wh := wishlist.NewHandler(d.Wishlist, d.Log)
	wl := api.Group("/wishlist", requireAuth)
	{
		wl.GET("", wh.List)
		wl.GET("/stats", wh.Stats)
		wl.GET("/:id", wh.Get)
		wl.POST("", wh.Create)
		wl.PUT("/:id", wh.Update)
		wl.DELETE("/:id", wh.Delete)
	}

	eh := expenses.NewHandler(d.Expenses, d.Log)
	ex := api.Group("/expenses", requireAuth)
	{
		ex.GET("", eh.List)
		ex.GET("/summary", eh.Summary)
		ex.GET("/trends", eh.Trends)
		ex.GET("/categories", eh.Categories)
		ex.POST("", eh.Create)
		ex.PUT("/:id", eh.Update)
		ex.DELETE("/:id", eh.Delete)
	}

	rh := receipts.NewHandler(d.Receipts, d.Log)
	rc := api.Group("/receipts", requireAuth)
	{
		rc.GET("", rh.List)
		rc.GET("/:id", rh.Get)
		rc.POST("/upload", rh.Upload)
		rc.PUT("/:id", rh.Update)
		rc.DELETE("/:id", rh.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, nil, apperr.NotFound("Route not found"), nil)
	})
	return r
}
