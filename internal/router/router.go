// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/cache"
	"github.com/javajoker/invoice-backend/internal/config"
	"github.com/javajoker/invoice-backend/internal/handlers"
	"github.com/javajoker/invoice-backend/internal/middleware"
	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

// Initialize wires services, handlers and routes. redisCache may be nil, in which case
// listings are always read from the store. stop ends background cleanup work.
func Initialize(db *gorm.DB, cfg *config.Config, redisCache *cache.RedisCache, stop <-chan struct{}) *gin.Engine {
	var (
		invalidator services.Invalidator
		listCache   handlers.ListCache
	)
	if redisCache != nil {
		invalidator = redisCache
		listCache = redisCache
	}

	// Initialize services
	rateLimiter := services.NewRateLimiter(db, cfg.RateLimit)
	authService := services.NewAuthService(db, cfg, rateLimiter)
	ingredientService := services.NewIngredientService(db, invalidator)
	recipeService := services.NewRecipeService(db, invalidator)
	productService := services.NewProductService(db, invalidator)
	sizePriceService := services.NewSizePriceService(db, invalidator)
	invoiceService := services.NewInvoiceService(db, invalidator)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService, listCache)
	productHandler := handlers.NewProductHandler(productService, listCache)
	sizePriceHandler := handlers.NewSizePriceHandler(sizePriceService, recipeService, listCache)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, listCache)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	throttle := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	if stop != nil {
		throttle.StartCleanup(time.Minute, stop)
	}

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())
	r.Use(throttle.Middleware())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())

		ingredients := protected.Group("/ingredients")
		{
			ingredients.GET("", ingredientHandler.GetIngredients)
			ingredients.GET("/:id", ingredientHandler.GetIngredient)
			ingredients.GET("/:id/price-history", ingredientHandler.GetPriceHistory)
			ingredients.POST("", ingredientHandler.CreateIngredient)
			ingredients.PUT("/:id", ingredientHandler.UpdateIngredient)
			ingredients.PUT("/:id/price", middleware.AdminRequired(), ingredientHandler.UpdatePrice)
			ingredients.DELETE("/:id", middleware.AdminRequired(), ingredientHandler.DeleteIngredient)
		}

		products := protected.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", productHandler.CreateProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", middleware.AdminRequired(), productHandler.DeleteProduct)
		}

		sizePrices := protected.Group("/size-prices")
		{
			sizePrices.GET("", sizePriceHandler.GetSizePrices)
			sizePrices.GET("/:id", sizePriceHandler.GetSizePrice)
			sizePrices.GET("/:id/components", sizePriceHandler.GetComponents)
			sizePrices.GET("/:id/cogs", sizePriceHandler.GetCOGS)
			sizePrices.POST("", sizePriceHandler.CreateSizePrice)
			sizePrices.PUT("/:id", sizePriceHandler.UpdateSizePrice)
			sizePrices.PUT("/:id/components", sizePriceHandler.UpsertComponent)
			sizePrices.DELETE("/:id", middleware.AdminRequired(), sizePriceHandler.DeleteSizePrice)
		}

		protected.DELETE("/components/:id", sizePriceHandler.DeleteComponent)

		invoices := protected.Group("/invoices")
		{
			invoices.GET("", invoiceHandler.GetInvoices)
			invoices.GET("/:id", invoiceHandler.GetInvoice)
			invoices.POST("", invoiceHandler.SubmitInvoice)
			invoices.PUT("/:id", invoiceHandler.UpdateInvoice)
			invoices.PUT("/:id/status", invoiceHandler.UpdateInvoiceStatus)
			invoices.DELETE("/:id", middleware.AdminRequired(), invoiceHandler.DeleteInvoice)
		}
	}

	return r
}
