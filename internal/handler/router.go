package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront/storebot/internal/config"
	"storefront/storebot/internal/handler/middleware"
	jwtpkg "storefront/storebot/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	webhookHandler *WebhookHandler,
	storefrontHandler *StorefrontHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Telegram webhook (absent in long-polling mode)
	if webhookHandler != nil {
		r.POST("/telegram/webhook", webhookHandler.Receive)
	}

	// Public catalog
	api := r.Group("/api/v1")
	{
		api.GET("/products", storefrontHandler.ListProducts)
		api.GET("/products/:id", storefrontHandler.GetProduct)
	}

	// Cart and checkout act on the token subject's cart
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.GET("/cart", storefrontHandler.GetCart)
		protected.POST("/cart/items", storefrontHandler.AddItem)
		protected.DELETE("/cart/items/:id", storefrontHandler.RemoveItem)
		protected.POST("/checkout", storefrontHandler.Checkout)
	}

	return r
}
