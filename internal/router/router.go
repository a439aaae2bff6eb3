package router

import (
	"net/http"
	"time"

	"wishlist-service/internal/handlers"
	"wishlist-service/internal/middleware"
	"wishlist-service/internal/notifier"
	"wishlist-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Deps struct {
	Auth      *service.AuthService
	Wishlists *service.WishlistService
	Hub       *notifier.Hub
	URLParser handlers.MetadataParser

	// Limiter может быть nil: тогда /api/url/parse не ограничивается.
	Limiter     middleware.Limiter
	RateWindow  time.Duration
	CORSOrigins []string
}

func Router(d Deps, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authHandler := handlers.NewAuthHandler(d.Auth, log)
	wishlistHandler := handlers.NewWishlistHandler(d.Wishlists, log)
	itemHandler := handlers.NewItemHandler(d.Wishlists, log)
	wsHandler := handlers.NewWSHandler(d.Wishlists, d.Hub, log)

	authRequired := middleware.AuthRequired(d.Auth, log)
	authOptional := middleware.AuthOptional(d.Auth, log)

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/login/json", authHandler.LoginJSON)
	auth.GET("/me", authRequired, authHandler.Me)

	wishlists := api.Group("/wishlists")
	wishlists.GET("/public/:slug", authOptional, wishlistHandler.Public)
	owner := wishlists.Group("", authRequired)
	owner.GET("", wishlistHandler.List)
	owner.POST("", wishlistHandler.Create)
	owner.GET("/:id", wishlistHandler.Get)
	owner.PUT("/:id", wishlistHandler.Update)
	owner.DELETE("/:id", wishlistHandler.Delete)
	owner.POST("/:id/items", wishlistHandler.CreateItem)

	items := api.Group("/items")
	items.GET("/ws/:wishlistId", wsHandler.Subscribe)
	items.PUT("/:id", authRequired, itemHandler.Update)
	items.DELETE("/:id", authRequired, itemHandler.Delete)
	items.POST("/:id/reserve", itemHandler.Reserve)
	items.DELETE("/:id/reserve", authOptional, itemHandler.CancelReservation)
	items.POST("/:id/contribute", itemHandler.Contribute)

	if d.URLParser != nil {
		urlHandler := handlers.NewURLHandler(d.URLParser, log)
		api.POST("/url/parse", middleware.RateLimit(d.Limiter, d.RateWindow, log), urlHandler.Parse)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Wishlist API",
			"docs":    "/swagger/index.html",
			"version": "1.0.0",
		})
	})

	return r
}
