// Package router builds the echo instance: global middleware and every
// route group of the API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/handler"
	"github.com/importfull/inventory-api/internal/metrics"
	"github.com/importfull/inventory-api/internal/middleware"
	"github.com/importfull/inventory-api/internal/model"
)

// Deps is everything the routes need.  Redis may be nil.
type Deps struct {
	Log       *zap.Logger
	Resolver  middleware.TokenResolver
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Auth        *handler.AuthHandler
	Products    *handler.ProductHandler
	Files       *handler.ProductFilesHandler
	Competitors *handler.CompetitorHandler
	Metadata    *handler.MetadataHandler
	Settings    *handler.SettingsHandler
	Logo        *handler.LogoHandler
}

// New returns an echo instance with global middleware and all routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(echomw.BodyLimit("12M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		ExposeHeaders: []string{"X-Total-Count", echo.HeaderXRequestID},
	}))

	RegisterRoutes(e)
	RegisterAuth(e, d)
	RegisterSettings(e, d)
	RegisterProducts(e, d)
	RegisterCompetitors(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth mounts token issuance (rate limited) and user self-service.
func RegisterAuth(e *echo.Echo, d Deps) {
	e.POST("/token", d.Auth.Token, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))

	g := e.Group("/users", middleware.JWTAuth(d.Resolver))
	g.GET("/me", d.Auth.Me)
	g.PATCH("/me", d.Auth.UpdateMe)
	g.POST("", d.Auth.CreateUser, middleware.RequireRole(model.RoleAdmin))
}

// RegisterSettings mounts the settings document and the logos.  The public
// settings and the logo images need no token.
func RegisterSettings(e *echo.Echo, d Deps) {
	e.GET("/public-settings", d.Settings.Public)
	e.GET("/logo/:type", d.Logo.Serve)

	auth := middleware.JWTAuth(d.Resolver)
	e.GET("/settings", d.Settings.Get, auth)
	e.PUT("/settings", d.Settings.Put, auth)
	e.POST("/upload-logo", d.Logo.Upload, auth)
}

// RegisterProducts mounts the catalog under /api.  Every route requires a
// token; category and brand lists go through the response cache.
func RegisterProducts(e *echo.Echo, d Deps) {
	api := e.Group("/api", middleware.JWTAuth(d.Resolver))

	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)
	api.GET("/categories", d.Metadata.Categories, cache)
	api.GET("/brands", d.Metadata.Brands, cache)

	p := api.Group("/products")
	p.GET("", d.Products.List)
	p.GET("/meli", d.Products.Marketplace)
	p.GET("/search", d.Products.Search)
	p.GET("/images/*", d.Files.Image)
	p.GET("/:id", d.Products.Get)
	p.PATCH("/:id", d.Products.Patch)
	p.PATCH("/:id/publish", d.Products.Publish)
	p.POST("/:id/notify", d.Products.NotifyUpdate)
	p.POST("/:id/upload", d.Files.Upload)
	p.GET("/:id/files", d.Files.List)
}

// RegisterCompetitors mounts the competitor listings, addressed by ?url=.
func RegisterCompetitors(e *echo.Echo, d Deps) {
	g := e.Group("/api/competitors", middleware.JWTAuth(d.Resolver))
	g.GET("", d.Competitors.List)
	g.POST("", d.Competitors.Create)
	g.GET("/item", d.Competitors.Get)
	g.PATCH("", d.Competitors.Update)
	g.DELETE("", d.Competitors.Delete)
}
