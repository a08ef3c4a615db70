package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/eventbook/event-booking-api/internal/config"
	"github.com/eventbook/event-booking-api/internal/handler"
	"github.com/eventbook/event-booking-api/internal/middleware"
	"github.com/eventbook/event-booking-api/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	Cfg      config.Config
	Redis    *redis.Client
	Auth     *handler.AuthHandler
	Events   *handler.EventHandler
	Bookings *handler.BookingHandler
	Health   *handler.HealthHandler
}

// New builds the Echo instance and wires all routes.
//
// Public routes:   /health, /api/auth/*, GET /api/events[...]
// Authenticated:   /api/auth/me, /api/bookings/*
// Admin only:      event writes, booking admin list, status updates
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())

	jwt := middleware.JWTAuth(d.Cfg.JWTSecret)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), d.Redis)

	e.GET("/health", d.Health.Health)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.Auth.Register, rateLimit)
	auth.POST("/login", d.Auth.Login, rateLimit)
	auth.GET("/me", d.Auth.Me, jwt)

	events := api.Group("/events")
	events.GET("", d.Events.List, cache)
	events.GET("/:id", d.Events.Get, cache)
	events.POST("", d.Events.Create, jwt, adminOnly)
	events.PUT("/:id", d.Events.Update, jwt, adminOnly)
	events.DELETE("/:id", d.Events.Delete, jwt, adminOnly)

	bookings := api.Group("/bookings", jwt)
	bookings.POST("", d.Bookings.Create, rateLimit)
	bookings.GET("/my-bookings", d.Bookings.MyBookings)
	bookings.GET("/:id", d.Bookings.Get)
	bookings.GET("/:id/qr", d.Bookings.QRCode)
	bookings.GET("", d.Bookings.ListAll, adminOnly)
	bookings.PATCH("/:id/status", d.Bookings.UpdateStatus, adminOnly)

	return e
}
