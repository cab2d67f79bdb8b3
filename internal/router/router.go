package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-reservation/internal/config"
	"github.com/iliyamo/ticket-reservation/internal/handler"
	"github.com/iliyamo/ticket-reservation/internal/middleware"
)

// Deps bundles everything the routes need.
type Deps struct {
	Cfg         config.Config
	Reservation *handler.ReservationHandler
	Admin       *handler.AdminHandler
	RedisClient *redis.Client
}

// RegisterRoutes wires all endpoints.  Seat reads are public; hold,
// confirm and refund require a Bearer token; admin endpoints are guarded
// by the admin key.  The hold endpoint additionally carries the Redis
// token bucket limiter.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.GET("/events/:event_id/seats/:seat_id", d.Reservation.SeatGet)

	auth := v1.Group("", middleware.JWTAuth(d.Cfg.JWTSecret))
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.RedisClient)
	auth.POST("/holds", d.Reservation.Hold, rl)
	auth.DELETE("/holds", d.Reservation.Release)
	auth.POST("/orders", d.Reservation.Confirm)
	auth.POST("/orders/:id/refund", d.Reservation.Refund)

	v1.POST("/admin/seats", d.Admin.SeedSeat)
	v1.PUT("/admin/hold-length", d.Admin.SetHoldLength)

	if d.Cfg.Env != "production" {
		token := &handler.TokenHandler{Secret: d.Cfg.JWTSecret, TTLMin: d.Cfg.AccessTTLMin}
		v1.POST("/auth/token", token.Issue)
	}
}
