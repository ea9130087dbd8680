package account

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stackhouselabs/taskloop/internal/middleware"
)

// RegisterRoutes sets up all account routes on the given Echo instance.
// Registration, login, and password reset are public; everything else
// requires the auth middleware passed in by the caller.
//
// The public POST endpoints are rate-limited per IP to slow brute-force
// and credential stuffing: 10 login attempts per minute, 5 registrations,
// 5 password resets.
func RegisterRoutes(e *echo.Echo, h *Handler, authed echo.MiddlewareFunc, rdb *redis.Client) {
	e.POST("/register", h.Register, middleware.RateLimit(rdb, "register", 5, time.Minute))
	e.POST("/login", h.Login, middleware.RateLimit(rdb, "login", 10, time.Minute))
	e.POST("/reset-password", h.ResetPassword, middleware.RateLimit(rdb, "reset", 5, time.Minute))

	e.POST("/logout", h.Logout, authed)
	e.GET("/profile", h.Profile, authed)
	e.PUT("/users", h.UpdateProfile, authed)
	e.DELETE("/users/:id", h.DeleteAccount, authed)
}
