package todo

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all todo routes on the given Echo instance. Every
// route requires the auth middleware passed in by the caller; there is no
// public todo surface.
func RegisterRoutes(e *echo.Echo, h *Handler, authed echo.MiddlewareFunc) {
	e.POST("/todos", h.Create, authed)
	e.GET("/userTodo", h.List, authed)
	e.PUT("/todos/:id", h.Update, authed)
	e.POST("/todos/:id/complete", h.Complete, authed)
	e.DELETE("/todos/:id", h.Delete, authed)
}
