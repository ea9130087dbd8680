package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stackhouselabs/taskloop/internal/plugins/account"
	"github.com/stackhouselabs/taskloop/internal/plugins/todo"
	"github.com/stackhouselabs/taskloop/internal/plugins/uploads"
	"github.com/stackhouselabs/taskloop/internal/session"
)

// RegisterRoutes wires up all services, handlers, and routes. This is the
// single place where plugins are constructed and aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Shared infrastructure.
	tokens := session.NewService(a.Config.Auth.SecretKey, a.Config.Auth.TokenTTL)
	pictures := uploads.NewStore(a.Config.Upload.MediaPath, a.Config.Upload.MaxSize)
	authed := account.RequireAuth(tokens)

	// Todo plugin.
	todoRepo := todo.NewTodoRepository(a.DB)
	todoService := todo.NewTodoService(todoRepo)
	todoHandler := todo.NewHandler(todoService)
	todo.RegisterRoutes(e, todoHandler, authed)

	// Account plugin. The todo service doubles as the purger so account
	// deletion cascades over the user's items.
	userRepo := account.NewUserRepository(a.DB)
	accountService := account.NewAccountService(userRepo, tokens, todoService)
	accountHandler := account.NewHandler(accountService, pictures, a.Config.Auth.TokenTTL)
	account.RegisterRoutes(e, accountHandler, authed, a.Redis)
}
