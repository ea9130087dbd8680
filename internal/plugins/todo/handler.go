package todo

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stackhouselabs/taskloop/internal/apperror"
	"github.com/stackhouselabs/taskloop/internal/plugins/account"
)

// Handler handles HTTP requests for to-do items. Handlers are thin: they
// bind the request, resolve the authenticated owner, call the service, and
// write the response.
type Handler struct {
	service TodoService
}

// NewHandler creates a todo handler with the given service.
func NewHandler(service TodoService) *Handler {
	return &Handler{service: service}
}

// Create adds a new item for the authenticated user (POST /todos).
func (h *Handler) Create(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	item, err := h.service.Create(c.Request().Context(), account.GetUserID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, item)
}

// List returns the authenticated user's items with their classification
// computed at request time (GET /userTodo).
func (h *Handler) List(c echo.Context) error {
	items, err := h.service.ListByOwner(c.Request().Context(), account.GetUserID(c), time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// Update applies a partial update to one of the user's items (PUT /todos/:id).
func (h *Handler) Update(c echo.Context) error {
	itemID, err := parseItemID(c)
	if err != nil {
		return err
	}

	var req UpdateTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	item, err := h.service.Update(c.Request().Context(), account.GetUserID(c), itemID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// Complete marks an item completed (POST /todos/:id/complete). Idempotent.
func (h *Handler) Complete(c echo.Context) error {
	itemID, err := parseItemID(c)
	if err != nil {
		return err
	}

	item, err := h.service.Complete(c.Request().Context(), account.GetUserID(c), itemID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// Delete removes an item (DELETE /todos/:id). Soft delete under the hood.
func (h *Handler) Delete(c echo.Context) error {
	itemID, err := parseItemID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), account.GetUserID(c), itemID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "todo deleted successfully"})
}

// parseItemID reads the :id path parameter. A non-numeric id can't match
// any item, so it reports NotFound rather than a bad request.
func parseItemID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, apperror.NewNotFound("todo not found")
	}
	return id, nil
}
