package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stackhouselabs/taskloop/internal/apperror"
	"github.com/stackhouselabs/taskloop/internal/sanitize"
)

// TodoService defines the business logic contract for to-do items.
// Handlers call these methods -- they never touch the repository directly.
// It also satisfies account.TodoPurger via DeleteAllForUser so account
// deletion can cascade.
type TodoService interface {
	Create(ctx context.Context, ownerID int, input CreateTodoRequest) (*TodoItem, error)
	ListByOwner(ctx context.Context, ownerID int, now time.Time) ([]TodoResponse, error)
	Update(ctx context.Context, ownerID, itemID int, input UpdateTodoRequest) (*TodoItem, error)
	Complete(ctx context.Context, ownerID, itemID int) (*TodoItem, error)
	Delete(ctx context.Context, ownerID, itemID int) error
	DeleteAllForUser(ctx context.Context, ownerID int) error
}

// todoService implements TodoService.
type todoService struct {
	repo TodoRepository
}

// NewTodoService creates a todo service backed by the given repository.
func NewTodoService(repo TodoRepository) TodoService {
	return &todoService{repo: repo}
}

// Create validates and persists a new item for the owner. Status defaults
// to pending and priority to low when unspecified; an empty title is
// rejected.
func (s *todoService) Create(ctx context.Context, ownerID int, input CreateTodoRequest) (*TodoItem, error) {
	title := sanitize.Text(input.Title)
	if title == "" {
		return nil, apperror.NewValidation("title is required")
	}

	status := Status(input.Status)
	if input.Status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid status %q", input.Status))
	}

	priority := Priority(input.Priority)
	if input.Priority == "" {
		priority = PriorityLow
	}
	if !priority.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid priority %q", input.Priority))
	}

	now := time.Now().UTC()
	item := &TodoItem{
		Title:     title,
		Status:    status,
		Priority:  priority,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if desc := sanitize.Text(input.Description); desc != "" {
		item.Description = &desc
	}

	if input.DueDate != "" {
		due, err := ParseDueDate(input.DueDate)
		if err != nil {
			return nil, apperror.NewValidation("due_date must be YYYY-MM-DD or RFC 3339")
		}
		item.DueDate = &due
	}

	// Creating an item directly in the completed state still gets the
	// completion timestamp: completed_at tracks status, not the path there.
	if item.Status == StatusCompleted {
		completed := now
		item.CompletedAt = &completed
	}

	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating todo: %w", err))
	}
	item.ItemID = id

	slog.Info("todo created",
		slog.Int("item_id", item.ItemID),
		slog.Int("user_id", ownerID),
	)

	return item, nil
}

// ListByOwner returns the owner's live items with their classification
// computed against now. An empty list fails with NotFound, matching the
// API contract for GET /userTodo.
func (s *todoService) ListByOwner(ctx context.Context, ownerID int, now time.Time) ([]TodoResponse, error) {
	items, err := s.repo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing todos: %w", err))
	}
	if len(items) == 0 {
		return nil, apperror.NewNotFound("no todos found")
	}

	responses := make([]TodoResponse, len(items))
	for i := range items {
		responses[i] = TodoResponse{
			TodoItem:       &items[i],
			Classification: items[i].Classify(now),
		}
	}

	return responses, nil
}

// Update applies a partial update to an item owned by ownerID. Moving the
// status to completed stamps completed_at; moving it away clears it. An
// unknown or foreign item fails with NotFound.
func (s *todoService) Update(ctx context.Context, ownerID, itemID int, input UpdateTodoRequest) (*TodoItem, error) {
	item, err := s.repo.FindByID(ctx, ownerID, itemID)
	if err != nil {
		return nil, asAppError(err, "finding todo")
	}

	if input.Title != nil {
		title := sanitize.Text(*input.Title)
		if title == "" {
			return nil, apperror.NewValidation("title must not be empty")
		}
		item.Title = title
	}

	if input.Description != nil {
		if desc := sanitize.Text(*input.Description); desc != "" {
			item.Description = &desc
		} else {
			item.Description = nil
		}
	}

	if input.Priority != nil {
		priority := Priority(*input.Priority)
		if !priority.Valid() {
			return nil, apperror.NewValidation(fmt.Sprintf("invalid priority %q", *input.Priority))
		}
		item.Priority = priority
	}

	if input.DueDate != nil {
		if *input.DueDate == "" {
			item.DueDate = nil
		} else {
			due, err := ParseDueDate(*input.DueDate)
			if err != nil {
				return nil, apperror.NewValidation("due_date must be YYYY-MM-DD or RFC 3339")
			}
			item.DueDate = &due
		}
	}

	now := time.Now().UTC()

	if input.Status != nil {
		status := Status(*input.Status)
		if !status.Valid() {
			return nil, apperror.NewValidation(fmt.Sprintf("invalid status %q", *input.Status))
		}
		applyStatus(item, status, now)
	}

	item.UpdatedAt = now

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, asAppError(err, "updating todo")
	}

	slog.Info("todo updated",
		slog.Int("item_id", item.ItemID),
		slog.Int("user_id", ownerID),
	)

	return item, nil
}

// Complete transitions an item to completed. Completing an already
// completed item is a no-op: the current state is returned unchanged and
// completed_at keeps its original value.
func (s *todoService) Complete(ctx context.Context, ownerID, itemID int) (*TodoItem, error) {
	item, err := s.repo.FindByID(ctx, ownerID, itemID)
	if err != nil {
		return nil, asAppError(err, "finding todo")
	}

	if item.Status == StatusCompleted {
		return item, nil
	}

	now := time.Now().UTC()
	applyStatus(item, StatusCompleted, now)
	item.UpdatedAt = now

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, asAppError(err, "completing todo")
	}

	slog.Info("todo completed",
		slog.Int("item_id", item.ItemID),
		slog.Int("user_id", ownerID),
	)

	return item, nil
}

// Delete soft-deletes an item owned by ownerID. The caller-visible contract
// is "deleted"; the row is kept with a deleted_at marker and excluded from
// all future reads.
func (s *todoService) Delete(ctx context.Context, ownerID, itemID int) error {
	if err := s.repo.SoftDelete(ctx, ownerID, itemID); err != nil {
		return asAppError(err, "deleting todo")
	}

	slog.Info("todo deleted",
		slog.Int("item_id", itemID),
		slog.Int("user_id", ownerID),
	)

	return nil
}

// DeleteAllForUser soft-deletes every live item of a user. Called by the
// account service when the account itself is removed.
func (s *todoService) DeleteAllForUser(ctx context.Context, ownerID int) error {
	if err := s.repo.SoftDeleteAllForUser(ctx, ownerID); err != nil {
		return asAppError(err, "deleting user's todos")
	}
	return nil
}

// applyStatus sets the status and keeps completed_at coupled to it: set on
// entering completed, cleared on leaving it, untouched otherwise.
func applyStatus(item *TodoItem, status Status, now time.Time) {
	switch {
	case status == StatusCompleted && item.Status != StatusCompleted:
		completed := now
		item.CompletedAt = &completed
	case status != StatusCompleted && item.Status == StatusCompleted:
		item.CompletedAt = nil
	}
	item.Status = status
}

// asAppError passes AppErrors through untouched and wraps anything else as
// an internal error with context.
func asAppError(err error, op string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
