package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stackhouselabs/taskloop/internal/apperror"
)

// TodoRepository defines the data access contract for to-do items. Every
// read and mutation is scoped to the owning user and excludes soft-deleted
// rows, so ownership violations surface as NotFound at this layer already.
type TodoRepository interface {
	Create(ctx context.Context, item *TodoItem) (int, error)
	FindByID(ctx context.Context, ownerID, itemID int) (*TodoItem, error)
	ListByUser(ctx context.Context, ownerID int) ([]TodoItem, error)
	Update(ctx context.Context, item *TodoItem) error
	SoftDelete(ctx context.Context, ownerID, itemID int) error
	SoftDeleteAllForUser(ctx context.Context, ownerID int) error
}

// todoRepository implements TodoRepository with hand-written MariaDB queries.
type todoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a todo repository backed by the given DB pool.
func NewTodoRepository(db *sql.DB) TodoRepository {
	return &todoRepository{db: db}
}

// todoColumns is the select list shared by the read queries.
const todoColumns = `item_id, title, description, status, priority, due_date,
                    completed_at, user_id, created_at, updated_at`

// Create inserts a new to-do row and returns the generated item id.
func (r *todoRepository) Create(ctx context.Context, item *TodoItem) (int, error) {
	query := `INSERT INTO todo_items
	          (title, description, status, priority, due_date, user_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		item.Title,
		item.Description,
		item.Status,
		item.Priority,
		item.DueDate,
		item.UserID,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting todo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted todo id: %w", err)
	}

	return int(id), nil
}

// FindByID retrieves a non-deleted item owned by ownerID. Returns
// apperror.NotFound when the id is unknown, deleted, or owned by someone
// else.
func (r *todoRepository) FindByID(ctx context.Context, ownerID, itemID int) (*TodoItem, error) {
	query := `SELECT ` + todoColumns + `
	          FROM todo_items
	          WHERE item_id = ? AND user_id = ? AND deleted_at IS NULL`

	item := &TodoItem{}
	err := r.db.QueryRowContext(ctx, query, itemID, ownerID).Scan(
		&item.ItemID,
		&item.Title,
		&item.Description,
		&item.Status,
		&item.Priority,
		&item.DueDate,
		&item.CompletedAt,
		&item.UserID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("todo not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying todo by id: %w", err)
	}

	return item, nil
}

// ListByUser returns all non-deleted items owned by ownerID, soonest due
// first, undated items last.
func (r *todoRepository) ListByUser(ctx context.Context, ownerID int) ([]TodoItem, error) {
	query := `SELECT ` + todoColumns + `
	          FROM todo_items
	          WHERE user_id = ? AND deleted_at IS NULL
	          ORDER BY due_date IS NULL, due_date ASC, item_id ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	var items []TodoItem
	for rows.Next() {
		var item TodoItem
		if err := rows.Scan(
			&item.ItemID,
			&item.Title,
			&item.Description,
			&item.Status,
			&item.Priority,
			&item.DueDate,
			&item.CompletedAt,
			&item.UserID,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning todo row: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Update persists the mutable fields of an item. The WHERE clause keeps the
// mutation scoped to the owner and to live rows.
func (r *todoRepository) Update(ctx context.Context, item *TodoItem) error {
	query := `UPDATE todo_items
	          SET title = ?, description = ?, status = ?, priority = ?,
	              due_date = ?, completed_at = ?, updated_at = ?
	          WHERE item_id = ? AND user_id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		item.Title,
		item.Description,
		item.Status,
		item.Priority,
		item.DueDate,
		item.CompletedAt,
		item.UpdatedAt,
		item.ItemID,
		item.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating todo: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("todo not found")
	}

	return nil
}

// SoftDelete marks an item deleted without erasing the row. Returns
// apperror.NotFound when the id is unknown, already deleted, or not owned
// by ownerID.
func (r *todoRepository) SoftDelete(ctx context.Context, ownerID, itemID int) error {
	query := `UPDATE todo_items SET deleted_at = NOW()
	          WHERE item_id = ? AND user_id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, itemID, ownerID)
	if err != nil {
		return fmt.Errorf("soft-deleting todo: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("todo not found")
	}

	return nil
}

// SoftDeleteAllForUser marks all of a user's live items deleted. Used when
// an account is removed; zero affected rows is not an error.
func (r *todoRepository) SoftDeleteAllForUser(ctx context.Context, ownerID int) error {
	query := `UPDATE todo_items SET deleted_at = NOW()
	          WHERE user_id = ? AND deleted_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("soft-deleting user's todos: %w", err)
	}

	return nil
}
