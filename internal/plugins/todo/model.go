// Package todo implements the to-do item store and lifecycle for Taskloop:
// creation, partial update, idempotent completion, soft deletion, and the
// derived due-date classification shown by the UI. Every operation is
// scoped to the owning user; an item belonging to someone else is
// indistinguishable from one that doesn't exist.
package todo

import (
	"fmt"
	"time"
)

// Status is the closed set of lifecycle states for a to-do item. Any state
// may move to any other via update; the only coupled invariant is that
// completed_at is set exactly when the status is completed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is the closed set of priority levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Classification is the derived, read-only label computed from status and
// due date at read time. It is never persisted: "now" moves, so caching it
// would serve stale labels.
type Classification string

const (
	ClassCompleted Classification = "completed"
	ClassOverdue   Classification = "overdue"
	ClassDueSoon   Classification = "due-soon"
	ClassNormal    Classification = "normal"
)

// TodoItem represents a persisted to-do item owned by a single user.
type TodoItem struct {
	ItemID      int        `json:"item_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UserID      int        `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"` // Soft-delete marker, never exposed.
}

// Classify derives the display classification for the item at the given
// instant. Completed wins over everything; otherwise a due date strictly in
// the past is overdue and one within 24 hours is due soon. A bare date (no
// time component) is interpreted as end of that day.
func (t *TodoItem) Classify(now time.Time) Classification {
	if t.Status == StatusCompleted {
		return ClassCompleted
	}
	if t.DueDate == nil {
		return ClassNormal
	}

	due := effectiveDue(*t.DueDate)
	if due.Before(now) {
		return ClassOverdue
	}
	if due.Sub(now) <= 24*time.Hour {
		return ClassDueSoon
	}
	return ClassNormal
}

// effectiveDue shifts a midnight timestamp to the last second of its day.
// A stored due date with a clock component is used as-is.
func effectiveDue(due time.Time) time.Time {
	h, m, s := due.Clock()
	if h == 0 && m == 0 && s == 0 && due.Nanosecond() == 0 {
		return due.Add(24*time.Hour - time.Second)
	}
	return due
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateTodoRequest holds the payload for POST /todos. Status and priority
// default to pending/low when omitted; due_date accepts a bare date
// ("2099-01-01") or an RFC 3339 timestamp.
type CreateTodoRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Status      string `json:"status" form:"status"`
	Priority    string `json:"priority" form:"priority"`
	DueDate     string `json:"due_date" form:"due_date"`
}

// UpdateTodoRequest holds the partial payload for PUT /todos/:id. Nil
// fields are left untouched; an explicit empty due_date clears it.
type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// TodoResponse is a TodoItem with its classification computed at read time.
type TodoResponse struct {
	*TodoItem
	Classification Classification `json:"classification"`
}

// ParseDueDate parses a due date submitted by a client. A bare date parses
// to local midnight (later classified as end of day); otherwise RFC 3339 is
// expected.
func ParseDueDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized due date %q", value)
}
