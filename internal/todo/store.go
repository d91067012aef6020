package todo

import (
	"context"
	"time"
)

// Sortable fields for item listing. Anything else falls back to due_date.
const (
	SortByDueDate   = "due_date"
	SortByStatus    = "status"
	SortByTitle     = "title"
	SortByPriority  = "priority"
	SortByCreatedAt = "created_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ItemQuery selects and orders items within one list. Filters are a
// conjunction; DueBefore is inclusive.
type ItemQuery struct {
	Status    *Status
	DueBefore *time.Time
	SortBy    string
	Order     string
}

// ListStore persists list documents addressed by list id.
type ListStore interface {
	InsertList(ctx context.Context, list *TodoList) error
	FindList(ctx context.Context, listID string) (TodoList, error)
	UpdateList(ctx context.Context, listID string, upd ListUpdate, updatedAt time.Time) (TodoList, error)
	DeleteList(ctx context.Context, listID string) (bool, error)
}

// ItemStore persists item documents addressed by (item id, list id).
type ItemStore interface {
	InsertItem(ctx context.Context, item *TodoItem) error
	FindItem(ctx context.Context, itemID, listID string) (TodoItem, error)
	QueryItems(ctx context.Context, listID string, q ItemQuery) ([]TodoItem, error)
	UpdateItem(ctx context.Context, itemID, listID string, upd ItemUpdate, updatedAt time.Time) (TodoItem, error)
	DeleteItem(ctx context.Context, itemID, listID string) (bool, error)
}
