package todo

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("todo: invalid input")
	ErrNotFound     = errors.New("todo: not found")
)

// Status is the closed set of item progress states. The string value is the
// external representation stored and served as-is.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// ParseStatus maps the wire representation onto a Status. Unknown values are
// rejected, never coerced.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(raw)) {
	case StatusNotStarted:
		return StatusNotStarted, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
}

// Priority is the closed set of item priorities.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority maps the wire representation onto a Priority.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(strings.TrimSpace(raw)) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
	}
}

// TodoList is a named collection of items owned by one user. The list id is
// the sole addressing key; the document store assigns nothing.
type TodoList struct {
	ListID      string    `bson:"list_id" json:"list_id"`
	OwnerID     string    `bson:"owner_id" json:"owner_id"`
	Title       string    `bson:"title" json:"title"`
	Description *string   `bson:"description,omitempty" json:"description"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// TodoItem is a single entry belonging to exactly one list. Items resolve
// only by the (item_id, list_id) pair.
type TodoItem struct {
	ItemID      string     `bson:"item_id" json:"item_id"`
	ListID      string     `bson:"list_id" json:"list_id"`
	Title       string     `bson:"title" json:"title"`
	Description *string    `bson:"description,omitempty" json:"description"`
	DueDate     *time.Time `bson:"due_date,omitempty" json:"due_date"`
	Status      Status     `bson:"status" json:"status"`
	Priority    Priority   `bson:"priority" json:"priority"`
	Tags        []string   `bson:"tags" json:"tags"`
	MediaURL    *string    `bson:"media_url,omitempty" json:"media_url"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// ListUpdate carries the optional fields of a partial list update.
type ListUpdate struct {
	Title       *string
	Description *string
}

// ItemUpdate carries the optional fields of a partial item update. A nil
// field is left untouched; Tags replace the whole set when provided.
type ItemUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *Status
	Priority    *Priority
	Tags        []string
	MediaURL    *string
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if len(title) > 100 {
		return "", fmt.Errorf("%w: title must be at most 100 characters", ErrInvalidInput)
	}
	return title, nil
}

func validateDescription(desc *string) error {
	if desc == nil {
		return nil
	}
	if len(*desc) > 500 {
		return fmt.Errorf("%w: description must be at most 500 characters", ErrInvalidInput)
	}
	return nil
}

// dedupeTags removes duplicates while keeping first-seen order.
func dedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
