package todo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tasknest.org/internal/ids"
)

// ListService owns the TodoList lifecycle.
type ListService struct {
	store ListStore
	now   func() time.Time
}

// NewListService constructs a ListService over the given store.
func NewListService(store ListStore) *ListService {
	return &ListService{store: store, now: time.Now}
}

// WithClock overrides the time source. Only intended for test use.
func (s *ListService) WithClock(fn func() time.Time) *ListService {
	if fn != nil {
		s.now = fn
	}
	return s
}

// CreateList generates an identifier, stamps equal created/updated times,
// persists and reads back the stored representation.
func (s *ListService) CreateList(ctx context.Context, ownerID, title string, description *string) (TodoList, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return TodoList{}, fmt.Errorf("%w: owner_id is required", ErrInvalidInput)
	}
	title, err := validateTitle(title)
	if err != nil {
		return TodoList{}, err
	}
	if err := validateDescription(description); err != nil {
		return TodoList{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	list := TodoList{
		ListID:      ids.NewList(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertList(ctx, &list); err != nil {
		return TodoList{}, err
	}
	// Round-trip so the caller sees exactly what a later read would return.
	return s.store.FindList(ctx, list.ListID)
}

// GetList resolves a list by id.
func (s *ListService) GetList(ctx context.Context, listID string) (TodoList, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return TodoList{}, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	return s.store.FindList(ctx, listID)
}

// UpdateList applies only the provided fields and refreshes updated_at.
func (s *ListService) UpdateList(ctx context.Context, listID string, upd ListUpdate) (TodoList, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return TodoList{}, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	if upd.Title != nil {
		title, err := validateTitle(*upd.Title)
		if err != nil {
			return TodoList{}, err
		}
		upd.Title = &title
	}
	if err := validateDescription(upd.Description); err != nil {
		return TodoList{}, err
	}
	return s.store.UpdateList(ctx, listID, upd, s.now().UTC().Truncate(time.Millisecond))
}

// DeleteList removes the list document and reports whether one was removed.
// Repeated deletion returns false, never an error.
func (s *ListService) DeleteList(ctx context.Context, listID string) (bool, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return false, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	return s.store.DeleteList(ctx, listID)
}

// ItemCreate carries the typed fields of an item creation. Nil status and
// priority take their defaults.
type ItemCreate struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Status      *Status
	Priority    *Priority
	Tags        []string
	MediaURL    *string
}

// ItemService owns the TodoItem lifecycle.
type ItemService struct {
	store ItemStore
	now   func() time.Time
}

// NewItemService constructs an ItemService over the given store.
func NewItemService(store ItemStore) *ItemService {
	return &ItemService{store: store, now: time.Now}
}

// WithClock overrides the time source. Only intended for test use.
func (s *ItemService) WithClock(fn func() time.Time) *ItemService {
	if fn != nil {
		s.now = fn
	}
	return s
}

// CreateItem generates an identifier, applies defaults, deduplicates tags
// and persists the item under listID.
func (s *ItemService) CreateItem(ctx context.Context, listID string, in ItemCreate) (TodoItem, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return TodoItem{}, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return TodoItem{}, err
	}
	if err := validateDescription(in.Description); err != nil {
		return TodoItem{}, err
	}

	status := StatusNotStarted
	if in.Status != nil {
		status = *in.Status
	}
	priority := PriorityMedium
	if in.Priority != nil {
		priority = *in.Priority
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	item := TodoItem{
		ItemID:      ids.NewItem(),
		ListID:      listID,
		Title:       title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      status,
		Priority:    priority,
		Tags:        dedupeTags(in.Tags),
		MediaURL:    in.MediaURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertItem(ctx, &item); err != nil {
		return TodoItem{}, err
	}
	return s.store.FindItem(ctx, item.ItemID, listID)
}

// GetItem resolves an item; both components of the key are required since
// item ids are not guaranteed scoped on their own.
func (s *ItemService) GetItem(ctx context.Context, itemID, listID string) (TodoItem, error) {
	itemID = strings.TrimSpace(itemID)
	listID = strings.TrimSpace(listID)
	if itemID == "" || listID == "" {
		return TodoItem{}, fmt.Errorf("%w: item_id and list_id are required", ErrInvalidInput)
	}
	return s.store.FindItem(ctx, itemID, listID)
}

// ListItems returns a finite snapshot of the list's items, filtered and
// sorted. Unrecognized sort fields fall back to due_date; order defaults
// to ascending.
func (s *ItemService) ListItems(ctx context.Context, listID string, q ItemQuery) ([]TodoItem, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return nil, fmt.Errorf("%w: list_id is required", ErrInvalidInput)
	}
	q.SortBy = normalizeSortField(q.SortBy)
	if strings.ToLower(q.Order) == OrderDesc {
		q.Order = OrderDesc
	} else {
		q.Order = OrderAsc
	}
	return s.store.QueryItems(ctx, listID, q)
}

// UpdateItem applies only provided fields and refreshes updated_at. Tags
// provided are deduplicated before persisting.
func (s *ItemService) UpdateItem(ctx context.Context, itemID, listID string, upd ItemUpdate) (TodoItem, error) {
	itemID = strings.TrimSpace(itemID)
	listID = strings.TrimSpace(listID)
	if itemID == "" || listID == "" {
		return TodoItem{}, fmt.Errorf("%w: item_id and list_id are required", ErrInvalidInput)
	}
	if upd.Title != nil {
		title, err := validateTitle(*upd.Title)
		if err != nil {
			return TodoItem{}, err
		}
		upd.Title = &title
	}
	if err := validateDescription(upd.Description); err != nil {
		return TodoItem{}, err
	}
	if upd.Tags != nil {
		upd.Tags = dedupeTags(upd.Tags)
	}
	return s.store.UpdateItem(ctx, itemID, listID, upd, s.now().UTC().Truncate(time.Millisecond))
}

// DeleteItem removes the item and reports whether one was removed.
func (s *ItemService) DeleteItem(ctx context.Context, itemID, listID string) (bool, error) {
	itemID = strings.TrimSpace(itemID)
	listID = strings.TrimSpace(listID)
	if itemID == "" || listID == "" {
		return false, fmt.Errorf("%w: item_id and list_id are required", ErrInvalidInput)
	}
	return s.store.DeleteItem(ctx, itemID, listID)
}

func normalizeSortField(field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case SortByDueDate, SortByStatus, SortByTitle, SortByPriority, SortByCreatedAt:
		return strings.ToLower(strings.TrimSpace(field))
	default:
		return SortByDueDate
	}
}
