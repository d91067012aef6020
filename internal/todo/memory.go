package todo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryLists implements ListStore with in-process concurrency safety.
// Used by handler tests and local development without a document store.
type InMemoryLists struct {
	mu    sync.RWMutex
	lists map[string]TodoList
}

// NewInMemoryLists creates an empty list store.
func NewInMemoryLists() *InMemoryLists {
	return &InMemoryLists{lists: make(map[string]TodoList)}
}

func (s *InMemoryLists) InsertList(ctx context.Context, list *TodoList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list.ListID] = *list
	return nil
}

func (s *InMemoryLists) FindList(ctx context.Context, listID string) (TodoList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.lists[listID]
	if !ok {
		return TodoList{}, ErrNotFound
	}
	return list, nil
}

func (s *InMemoryLists) UpdateList(ctx context.Context, listID string, upd ListUpdate, updatedAt time.Time) (TodoList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.lists[listID]
	if !ok {
		return TodoList{}, ErrNotFound
	}
	if upd.Title != nil {
		list.Title = *upd.Title
	}
	if upd.Description != nil {
		list.Description = upd.Description
	}
	list.UpdatedAt = updatedAt
	s.lists[listID] = list
	return list, nil
}

func (s *InMemoryLists) DeleteList(ctx context.Context, listID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[listID]; !ok {
		return false, nil
	}
	delete(s.lists, listID)
	return true, nil
}

var _ ListStore = (*InMemoryLists)(nil)

// InMemoryItems implements ItemStore with in-process concurrency safety.
type InMemoryItems struct {
	mu    sync.RWMutex
	items map[string]TodoItem // key: listID/itemID
}

// NewInMemoryItems creates an empty item store.
func NewInMemoryItems() *InMemoryItems {
	return &InMemoryItems{items: make(map[string]TodoItem)}
}

func itemKey(listID, itemID string) string {
	return listID + "/" + itemID
}

func (s *InMemoryItems) InsertItem(ctx context.Context, item *TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemKey(item.ListID, item.ItemID)] = *item
	return nil
}

func (s *InMemoryItems) FindItem(ctx context.Context, itemID, listID string) (TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemKey(listID, itemID)]
	if !ok {
		return TodoItem{}, ErrNotFound
	}
	return item, nil
}

func (s *InMemoryItems) QueryItems(ctx context.Context, listID string, q ItemQuery) ([]TodoItem, error) {
	s.mu.RLock()
	out := make([]TodoItem, 0)
	for _, item := range s.items {
		if item.ListID != listID {
			continue
		}
		if q.Status != nil && item.Status != *q.Status {
			continue
		}
		if q.DueBefore != nil {
			if item.DueDate == nil || item.DueDate.After(*q.DueBefore) {
				continue
			}
		}
		out = append(out, item)
	}
	s.mu.RUnlock()

	sortItems(out, q.SortBy, q.Order)
	return out, nil
}

func (s *InMemoryItems) UpdateItem(ctx context.Context, itemID, listID string, upd ItemUpdate, updatedAt time.Time) (TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := itemKey(listID, itemID)
	item, ok := s.items[key]
	if !ok {
		return TodoItem{}, ErrNotFound
	}
	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.Description != nil {
		item.Description = upd.Description
	}
	if upd.DueDate != nil {
		item.DueDate = upd.DueDate
	}
	if upd.Status != nil {
		item.Status = *upd.Status
	}
	if upd.Priority != nil {
		item.Priority = *upd.Priority
	}
	if upd.Tags != nil {
		item.Tags = upd.Tags
	}
	if upd.MediaURL != nil {
		item.MediaURL = upd.MediaURL
	}
	item.UpdatedAt = updatedAt
	s.items[key] = item
	return item, nil
}

func (s *InMemoryItems) DeleteItem(ctx context.Context, itemID, listID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := itemKey(listID, itemID)
	if _, ok := s.items[key]; !ok {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

var _ ItemStore = (*InMemoryItems)(nil)

// sortItems matches the document store's collation: strings compare
// lexicographically, and an absent due date sorts before any value.
func sortItems(items []TodoItem, sortBy, order string) {
	desc := order == OrderDesc
	sort.SliceStable(items, func(i, j int) bool {
		less := itemLess(items[i], items[j], sortBy)
		if desc {
			return itemLess(items[j], items[i], sortBy)
		}
		return less
	})
}

func itemLess(a, b TodoItem, sortBy string) bool {
	switch sortBy {
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status)) < 0
	case SortByTitle:
		return strings.Compare(a.Title, b.Title) < 0
	case SortByPriority:
		return strings.Compare(string(a.Priority), string(b.Priority)) < 0
	case SortByCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	default: // due_date
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return false
		case a.DueDate == nil:
			return true
		case b.DueDate == nil:
			return false
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	}
}
