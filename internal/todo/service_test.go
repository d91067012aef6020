package todo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newListFixture() (*ListService, *InMemoryLists) {
	store := NewInMemoryLists()
	return NewListService(store), store
}

func newItemFixture() (*ItemService, *InMemoryItems) {
	store := NewInMemoryItems()
	return NewItemService(store), store
}

func TestCreateListAssignsPrefixedID(t *testing.T) {
	svc, _ := newListFixture()
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "7", "Groceries", nil)
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if !strings.HasPrefix(list.ListID, "list_") || len(list.ListID) != len("list_")+8 {
		t.Fatalf("ListID = %q, want list_ prefix with 8 hex chars", list.ListID)
	}
	if !list.CreatedAt.Equal(list.UpdatedAt) {
		t.Fatalf("create must stamp equal timestamps: %v vs %v", list.CreatedAt, list.UpdatedAt)
	}
	if list.OwnerID != "7" {
		t.Fatalf("OwnerID = %q", list.OwnerID)
	}
}

func TestCreateListValidation(t *testing.T) {
	svc, _ := newListFixture()
	ctx := context.Background()

	if _, err := svc.CreateList(ctx, "", "Title", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing owner error = %v", err)
	}
	if _, err := svc.CreateList(ctx, "7", "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title error = %v", err)
	}
	long := strings.Repeat("d", 501)
	if _, err := svc.CreateList(ctx, "7", "Title", &long); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("long description error = %v", err)
	}
}

func TestUpdateListAdvancesUpdatedAt(t *testing.T) {
	current := time.Now().UTC()
	svc, _ := newListFixture()
	svc.WithClock(func() time.Time { return current })
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "7", "Before", nil)
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	current = current.Add(time.Hour)
	title := "After"
	updated, err := svc.UpdateList(ctx, list.ListID, ListUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateList: %v", err)
	}
	if updated.Title != "After" {
		t.Fatalf("Title = %q", updated.Title)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("UpdatedAt %v must advance past CreatedAt %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestDeleteListIdempotent(t *testing.T) {
	svc, _ := newListFixture()
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "7", "Temp", nil)
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	deleted, err := svc.DeleteList(ctx, list.ListID)
	if err != nil || !deleted {
		t.Fatalf("first delete = %v, %v", deleted, err)
	}
	deleted, err = svc.DeleteList(ctx, list.ListID)
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v; want false, nil", deleted, err)
	}
}

func TestCreateItemDefaults(t *testing.T) {
	svc, _ := newItemFixture()
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, "list_ab12cd34", ItemCreate{
		Title: "Sweep",
		Tags:  []string{"home", "home", " chores "},
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !strings.HasPrefix(item.ItemID, "item_") || len(item.ItemID) != len("item_")+8 {
		t.Fatalf("ItemID = %q", item.ItemID)
	}
	if item.Status != StatusNotStarted {
		t.Fatalf("default Status = %q", item.Status)
	}
	if item.Priority != PriorityMedium {
		t.Fatalf("default Priority = %q", item.Priority)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "home" || item.Tags[1] != "chores" {
		t.Fatalf("Tags = %v, want deduped and trimmed", item.Tags)
	}
}

func TestGetItemRequiresBothKeys(t *testing.T) {
	svc, _ := newItemFixture()
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, "list_ab12cd34", ItemCreate{Title: "Sweep"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if _, err := svc.GetItem(ctx, item.ItemID, "list_ab12cd34"); err != nil {
		t.Fatalf("GetItem with correct pair: %v", err)
	}
	// Same item id under a different list does not resolve.
	if _, err := svc.GetItem(ctx, item.ItemID, "list_ffffffff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong list error = %v, want ErrNotFound", err)
	}
}

func TestListItemsFilters(t *testing.T) {
	svc, _ := newItemFixture()
	ctx := context.Background()
	listID := "list_ab12cd34"

	day := func(d int) *time.Time {
		t := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	completed := StatusCompleted
	seed := []ItemCreate{
		{Title: "early", DueDate: day(1)},
		{Title: "late", DueDate: day(20)},
		{Title: "done", DueDate: day(2), Status: &completed},
		{Title: "undated"},
	}
	for _, in := range seed {
		if _, err := svc.CreateItem(ctx, listID, in); err != nil {
			t.Fatalf("CreateItem(%s): %v", in.Title, err)
		}
	}

	// Status filter.
	items, err := svc.ListItems(ctx, listID, ItemQuery{Status: &completed})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Title != "done" {
		t.Fatalf("status filter = %v", titles(items))
	}

	// Due-before filter excludes undated items and later dates.
	cutoff := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	items, err = svc.ListItems(ctx, listID, ItemQuery{DueBefore: &cutoff})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if got := titles(items); len(got) != 2 {
		t.Fatalf("due filter = %v, want early and done", got)
	}

	// Conjunction of both filters.
	items, err = svc.ListItems(ctx, listID, ItemQuery{Status: &completed, DueBefore: &cutoff})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Title != "done" {
		t.Fatalf("combined filter = %v", titles(items))
	}
}

func TestListItemsSorting(t *testing.T) {
	svc, _ := newItemFixture()
	ctx := context.Background()
	listID := "list_ab12cd34"

	day := func(d int) *time.Time {
		t := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	for _, in := range []ItemCreate{
		{Title: "b", DueDate: day(20)},
		{Title: "a", DueDate: day(1)},
		{Title: "c"},
	} {
		if _, err := svc.CreateItem(ctx, listID, in); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	// Default sort: due_date ascending, undated first.
	items, err := svc.ListItems(ctx, listID, ItemQuery{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if got := titles(items); got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("default order = %v", got)
	}

	// Descending reverses, undated last.
	items, err = svc.ListItems(ctx, listID, ItemQuery{Order: "desc"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if got := titles(items); got[0] != "b" || got[2] != "c" {
		t.Fatalf("desc order = %v", got)
	}

	// Title sort.
	items, err = svc.ListItems(ctx, listID, ItemQuery{SortBy: "title"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if got := titles(items); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("title order = %v", got)
	}

	// Unknown sort field falls back to due_date; unknown order to asc.
	items, err = svc.ListItems(ctx, listID, ItemQuery{SortBy: "nonsense", Order: "sideways"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if got := titles(items); got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("fallback order = %v", got)
	}
}

func TestUpdateItemPartial(t *testing.T) {
	svc, _ := newItemFixture()
	ctx := context.Background()
	listID := "list_ab12cd34"

	desc := "original"
	item, err := svc.CreateItem(ctx, listID, ItemCreate{Title: "Sweep", Description: &desc})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	done := StatusCompleted
	updated, err := svc.UpdateItem(ctx, item.ItemID, listID, ItemUpdate{Status: &done})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("Status = %q", updated.Status)
	}
	if updated.Title != "Sweep" || updated.Description == nil || *updated.Description != "original" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	// Tags replace wholesale when provided.
	updated, err = svc.UpdateItem(ctx, item.ItemID, listID, ItemUpdate{Tags: []string{"x", "x", "y"}})
	if err != nil {
		t.Fatalf("UpdateItem tags: %v", err)
	}
	if len(updated.Tags) != 2 {
		t.Fatalf("Tags = %v", updated.Tags)
	}

	// Invalid provided field rejects the whole update.
	bad := strings.Repeat("t", 101)
	if _, err := svc.UpdateItem(ctx, item.ItemID, listID, ItemUpdate{Title: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("invalid title error = %v", err)
	}
}

func TestDeleteItemReportsRemoval(t *testing.T) {
	svc, _ := newItemFixture()
	ctx := context.Background()
	listID := "list_ab12cd34"

	item, err := svc.CreateItem(ctx, listID, ItemCreate{Title: "Sweep"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	deleted, err := svc.DeleteItem(ctx, item.ItemID, listID)
	if err != nil || !deleted {
		t.Fatalf("first delete = %v, %v", deleted, err)
	}
	deleted, err = svc.DeleteItem(ctx, item.ItemID, listID)
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v; want false, nil", deleted, err)
	}
}

func titles(items []TodoItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}
