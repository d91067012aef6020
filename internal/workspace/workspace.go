// Package workspace coordinates the permission store and the TODO document
// store behind a single interface. Every operation authorizes the acting
// user before touching documents, and mutations that span both stores
// surface best-effort inconsistencies as warnings rather than failures.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasknest.org/internal/access"
	"tasknest.org/internal/cache"
	"tasknest.org/internal/obs"
	"tasknest.org/internal/todo"
)

// ConsistencyWarning reports a cross-store cleanup step that failed after
// the primary mutation already committed. The primary result stands; the
// warning travels to the caller so the response can disclose it.
type ConsistencyWarning struct {
	Op     string
	ListID string
	Err    error
}

// Message renders the warning for response payloads and logs.
func (w *ConsistencyWarning) Message() string {
	switch w.Op {
	case "create_list":
		return fmt.Sprintf("list %s created but permission grant failed; access may require manual repair", w.ListID)
	case "delete_list":
		return fmt.Sprintf("list %s deleted but permission cleanup failed; stale grants may remain", w.ListID)
	default:
		return fmt.Sprintf("list %s: cross-store cleanup failed", w.ListID)
	}
}

// Facade is the single entry point the HTTP layer talks to.
type Facade struct {
	access *access.Service
	lists  *todo.ListService
	items  *todo.ItemService

	listCache *cache.TTL[todo.TodoList]
}

// Option configures optional Facade collaborators.
type Option func(*Facade)

// WithListCache enables read-through caching of list documents.
func WithListCache(c *cache.TTL[todo.TodoList]) Option {
	return func(f *Facade) { f.listCache = c }
}

// New wires a Facade over the given services.
func New(accessSvc *access.Service, lists *todo.ListService, items *todo.ItemService, opts ...Option) *Facade {
	f := &Facade{
		access: accessSvc,
		lists:  lists,
		items:  items,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateList creates the document and grants the creator EDIT access.
// A failed grant does not roll the document back; it is reported as a
// ConsistencyWarning alongside the created list.
func (f *Facade) CreateList(ctx context.Context, userID, title string, description *string) (todo.TodoList, *ConsistencyWarning, error) {
	list, err := f.lists.CreateList(ctx, userID, title, description)
	if err != nil {
		return todo.TodoList{}, nil, err
	}
	if _, err := f.access.GrantPermission(ctx, userID, list.ListID, access.PermEdit); err != nil {
		warn := &ConsistencyWarning{Op: "create_list", ListID: list.ListID, Err: err}
		f.logWarning(warn)
		return list, warn, nil
	}
	f.cacheSet(list)
	return list, nil, nil
}

// GetList returns the list if it exists and the user holds VIEW access.
// A missing list reports not found before any permission decision.
func (f *Facade) GetList(ctx context.Context, userID, listID string) (todo.TodoList, error) {
	list, err := f.findList(ctx, listID)
	if err != nil {
		return todo.TodoList{}, err
	}
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermView); err != nil {
		return todo.TodoList{}, err
	}
	return list, nil
}

// ListForUser returns every list the user holds a grant for. Grants whose
// document has since disappeared are skipped.
func (f *Facade) ListForUser(ctx context.Context, userID string) ([]todo.TodoList, error) {
	listIDs, err := f.access.ListIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]todo.TodoList, 0, len(listIDs))
	for _, listID := range listIDs {
		list, err := f.findList(ctx, listID)
		if errors.Is(err, todo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, list)
	}
	return out, nil
}

// UpdateList applies the patch if the list exists and the user holds EDIT.
func (f *Facade) UpdateList(ctx context.Context, userID, listID string, upd todo.ListUpdate) (todo.TodoList, error) {
	if _, err := f.findList(ctx, listID); err != nil {
		return todo.TodoList{}, err
	}
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermEdit); err != nil {
		return todo.TodoList{}, err
	}
	list, err := f.lists.UpdateList(ctx, listID, upd)
	if err != nil {
		return todo.TodoList{}, err
	}
	f.cacheSet(list)
	return list, nil
}

// DeleteList removes the document, then revokes every grant on the list.
// Revocation failure leaves stale grants behind and is reported as a
// ConsistencyWarning; stale grants are skipped by ListForUser.
func (f *Facade) DeleteList(ctx context.Context, userID, listID string) (*ConsistencyWarning, error) {
	if _, err := f.findList(ctx, listID); err != nil {
		return nil, err
	}
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermEdit); err != nil {
		return nil, err
	}
	deleted, err := f.lists.DeleteList(ctx, listID)
	if err != nil {
		return nil, err
	}
	f.cacheDelete(listID)
	if !deleted {
		return nil, todo.ErrNotFound
	}
	if _, err := f.access.RevokePermissionsForList(ctx, listID); err != nil {
		warn := &ConsistencyWarning{Op: "delete_list", ListID: listID, Err: err}
		f.logWarning(warn)
		return warn, nil
	}
	return nil, nil
}

// GrantListAccess gives another user a grant on the list. The grantor
// must hold EDIT access and the list must exist.
func (f *Facade) GrantListAccess(ctx context.Context, grantorID, listID, granteeID string, perm access.PermType) (access.Permission, error) {
	if _, err := f.findList(ctx, listID); err != nil {
		return access.Permission{}, err
	}
	if err := f.access.CheckPermission(ctx, grantorID, listID, access.PermEdit); err != nil {
		return access.Permission{}, err
	}
	return f.access.GrantPermission(ctx, granteeID, listID, perm)
}

// CreateItem adds an item to a list the user can edit. Items check the
// grant before list existence, so an unauthorized caller cannot probe
// which list ids exist.
func (f *Facade) CreateItem(ctx context.Context, userID, listID string, in todo.ItemCreate) (todo.TodoItem, error) {
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermEdit); err != nil {
		return todo.TodoItem{}, err
	}
	if _, err := f.findList(ctx, listID); err != nil {
		return todo.TodoItem{}, err
	}
	return f.items.CreateItem(ctx, listID, in)
}

// GetItem returns an item from a list the user can view.
func (f *Facade) GetItem(ctx context.Context, userID, listID, itemID string) (todo.TodoItem, error) {
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermView); err != nil {
		return todo.TodoItem{}, err
	}
	return f.items.GetItem(ctx, itemID, listID)
}

// ListItems returns the list's items, filtered and sorted per the query.
func (f *Facade) ListItems(ctx context.Context, userID, listID string, q todo.ItemQuery) ([]todo.TodoItem, error) {
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermView); err != nil {
		return nil, err
	}
	if _, err := f.findList(ctx, listID); err != nil {
		return nil, err
	}
	return f.items.ListItems(ctx, listID, q)
}

// UpdateItem applies the patch to an item in a list the user can edit.
func (f *Facade) UpdateItem(ctx context.Context, userID, listID, itemID string, upd todo.ItemUpdate) (todo.TodoItem, error) {
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermEdit); err != nil {
		return todo.TodoItem{}, err
	}
	return f.items.UpdateItem(ctx, itemID, listID, upd)
}

// DeleteItem removes an item from a list the user can edit.
func (f *Facade) DeleteItem(ctx context.Context, userID, listID, itemID string) error {
	if err := f.access.CheckPermission(ctx, userID, listID, access.PermEdit); err != nil {
		return err
	}
	deleted, err := f.items.DeleteItem(ctx, itemID, listID)
	if err != nil {
		return err
	}
	if !deleted {
		return todo.ErrNotFound
	}
	return nil
}

func (f *Facade) findList(ctx context.Context, listID string) (todo.TodoList, error) {
	if f.listCache != nil {
		if list, ok := f.listCache.Get(listID); ok {
			return list, nil
		}
	}
	list, err := f.lists.GetList(ctx, listID)
	if err != nil {
		return todo.TodoList{}, err
	}
	f.cacheSet(list)
	return list, nil
}

func (f *Facade) cacheSet(list todo.TodoList) {
	if f.listCache != nil {
		f.listCache.Set(list.ListID, list)
	}
}

func (f *Facade) cacheDelete(listID string) {
	if f.listCache != nil {
		f.listCache.Delete(listID)
	}
}

func (f *Facade) logWarning(w *ConsistencyWarning) {
	obs.LogRequest(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   "warn",
		"msg":     w.Message(),
		"op":      w.Op,
		"list_id": w.ListID,
		"error":   w.Err.Error(),
	})
}
