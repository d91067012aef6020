package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tasknest.org/internal/audit"
	"tasknest.org/internal/auth"
	"tasknest.org/internal/todo"
)

type itemRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	DueDate     *string  `json:"due_date"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	Tags        []string `json:"tags"`
	MediaURL    *string  `json:"media_url"`
}

type itemCollectionResponse struct {
	Items []todo.TodoItem `json:"items"`
	Count int             `json:"count"`
}

func (a *API) dispatchItemsCollection(w http.ResponseWriter, r *http.Request, listID string) {
	switch r.Method {
	case http.MethodGet:
		a.listItems(w, r, listID)
	case http.MethodPost:
		a.createItem(w, r, listID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) dispatchItem(w http.ResponseWriter, r *http.Request, listID, itemID string) {
	switch r.Method {
	case http.MethodGet:
		a.getItem(w, r, listID, itemID)
	case http.MethodPut:
		a.updateItem(w, r, listID, itemID)
	case http.MethodDelete:
		a.deleteItem(w, r, listID, itemID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listItems(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	query := todo.ItemQuery{
		SortBy: r.URL.Query().Get("sort_by"),
		Order:  r.URL.Query().Get("order"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := todo.ParseStatus(raw)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("due_date")); raw != "" {
		due, err := parseDueDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		query.DueBefore = &due
	}

	items, err := a.workspace.ListItems(r.Context(), userID, listID, query)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeEnvelope(w, r, http.StatusOK, "items retrieved", itemCollectionResponse{
		Items: items,
		Count: len(items),
	})
}

func (a *API) createItem(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}

	in := todo.ItemCreate{
		Title:       *req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		MediaURL:    req.MediaURL,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		in.DueDate = &due
	}
	if req.Status != nil {
		status, err := todo.ParseStatus(*req.Status)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		in.Status = &status
	}
	if req.Priority != nil {
		priority, err := todo.ParsePriority(*req.Priority)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		in.Priority = &priority
	}

	item, err := a.workspace.CreateItem(r.Context(), userID, listID, in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.item.create", map[string]any{
		"list_id": listID,
		"item_id": item.ItemID,
	})

	w.Header().Set("Location", "/api/lists/"+listID+"/items/"+item.ItemID)
	writeEnvelope(w, r, http.StatusCreated, "item created", item)
}

func (a *API) getItem(w http.ResponseWriter, r *http.Request, listID, itemID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	item, err := a.workspace.GetItem(r.Context(), userID, listID, itemID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeEnvelope(w, r, http.StatusOK, "item retrieved", item)
}

func (a *API) updateItem(w http.ResponseWriter, r *http.Request, listID, itemID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := todo.ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		MediaURL:    req.MediaURL,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd.DueDate = &due
	}
	if req.Status != nil {
		status, err := todo.ParseStatus(*req.Status)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		upd.Status = &status
	}
	if req.Priority != nil {
		priority, err := todo.ParsePriority(*req.Priority)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		upd.Priority = &priority
	}

	item, err := a.workspace.UpdateItem(r.Context(), userID, listID, itemID, upd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.item.update", map[string]any{
		"list_id": listID,
		"item_id": itemID,
	})

	writeEnvelope(w, r, http.StatusOK, "item updated", item)
}

func (a *API) deleteItem(w http.ResponseWriter, r *http.Request, listID, itemID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := a.workspace.DeleteItem(r.Context(), userID, listID, itemID); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.item.delete", map[string]any{
		"list_id": listID,
		"item_id": itemID,
	})

	writeEnvelope(w, r, http.StatusOK, "item deleted", nil)
}

// parseDueDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("due_date must be RFC 3339 or YYYY-MM-DD")
}
