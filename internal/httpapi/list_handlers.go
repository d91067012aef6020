package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"tasknest.org/internal/access"
	"tasknest.org/internal/audit"
	"tasknest.org/internal/auth"
	"tasknest.org/internal/todo"
)

type createListRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type updateListRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type grantRequest struct {
	UserID   int64  `json:"user_id"`
	PermType string `json:"perm_type"`
}

type listCollectionResponse struct {
	Lists []todo.TodoList `json:"lists"`
	Count int             `json:"count"`
}

func (a *API) handleListsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLists(w, r)
	case http.MethodPost:
		a.createList(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleListResource routes /api/lists/{id}[/items[/{item_id}]] and
// /api/lists/{id}/permissions.
func (a *API) handleListResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/lists/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	segments := strings.Split(path, "/")

	switch {
	case len(segments) == 1:
		a.dispatchList(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "items":
		a.dispatchItemsCollection(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "permissions":
		a.dispatchPermissions(w, r, segments[0])
	case len(segments) == 3 && segments[1] == "items":
		a.dispatchItem(w, r, segments[0], segments[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) dispatchList(w http.ResponseWriter, r *http.Request, listID string) {
	switch r.Method {
	case http.MethodGet:
		a.getList(w, r, listID)
	case http.MethodPut:
		a.updateList(w, r, listID)
	case http.MethodDelete:
		a.deleteList(w, r, listID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) dispatchPermissions(w http.ResponseWriter, r *http.Request, listID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.grantPermission(w, r, listID)
}

func (a *API) listLists(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	lists, err := a.workspace.ListForUser(r.Context(), userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeEnvelope(w, r, http.StatusOK, "lists retrieved", listCollectionResponse{
		Lists: lists,
		Count: len(lists),
	})
}

func (a *API) createList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	list, warn, err := a.workspace.CreateList(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.list.create", map[string]any{
		"list_id": list.ListID,
	})

	var warning string
	if warn != nil {
		warning = warn.Message()
	}
	w.Header().Set("Location", "/api/lists/"+list.ListID)
	writeEnvelopeWarn(w, r, http.StatusCreated, "list created", list, warning)
}

func (a *API) getList(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	list, err := a.workspace.GetList(r.Context(), userID, listID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeEnvelope(w, r, http.StatusOK, "list retrieved", list)
}

func (a *API) updateList(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil && req.Description == nil {
		writeError(w, r, http.StatusBadRequest, "no fields to update")
		return
	}

	list, err := a.workspace.UpdateList(r.Context(), userID, listID, todo.ListUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.list.update", map[string]any{
		"list_id": listID,
	})

	writeEnvelope(w, r, http.StatusOK, "list updated", list)
}

func (a *API) deleteList(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	warn, err := a.workspace.DeleteList(r.Context(), userID, listID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.list.delete", map[string]any{
		"list_id": listID,
	})

	var warning string
	if warn != nil {
		warning = warn.Message()
	}
	writeEnvelopeWarn(w, r, http.StatusOK, "list deleted", nil, warning)
}

func (a *API) grantPermission(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	permType, err := access.ParsePermType(req.PermType)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	perm, err := a.workspace.GrantListAccess(r.Context(), userID, listID, strconv.FormatInt(req.UserID, 10), permType)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "todo.list.grant", map[string]any{
		"list_id":    listID,
		"grantee_id": req.UserID,
		"perm_type":  string(permType),
	})

	writeEnvelope(w, r, http.StatusCreated, "permission granted", perm)
}
