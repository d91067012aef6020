package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"tasknest.org/internal/access"
	"tasknest.org/internal/auth"
	"tasknest.org/internal/cache"
	"tasknest.org/internal/todo"
	"tasknest.org/internal/workspace"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type respEnvelope[T any] struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Warning   string `json:"warning"`
	RequestID string `json:"request_id"`
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("TASKNEST_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	accessSvc, err := access.NewService(access.NewInMemory())
	if err != nil {
		t.Fatalf("build access service: %v", err)
	}
	lists := todo.NewListService(todo.NewInMemoryLists())
	items := todo.NewItemService(todo.NewInMemoryItems())
	facade := workspace.New(accessSvc, lists, items,
		workspace.WithListCache(cache.NewTTL[todo.TodoList](time.Minute)))

	api := New(ReadyProbe{}, "test", accessSvc, facade)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) delete(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodDelete, path, nil, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

// signUp registers the given address, returning the user record, the tokens
// minted at registration and a ready-made Authorization header.
func (c *apiClient) signUp(email string) (access.User, tokenResponse, map[string]string) {
	c.t.Helper()

	resp := c.post("/api/auth/register", map[string]any{
		"email":     email,
		"password":  "passw0rd1",
		"full_name": "Test User",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: unexpected status %d", email, resp.StatusCode)
	}
	reg := decode[respEnvelope[tokenResponse]](c.t, resp)
	if reg.Data.AccessToken == "" {
		c.t.Fatalf("empty access token for %s", email)
	}

	headers := map[string]string{"Authorization": "Bearer " + reg.Data.AccessToken}
	return reg.Data.User, reg.Data, headers
}

func (c *apiClient) createList(headers map[string]string, title string) todo.TodoList {
	c.t.Helper()
	resp := c.post("/api/lists", map[string]any{"title": title}, headers)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("create list: unexpected status %d", resp.StatusCode)
	}
	env := decode[respEnvelope[todo.TodoList]](c.t, resp)
	return env.Data
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/register", map[string]any{
		"email":     "Alice@Example.com",
		"password":  "passw0rd1",
		"full_name": "Alice",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	reg := decode[respEnvelope[tokenResponse]](t, resp)
	if reg.Data.User.ID <= 0 {
		t.Fatalf("expected positive user id, got %d", reg.Data.User.ID)
	}
	if reg.Data.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", reg.Data.User.Email)
	}
	if reg.Data.AccessToken == "" || reg.Data.RefreshToken == "" {
		t.Fatalf("expected token pair minted at registration")
	}
	if reg.RequestID == "" {
		t.Fatalf("expected request id in envelope")
	}

	// Same address again, different casing.
	resp = api.post("/api/auth/register", map[string]any{
		"email":     "ALICE@example.com",
		"password":  "passw0rd1",
		"full_name": "Alice",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}

	resp = api.post("/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "passw0rd1",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	login := decode[respEnvelope[tokenResponse]](t, resp)
	if login.Data.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", login.Data.TokenType)
	}
	if login.Data.RefreshToken == "" {
		t.Fatalf("expected refresh token issued")
	}

	resp = api.post("/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}

	resp = api.post("/api/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "passw0rd1",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", resp.StatusCode)
	}
}

func TestRegisterTokenAuthorizesImmediately(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/register", map[string]any{
		"email":     "fresh@example.com",
		"password":  "passw0rd1",
		"full_name": "Fresh",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	reg := decode[respEnvelope[tokenResponse]](t, resp)
	if reg.Data.AccessToken == "" {
		t.Fatalf("register response carries no access token")
	}

	// No separate login; the registration token must work as-is.
	headers := map[string]string{"Authorization": "Bearer " + reg.Data.AccessToken}
	resp = api.post("/api/lists", map[string]any{"title": "First"}, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating list with registration token, got %d", resp.StatusCode)
	}
	list := decode[respEnvelope[todo.TodoList]](t, resp)
	if list.Data.ListID == "" {
		t.Fatalf("expected created list in response")
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"bad email", map[string]any{"email": "not-an-email", "password": "passw0rd1", "full_name": "A"}},
		{"short password", map[string]any{"email": "a@b.io", "password": "p1", "full_name": "A"}},
		{"digitless password", map[string]any{"email": "a@b.io", "password": "passwords", "full_name": "A"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := api.post("/api/auth/register", tc.body, nil)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestRefreshRotation(t *testing.T) {
	api := newTestAPI(t)
	_, tokens, _ := api.signUp("refresh@example.com")

	resp := api.post("/api/auth/refresh", map[string]any{
		"refresh_token": tokens.RefreshToken,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	refreshed := decode[respEnvelope[tokenResponse]](t, resp)
	if refreshed.Data.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}

	// The consumed token must be rejected on reuse.
	resp = api.post("/api/auth/refresh", map[string]any{
		"refresh_token": tokens.RefreshToken,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for reused refresh token, got %d", resp.StatusCode)
	}

	// The rotated token still works.
	resp = api.post("/api/auth/refresh", map[string]any{
		"refresh_token": refreshed.Data.RefreshToken,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for rotated token, got %d", resp.StatusCode)
	}
}

func TestListLifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, _, headers := api.signUp("owner@example.com")

	resp := api.post("/api/lists", map[string]any{
		"title":       "Groceries",
		"description": "weekly shop",
	}, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc == "" {
		t.Fatalf("expected Location header")
	}
	created := decode[respEnvelope[todo.TodoList]](t, resp)
	if len(created.Data.ListID) != len("list_")+8 {
		t.Fatalf("unexpected list id %q", created.Data.ListID)
	}
	if created.Warning != "" {
		t.Fatalf("unexpected warning: %s", created.Warning)
	}
	listID := created.Data.ListID

	resp = api.get("/api/lists/"+listID, nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[respEnvelope[todo.TodoList]](t, resp)
	if got.Data.Title != "Groceries" {
		t.Fatalf("unexpected title %q", got.Data.Title)
	}

	resp = api.get("/api/lists", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	all := decode[respEnvelope[listCollectionResponse]](t, resp)
	if all.Data.Count != 1 {
		t.Fatalf("expected 1 list, got %d", all.Data.Count)
	}

	resp = api.put("/api/lists/"+listID, map[string]any{"title": "Groceries v2"}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decode[respEnvelope[todo.TodoList]](t, resp)
	if updated.Data.Title != "Groceries v2" {
		t.Fatalf("unexpected title after update: %q", updated.Data.Title)
	}

	resp = api.put("/api/lists/"+listID, map[string]any{}, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty update, got %d", resp.StatusCode)
	}

	resp = api.delete("/api/lists/"+listID, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = api.get("/api/lists/"+listID, nil, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}

	resp = api.get("/api/lists", nil, headers)
	all = decode[respEnvelope[listCollectionResponse]](t, resp)
	if all.Data.Count != 0 {
		t.Fatalf("expected 0 lists after delete, got %d", all.Data.Count)
	}
}

func TestListSharingFlow(t *testing.T) {
	api := newTestAPI(t)
	_, _, ownerHeaders := api.signUp("sharer@example.com")
	guest, _, guestHeaders := api.signUp("guest@example.com")

	list := api.createList(ownerHeaders, "Shared")

	// Guest has no grant on an existing list.
	resp := api.get("/api/lists/"+list.ListID, nil, guestHeaders)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for ungranted guest, got %d", resp.StatusCode)
	}

	// Guests cannot grant either.
	resp = api.post("/api/lists/"+list.ListID+"/permissions", map[string]any{
		"user_id":   guest.ID,
		"perm_type": "EDIT",
	}, guestHeaders)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for guest self-grant, got %d", resp.StatusCode)
	}

	resp = api.post("/api/lists/"+list.ListID+"/permissions", map[string]any{
		"user_id":   guest.ID,
		"perm_type": "VIEW",
	}, ownerHeaders)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for grant, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/api/lists/"+list.ListID, nil, guestHeaders)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for viewer, got %d", resp.StatusCode)
	}

	// VIEW does not allow edits.
	resp = api.put("/api/lists/"+list.ListID, map[string]any{"title": "hijack"}, guestHeaders)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer edit, got %d", resp.StatusCode)
	}

	// Upgrade to EDIT replaces the grant.
	resp = api.post("/api/lists/"+list.ListID+"/permissions", map[string]any{
		"user_id":   guest.ID,
		"perm_type": "EDIT",
	}, ownerHeaders)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for upgrade, got %d", resp.StatusCode)
	}

	resp = api.put("/api/lists/"+list.ListID, map[string]any{"title": "renamed by editor"}, guestHeaders)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for editor, got %d", resp.StatusCode)
	}

	// The shared list shows up for the guest.
	resp = api.get("/api/lists", nil, guestHeaders)
	all := decode[respEnvelope[listCollectionResponse]](t, resp)
	if all.Data.Count != 1 {
		t.Fatalf("expected shared list visible to guest, got %d", all.Data.Count)
	}
}

func TestMissingListErrorOrder(t *testing.T) {
	api := newTestAPI(t)
	_, _, headers := api.signUp("order@example.com")

	// List lookups report existence before permissions.
	resp := api.get("/api/lists/list_deadbeef", nil, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing list, got %d", resp.StatusCode)
	}

	// Item lookups check permissions first, so a missing list reads as 403.
	resp = api.get("/api/lists/list_deadbeef/items", nil, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for items of unknown list, got %d", resp.StatusCode)
	}
}

func TestItemFlow(t *testing.T) {
	api := newTestAPI(t)
	_, _, headers := api.signUp("items@example.com")
	list := api.createList(headers, "Chores")
	base := "/api/lists/" + list.ListID + "/items"

	resp := api.post(base, map[string]any{"title": "sweep"}, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Location") == "" {
		t.Fatalf("expected Location header")
	}
	created := decode[respEnvelope[todo.TodoItem]](t, resp)
	if created.Data.Status != todo.StatusNotStarted {
		t.Fatalf("expected default status, got %q", created.Data.Status)
	}
	if created.Data.Priority != todo.PriorityMedium {
		t.Fatalf("expected default priority, got %q", created.Data.Priority)
	}
	itemID := created.Data.ItemID

	resp = api.post(base, map[string]any{
		"title":    "mop",
		"status":   "In Progress",
		"priority": "High",
		"due_date": "2026-09-01",
		"tags":     []string{"home", "home", "floor"},
	}, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	second := decode[respEnvelope[todo.TodoItem]](t, resp)
	if len(second.Data.Tags) != 2 {
		t.Fatalf("expected deduped tags, got %v", second.Data.Tags)
	}

	// Filter by status.
	resp = api.get(base, url.Values{"status": {"In Progress"}}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	filtered := decode[respEnvelope[itemCollectionResponse]](t, resp)
	if filtered.Data.Count != 1 || filtered.Data.Items[0].Title != "mop" {
		t.Fatalf("unexpected filter result: %+v", filtered.Data)
	}

	// Due-date cutoff excludes undated items.
	resp = api.get(base, url.Values{"due_date": {"2026-12-31"}}, headers)
	byDue := decode[respEnvelope[itemCollectionResponse]](t, resp)
	if byDue.Data.Count != 1 {
		t.Fatalf("expected 1 dated item, got %d", byDue.Data.Count)
	}

	// Sort by title descending.
	resp = api.get(base, url.Values{"sort_by": {"title"}, "order": {"desc"}}, headers)
	sorted := decode[respEnvelope[itemCollectionResponse]](t, resp)
	if sorted.Data.Count != 2 || sorted.Data.Items[0].Title != "sweep" {
		t.Fatalf("unexpected sort result: %+v", sorted.Data)
	}

	// Partial update.
	resp = api.put(base+"/"+itemID, map[string]any{"status": "Completed"}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decode[respEnvelope[todo.TodoItem]](t, resp)
	if updated.Data.Status != todo.StatusCompleted {
		t.Fatalf("expected Completed, got %q", updated.Data.Status)
	}
	if updated.Data.Title != "sweep" {
		t.Fatalf("update must not touch other fields, got title %q", updated.Data.Title)
	}

	resp = api.get(base+"/"+itemID, nil, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = api.delete(base+"/"+itemID, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp = api.delete(base+"/"+itemID, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for double delete, got %d", resp.StatusCode)
	}
}

func TestItemValidation(t *testing.T) {
	api := newTestAPI(t)
	_, _, headers := api.signUp("validation@example.com")
	list := api.createList(headers, "Strict")
	base := "/api/lists/" + list.ListID + "/items"

	resp := api.post(base, map[string]any{"title": "   "}, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank title, got %d", resp.StatusCode)
	}

	resp = api.post(base, map[string]any{"title": "x", "status": "Done"}, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}

	resp = api.get(base, url.Values{"due_date": {"next tuesday"}}, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed due_date, got %d", resp.StatusCode)
	}

	resp = api.post(base, map[string]any{"title": "x", "bogus": true}, headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/lists", map[string]any{"title": "nope"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	env := decode[respEnvelope[any]](t, resp)
	if env.Message == "" {
		t.Fatalf("expected error message in envelope")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	_, _, headers := api.signUp("methods@example.com")

	resp := api.delete("/api/lists", headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") == "" {
		t.Fatalf("expected Allow header")
	}
}

func TestPublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}
