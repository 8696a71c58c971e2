package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"menu-service/db"
	"menu-service/migrations"
	"menu-service/models"
	"menu-service/services"
)

// node mirrors the wire shape of a menu node.
type node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
	Children []node  `json:"children"`
	Parent   *node   `json:"parent"`
}

type detail struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Depth      int    `json:"depth"`
	ParentName string `json:"parentName"`
}

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	d, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, db.Migrate(context.Background(), d, migrations.FS, nil))

	store := services.NewMenuStore(d)
	handler := NewRouter(store, store, zap.NewNop(), []string{"http://localhost:3000"}).Setup()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, body string) (int, []byte) {
	ts.t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(ts.t, err)
	if resp.StatusCode != http.StatusNoContent {
		assert.Equal(ts.t, "application/json", resp.Header.Get("Content-Type"))
	}
	return resp.StatusCode, buf.Bytes()
}

func (ts *testServer) create(name string, parent *string) node {
	ts.t.Helper()
	body := map[string]any{"name": name}
	if parent != nil {
		body["parentId"] = *parent
	}
	raw, _ := json.Marshal(body)
	status, resp := ts.do(http.MethodPost, "/menus", string(raw))
	require.Equal(ts.t, http.StatusOK, status, string(resp))
	var n node
	require.NoError(ts.t, json.Unmarshal(resp, &n))
	return n
}

func (ts *testServer) list() []node {
	ts.t.Helper()
	status, resp := ts.do(http.MethodGet, "/menus", "")
	require.Equal(ts.t, http.StatusOK, status)
	var out []node
	require.NoError(ts.t, json.Unmarshal(resp, &out))
	return out
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestCreateRoot(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(http.MethodPost, "/menus", `{"name":"A"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"parentId":null`)

	var created node
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "A", created.Name)

	roots := ts.list()
	require.Len(t, roots, 1)
	assert.Equal(t, "A", roots[0].Name)
	assert.NotNil(t, roots[0].Children)
	assert.Empty(t, roots[0].Children)

	_, raw := ts.do(http.MethodGet, "/menus", "")
	assert.Contains(t, string(raw), `"children":[]`)
}

func TestCreateChild(t *testing.T) {
	ts := newTestServer(t)
	root := ts.create("A", nil)
	child := ts.create("B", &root.ID)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	roots := ts.list()
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "B", roots[0].Children[0].Name)
	assert.Empty(t, roots[0].Children[0].Children)
}

func TestCreate_EmptyParentMeansRoot(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`{"name":"a","parentId":""}`, `{"name":"b","parentId":null}`, `{"name":"c","extra":1}`} {
		status, resp := ts.do(http.MethodPost, "/menus", body)
		require.Equal(t, http.StatusOK, status, string(resp))
		var n node
		require.NoError(t, json.Unmarshal(resp, &n))
		assert.Nil(t, n.ParentID, body)
	}
	assert.Len(t, ts.list(), 3)
}

func TestCreate_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		kind string
	}{
		{"missing name", `{}`, "BadRequest"},
		{"empty name", `{"name":""}`, "BadRequest"},
		{"malformed json", `{"name":`, "BadRequest"},
		{"empty body", ``, "BadRequest"},
		{"name not string", `{"name":5}`, "BadRequest"},
		{"parent too long", `{"name":"x","parentId":"` + strings.Repeat("a", 65) + `"}`, "BadRequest"},
		{"unknown parent", `{"name":"X","parentId":"does-not-exist"}`, "InvalidParent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(http.MethodPost, "/menus", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			e := decodeError(t, body)
			assert.Equal(t, tt.kind, e.Error)
			assert.NotEmpty(t, e.Message)
		})
	}
	assert.Empty(t, ts.list())
}

func TestGetMenu_WithParentAndChildren(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)
	ts.create("C", &b.ID)

	status, body := ts.do(http.MethodGet, "/menus/"+b.ID, "")
	require.Equal(t, http.StatusOK, status)
	var got node
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "B", got.Name)
	require.NotNil(t, got.Parent)
	assert.Equal(t, a.ID, got.Parent.ID)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "C", got.Children[0].Name)

	status, body = ts.do(http.MethodGet, "/menus/"+a.ID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"parent":null`)

	status, body = ts.do(http.MethodGet, "/menus/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NotFound", decodeError(t, body).Error)
}

func TestDetailView(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)
	c := ts.create("C", &b.ID)

	status, body := ts.do(http.MethodGet, "/menus/"+c.ID+"/specific", "")
	require.Equal(t, http.StatusOK, status)
	var d detail
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, detail{ID: c.ID, Name: "C", Depth: 2, ParentName: "B"}, d)

	status, body = ts.do(http.MethodGet, "/menus/"+a.ID+"/specific", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, 0, d.Depth)
	assert.Equal(t, "", d.ParentName)
}

func TestRejectCycle(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)
	c := ts.create("C", &b.ID)
	before := ts.list()

	status, body := ts.do(http.MethodPut, "/menus/"+a.ID, `{"parentId":"`+c.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WouldCycle", decodeError(t, body).Error)

	status, body = ts.do(http.MethodPut, "/menus/"+a.ID, `{"parentId":"`+a.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "InvalidParent", decodeError(t, body).Error)

	assert.Equal(t, before, ts.list())
}

func TestRenamePreservesStructure(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)
	c := ts.create("C", &b.ID)

	status, body := ts.do(http.MethodPut, "/menus/"+b.ID, `{"name":"B2"}`)
	require.Equal(t, http.StatusOK, status, string(body))

	roots := ts.list()
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	renamed := roots[0].Children[0]
	assert.Equal(t, b.ID, renamed.ID)
	assert.Equal(t, "B2", renamed.Name)
	require.Len(t, renamed.Children, 1)
	assert.Equal(t, c.ID, renamed.Children[0].ID)
}

func TestUpdate_MoveToRoot(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)

	for _, body := range []string{`{"parentId":null}`, `{"parentId":""}`} {
		status, resp := ts.do(http.MethodPut, "/menus/"+b.ID, body)
		require.Equal(t, http.StatusOK, status, string(resp))
		var n node
		require.NoError(t, json.Unmarshal(resp, &n))
		assert.Nil(t, n.ParentID)
		assert.Equal(t, "B", n.Name)

		// put it back for the next shape
		status, _ = ts.do(http.MethodPut, "/menus/"+b.ID, `{"parentId":"`+a.ID+`"}`)
		require.Equal(t, http.StatusOK, status)
	}
}

func TestUpdate_Errors(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
		kind   string
	}{
		{"unknown id", "nope", `{"name":"x"}`, http.StatusNotFound, "NotFound"},
		{"empty name", a.ID, `{"name":""}`, http.StatusBadRequest, "BadRequest"},
		{"null name", a.ID, `{"name":null}`, http.StatusBadRequest, "BadRequest"},
		{"nothing to update", a.ID, `{}`, http.StatusBadRequest, "BadRequest"},
		{"unknown parent", a.ID, `{"parentId":"missing"}`, http.StatusBadRequest, "InvalidParent"},
		{"malformed", a.ID, `not json`, http.StatusBadRequest, "BadRequest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(http.MethodPut, "/menus/"+tt.id, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, decodeError(t, body).Error)
		})
	}
}

func TestUpdate_EditorAliases(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)

	status, body := ts.do(http.MethodPut, "/menus/"+b.ID,
		`{"selectedMenuId":"`+b.ID+`","selectedMenuName":"Renamed","parentMenuName":"A"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var n node
	require.NoError(t, json.Unmarshal(body, &n))
	assert.Equal(t, "Renamed", n.Name)
	require.NotNil(t, n.ParentID)
	assert.Equal(t, a.ID, *n.ParentID)

	// root node: the editor sends an empty parent name
	status, body = ts.do(http.MethodPut, "/menus/"+a.ID,
		`{"selectedMenuId":"`+a.ID+`","selectedMenuName":"Top","parentMenuName":""}`)
	require.Equal(t, http.StatusOK, status, string(body))

	tests := []struct {
		name string
		body string
	}{
		{"id mismatch", `{"selectedMenuId":"` + a.ID + `","selectedMenuName":"x"}`},
		{"parent rename attempt", `{"selectedMenuId":"` + b.ID + `","selectedMenuName":"x","parentMenuName":"New Parent"}`},
		{"name conflict", `{"name":"one","selectedMenuName":"two"}`},
		{"aliases without change", `{"selectedMenuId":"` + b.ID + `","parentMenuName":"Top"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(http.MethodPut, "/menus/"+b.ID, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "BadRequest", decodeError(t, body).Error)
		})
	}

	status, body = ts.do(http.MethodGet, "/menus/"+b.ID+"/specific", "")
	require.Equal(t, http.StatusOK, status)
	var d detail
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, "Renamed", d.Name)
	assert.Equal(t, "Top", d.ParentName)
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("A", nil)
	b := ts.create("B", &a.ID)

	status, body := ts.do(http.MethodDelete, "/menus/"+a.ID, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Conflict", decodeError(t, body).Error)

	status, body = ts.do(http.MethodDelete, "/menus/"+b.ID, "")
	require.Equal(t, http.StatusOK, status)
	var deleted node
	require.NoError(t, json.Unmarshal(body, &deleted))
	assert.Equal(t, b.ID, deleted.ID)

	status, _ = ts.do(http.MethodDelete, "/menus/"+b.ID, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(http.MethodDelete, "/menus/"+a.ID, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, ts.list())
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))

	status, body = ts.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ready"}`, string(body))
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReady_StoreDown(t *testing.T) {
	handler := NewRouter(nil, downPinger{}, zap.NewNop(), nil).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/menus", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

type failingStore struct{ MenuStore }

func (failingStore) FindRootForest(context.Context) ([]*models.MenuTree, error) {
	return nil, &services.Error{Kind: services.KindInternal, Message: "load forest", Err: errors.New("db down")}
}

func TestInternalErrorHidesCause(t *testing.T) {
	handler := NewRouter(failingStore{}, downPinger{}, zap.NewNop(), nil).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menus", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec.Body.Bytes())
	assert.Equal(t, "Internal", e.Error)
	assert.NotContains(t, e.Message, "db down")
}

func TestResolveUpdate_ParentMenuName(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *string
	}{
		{"absent", `{"name":"x"}`, nil},
		{"empty for root", `{"name":"x","parentMenuName":""}`, strPtr("")},
		{"null treated as root", `{"name":"x","parentMenuName":null}`, strPtr("")},
		{"named parent", `{"selectedMenuName":"x","parentMenuName":"A"}`, strPtr("A")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateMenuRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			patch, err := resolveUpdate("m1", req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, patch.ExpectParentName)
		})
	}
}

func strPtr(s string) *string { return &s }
