package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/provider/memory"
	"github.com/unkn0wn-root/blogcas/service"
	"github.com/unkn0wn-root/blogcas/store/pebble"
)

type fixture struct {
	h   http.Handler
	clk *clock.Mock
	ann int64
	bob int64
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	st, err := pebble.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	c, err := blogcas.New(blogcas.Options{Namespace: "http", Provider: memory.New(clk), Clock: clk})
	require.NoError(t, err)

	svc, err := service.New(service.Deps{Store: st, Cache: c, Clock: clk})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	ann, err := svc.Users.Create(context.Background(), service.UserInput{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	bob, err := svc.Users.Create(context.Background(), service.UserInput{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	return &fixture{h: New(svc, opts), clk: clk, ann: ann.ID, bob: bob.ID}
}

type reply struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

func (f *fixture) do(t *testing.T, method, path string, user int64, body any, header ...string) reply {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != 0 {
		req.Header.Set(HeaderUserID, strconv.FormatInt(user, 10))
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)

	out := reply{Code: rr.Code, Header: rr.Header()}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out.Body), rr.Body.String())
	}
	return out
}

func data(t *testing.T, r reply) map[string]any {
	t.Helper()
	d, ok := r.Body["data"].(map[string]any)
	require.True(t, ok, "no data object in %v", r.Body)
	return d
}

func (f *fixture) createPost(t *testing.T, owner int64) (string, string) {
	t.Helper()
	r := f.do(t, http.MethodPost, "/api/posts", owner, map[string]any{
		"title":   "First post",
		"content": "Some content that is long enough.",
		"status":  "published",
	})
	require.Equal(t, http.StatusCreated, r.Code, r.Body)
	d := data(t, r)
	id := strconv.FormatInt(int64(d["id"].(float64)), 10)
	return id, d["etag"].(string)
}

func TestCreateAndGetPost(t *testing.T) {
	f := newFixture(t, Options{})
	id, tok := f.createPost(t, f.ann)
	require.NotEmpty(t, tok)

	r := f.do(t, http.MethodGet, "/api/posts/"+id, 0, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, `"`+tok+`"`, r.Header.Get("ETag"))
	post := data(t, r)["post"].(map[string]any)
	assert.Equal(t, tok, post["etag"])
	assert.Equal(t, "First post", post["title"])
}

func TestStaleIfMatchConflicts(t *testing.T) {
	f := newFixture(t, Options{})
	id, tok := f.createPost(t, f.ann)

	r := f.do(t, http.MethodPut, "/api/posts/"+id, f.ann, map[string]any{"title": "Second title"}, "If-Match", `"`+tok+`"`)
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	fresh := data(t, r)["etag"].(string)
	assert.NotEqual(t, tok, fresh)
	assert.Equal(t, `"`+fresh+`"`, r.Header.Get("ETag"))

	r = f.do(t, http.MethodPut, "/api/posts/"+id, f.ann, map[string]any{"title": "Third title", "etag": tok})
	require.Equal(t, http.StatusConflict, r.Code)
	assert.Equal(t, conflictMessage, r.Body["message"])
	assert.Contains(t, r.Body["errors"], "etag")

	// the header wins over the body
	r = f.do(t, http.MethodPut, "/api/posts/"+id, f.ann, map[string]any{"title": "Third title", "etag": tok}, "If-Match", fresh)
	assert.Equal(t, http.StatusOK, r.Code, r.Body)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.do(t, http.MethodPost, "/api/posts", f.ann, map[string]any{"title": "x", "content": "short"})
	require.Equal(t, http.StatusUnprocessableEntity, r.Code)
	errs := r.Body["errors"].(map[string]any)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "content")
}

func TestDuplicateEmail(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.do(t, http.MethodPost, "/api/users", 0, map[string]any{"name": "Another Ann", "email": "ann@example.com"})
	require.Equal(t, http.StatusUnprocessableEntity, r.Code)
	assert.Contains(t, r.Body["errors"], "email")
}

func TestForbiddenAndNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	id, tok := f.createPost(t, f.ann)

	r := f.do(t, http.MethodPut, "/api/posts/"+id, f.bob, map[string]any{"title": "Hijacked", "etag": tok})
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = f.do(t, http.MethodDelete, "/api/posts/"+id, 0, nil)
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = f.do(t, http.MethodGet, "/api/posts/9999", 0, nil)
	assert.Equal(t, http.StatusNotFound, r.Code)

	r = f.do(t, http.MethodGet, "/api/users/9999", 0, nil)
	assert.Equal(t, http.StatusNotFound, r.Code)
}

func TestDraftHiddenFromOthers(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.do(t, http.MethodPost, "/api/posts", f.ann, map[string]any{
		"title":   "Work in progress",
		"content": "Not ready for anyone else.",
		"status":  "draft",
	})
	require.Equal(t, http.StatusCreated, r.Code, r.Body)
	id := strconv.FormatInt(int64(data(t, r)["id"].(float64)), 10)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/posts/"+id, f.bob, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/posts/"+id, f.ann, nil).Code)
}

func TestDeleteWithToken(t *testing.T) {
	f := newFixture(t, Options{})
	id, tok := f.createPost(t, f.ann)

	r := f.do(t, http.MethodDelete, "/api/posts/"+id, f.ann, nil, "If-Match", "W/\""+tok+"\"")
	require.Equal(t, http.StatusNoContent, r.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/posts/"+id, 0, nil).Code)
}

func TestCommentFlow(t *testing.T) {
	f := newFixture(t, Options{})
	id, _ := f.createPost(t, f.ann)

	r := f.do(t, http.MethodPost, "/api/posts/"+id+"/comments", f.bob, map[string]any{"content": "Nice post!"})
	require.Equal(t, http.StatusCreated, r.Code, r.Body)
	c := data(t, r)
	cid := strconv.FormatInt(int64(c["id"].(float64)), 10)
	tok := c["etag"].(string)

	r = f.do(t, http.MethodPut, "/api/comments/"+cid, f.bob, map[string]any{"content": "Nice post, edited.", "etag": tok})
	require.Equal(t, http.StatusOK, r.Code, r.Body)

	r = f.do(t, http.MethodPut, "/api/comments/"+cid, f.bob, map[string]any{"content": "Stale edit attempt", "etag": tok})
	assert.Equal(t, http.StatusConflict, r.Code)

	r = f.do(t, http.MethodGet, "/api/posts/"+id+"/comments", 0, nil)
	require.Equal(t, http.StatusOK, r.Code)
	list := r.Body["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Nice post, edited.", list[0].(map[string]any)["content"])
}

func TestCommentEditCannotChangeStatus(t *testing.T) {
	f := newFixture(t, Options{})
	id, _ := f.createPost(t, f.ann)

	r := f.do(t, http.MethodPost, "/api/posts/"+id+"/comments", f.bob, map[string]any{"content": "Buy cheap watches"})
	require.Equal(t, http.StatusCreated, r.Code, r.Body)
	cid := strconv.FormatInt(int64(data(t, r)["id"].(float64)), 10)

	f.clk.Add(time.Second)
	r = f.do(t, http.MethodPost, "/api/comments/"+cid+"/moderate", f.ann, map[string]any{"action": "flag"})
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	tok := data(t, r)["etag"].(string)

	f.clk.Add(time.Second)
	r = f.do(t, http.MethodPut, "/api/comments/"+cid, f.bob, map[string]any{
		"content": "Just a friendly comment",
		"status":  "approved",
		"etag":    tok,
	})
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	d := data(t, r)
	assert.Equal(t, "Just a friendly comment", d["content"])
	assert.Equal(t, "flagged", d["status"])
}

func TestListAndDashboard(t *testing.T) {
	f := newFixture(t, Options{})
	f.createPost(t, f.ann)

	r := f.do(t, http.MethodGet, "/api/posts?per_page=5", 0, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.EqualValues(t, 1, r.Body["total"])
	assert.EqualValues(t, 5, r.Body["per_page"])

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/dashboard", 0, nil).Code)
	r = f.do(t, http.MethodGet, "/api/dashboard", f.ann, nil)
	require.Equal(t, http.StatusOK, r.Code)
	stats := data(t, r)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["total_posts"])
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewBufferString("{not json"))
	req.Header.Set(HeaderUserID, strconv.FormatInt(f.ann, 10))
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	r := f.do(t, http.MethodGet, "/api/posts", 0, nil, HeaderUserID, "abc")
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RPS: 0.001, Burst: 1})
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/posts", f.ann, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/api/posts", f.ann, nil).Code)
	// other callers have their own budget
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/posts", f.bob, nil).Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "ok", r.Body["status"])
}
