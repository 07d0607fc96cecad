package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/api"
	"kanban/internal/storage"
	"kanban/internal/task"
)

const userID = "a3f1c9e4-7c8b-4b1a-9f9d-12c3e8b45a21"

func newServer(t *testing.T) http.Handler {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, nil)
}

func do(t *testing.T, h http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateReturnsCreated(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/tasks", `{"title":"write","status":"TODO","order":100}`, userID)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env api.Envelope[task.Task]
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, api.TaskCreated, env.Message)
	assert.Equal(t, api.TypeSuccess, env.Type)
	assert.Equal(t, "write", env.Data.Title)
	assert.NotEmpty(t, env.Data.ID)
}

func TestMissingUserHeaderIsUnauthorized(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/tasks", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body api.Error
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, api.UnauthorizedAccess, body.Message)
	assert.Equal(t, api.TypeError, body.Type)
}

func TestMalformedUserHeader(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/tasks", "", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidPayload(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/tasks", `{"title":"","status":"TODO"}`, userID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body api.Error
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, api.InvalidTaskData, body.Message)
	assert.Contains(t, body.Errors, "title")

	rec = do(t, h, http.MethodPost, "/api/tasks", `{not json`, userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownTaskIsNotFound(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPut, "/api/tasks/55", `{"title":"x","status":"TODO"}`, userID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks/55", "", userID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusPatchAndReorder(t *testing.T) {
	h := newServer(t)
	var ids []string
	for _, title := range []string{"a", "b"} {
		rec := do(t, h, http.MethodPost, "/api/tasks", `{"title":"`+title+`","status":"TODO"}`, userID)
		require.Equal(t, http.StatusCreated, rec.Code)
		var env api.Envelope[task.Task]
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
		ids = append(ids, env.Data.ID)
	}

	rec := do(t, h, http.MethodPatch, "/api/tasks/"+ids[0]+"/status", `{"status":"DOING"}`, userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/tasks/"+ids[0]+"/status", `{"status":"LATER"}`, userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/tasks/reorder", `{"taskIds":["`+ids[1]+`"],"status":"TODO"}`, userID)
	require.Equal(t, http.StatusOK, rec.Code)
	var lane api.Envelope[[]task.Task]
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &lane))
	require.Len(t, lane.Data, 1)
	assert.Equal(t, 0, lane.Data[0].Order)

	rec = do(t, h, http.MethodDelete, "/api/tasks/"+ids[1], "", userID)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newServer(t)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "", "").Code)
}
