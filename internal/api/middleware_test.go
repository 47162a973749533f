package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDIsGeneratedAndEchoed(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/tasks", "")
	generated := rec.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	entry := srv.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "http request", entry.Message)
	assert.Equal(t, "abc-123", entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, "/api/tasks", entry.Data["path"])
}

func TestAccessLogLevels(t *testing.T) {
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/tasks", `{"title":""}`)
	assert.Equal(t, log.WarnLevel, srv.hook.LastEntry().Level)

	do(t, srv, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, log.InfoLevel, srv.hook.LastEntry().Level)
}

func TestRecoverTurnsPanicInto500Envelope(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), withRequestID, withRecover(logger))

	rec := do(t, h, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode[struct{}](t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal server error", env.Message)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "handler panic", entry.Message)
	assert.Equal(t, "boom", entry.Data["panic"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodOptions, "/api/tasks/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	rec = do(t, srv, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticClientWithIndexFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>tasks</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), []byte("wasm"), 0o644))

	srv := newTestServer(t)
	srv = &testServer{Server: New(srv.tasks, Options{Logger: srv.log, WebDir: dir}), store: srv.store, hook: srv.hook}

	rec := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tasks")

	rec = do(t, srv, http.MethodGet, "/main.wasm", "")
	assert.Equal(t, "wasm", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/completed", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tasks")

	rec = do(t, srv, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
