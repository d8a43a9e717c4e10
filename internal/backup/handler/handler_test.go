package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/ncobase/shopconsole/concurrency/worker"
	"github.com/ncobase/shopconsole/ecode"
	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"github.com/ncobase/shopconsole/internal/backup/data/repository/repositorytest"
	"github.com/ncobase/shopconsole/internal/backup/service"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/ncobase/shopconsole/net/resp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type fixture struct {
	mr     *miniredis.Miniredis
	keys   structs.Keys
	users  *repositorytest.Users
	ctrl   *service.Controller
	dir    string
	engine *gin.Engine
}

func setup(t *testing.T, maxImportBytes int64) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rc.Close() })
	store, err := repository.NewStatusStore(rc, nil)
	require.NoError(t, err)

	users := repositorytest.NewUsers(
		bson.D{{Key: "_id", Value: "a"}, {Key: "username", Value: "first"}, {Key: "joinedAt", Value: int64(1)}},
		bson.D{{Key: "_id", Value: "b"}, {Key: "username", Value: "second"}, {Key: "joinedAt", Value: int64(2)}},
	)

	pool := worker.NewPool(&worker.Config{MaxWorkers: 1, QueueSize: 2})
	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.Stop(ctx)
	})

	dir := filepath.Join(t.TempDir(), "backups")
	keys := structs.NewKeys("handler_test")
	exporter := service.NewExporter(store, users, keys, service.ExporterConfig{Dir: dir, PageSize: 1})
	ctrl := service.NewController(store, keys, pool, exporter)
	h := New(ctrl, service.NewImporter(users, false), dir, maxImportBytes)

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api"))

	return &fixture{mr: mr, keys: keys, users: users, ctrl: ctrl, dir: dir, engine: engine}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetStatusIdle(t *testing.T) {
	f := setup(t, 0)

	w := f.do(http.MethodGet, "/api/backup/telegram", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"idle","progress":0,"total":0,"filePath":null,"error":null}`, w.Body.String())
}

func TestGetStatusDegraded(t *testing.T) {
	f := setup(t, 0)
	f.mr.Close()

	w := f.do(http.MethodGet, "/api/backup/telegram", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	snap := decode[structs.Snapshot](t, w)
	assert.Equal(t, structs.StatusError, snap.Status)
	require.NotNil(t, snap.Error)
}

func TestStartExport(t *testing.T) {
	f := setup(t, 0)

	w := f.do(http.MethodPost, "/api/backup/telegram", `{"action":"start"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]string](t, w)["message"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.ctrl.Pending().Wait(ctx))

	snap := decode[structs.Snapshot](t, f.do(http.MethodGet, "/api/backup/telegram", ""))
	assert.Equal(t, structs.StatusCompleted, snap.Status)
	assert.Equal(t, int64(2), snap.Total)
	require.NotNil(t, snap.FilePath)

	name := filepath.Base(*snap.FilePath)
	dl := f.do(http.MethodGet, "/api/download?file="+name, "")
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, fmt.Sprintf("attachment; filename=%q", name), dl.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/json", dl.Header().Get("Content-Type"))

	records := decode[[]map[string]any](t, dl)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0]["username"])
	assert.NotContains(t, records[0], "_id")
}

func TestStartWhileRunning(t *testing.T) {
	f := setup(t, 0)
	require.NoError(t, f.mr.Set(f.keys.Status, "running"))

	w := f.do(http.MethodPost, "/api/backup/telegram", `{"action":"start"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	body := decode[resp.Exception](t, w)
	assert.Equal(t, ecode.ExportRunning, body.Code)
	assert.Equal(t, "Export is already running.", body.Reason)
}

func TestStopAndClear(t *testing.T) {
	f := setup(t, 0)

	w := f.do(http.MethodPost, "/api/backup/telegram", `{"action":"stop"}`)
	require.Equal(t, http.StatusOK, w.Code)
	status, err := f.mr.Get(f.keys.Status)
	require.NoError(t, err)
	assert.Equal(t, "stopped", status)

	w = f.do(http.MethodPost, "/api/backup/telegram", `{"action":"clear"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.mr.Exists(f.keys.Status))
}

func TestInvalidAction(t *testing.T) {
	f := setup(t, 0)

	for _, body := range []string{`{"action":"restart"}`, `{}`, `not json`} {
		w := f.do(http.MethodPost, "/api/backup/telegram", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid action", decode[resp.Exception](t, w).Reason, body)
	}
}

func TestStoreUnavailable(t *testing.T) {
	f := setup(t, 0)
	f.mr.Close()

	w := f.do(http.MethodPost, "/api/backup/telegram", `{"action":"stop"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ecode.StoreUnreachable, decode[resp.Exception](t, w).Code)
}

func TestImport(t *testing.T) {
	for _, target := range []string{"/api/backup/telegram?action=import", "/api/backup/telegram/import"} {
		t.Run(target, func(t *testing.T) {
			f := setup(t, 0)

			w := f.do(http.MethodPost, target, `[{"username":"x","joinedAt":5}]`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			res := decode[structs.ImportResult](t, w)
			assert.Equal(t, 1, res.Count)
			assert.NotEmpty(t, res.Message)
			assert.Len(t, f.users.Docs(), 1)
		})
	}
}

func TestImportInvalid(t *testing.T) {
	f := setup(t, 0)

	w := f.do(http.MethodPost, "/api/backup/telegram/import", `{"username":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[resp.Exception](t, w)
	assert.Equal(t, ecode.ImportInvalid, body.Code)
	assert.Equal(t, structs.ErrImportShapeInvalid.Error(), body.Reason)
	assert.Len(t, f.users.Docs(), 2)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, structs.ErrImportShapeInvalid.Error(), raw["error"])
}

func TestImportTooLarge(t *testing.T) {
	f := setup(t, 16)

	w := f.do(http.MethodPost, "/api/backup/telegram/import", `[{"username":"a very long name"}]`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Len(t, f.users.Docs(), 2)
}

func TestDownloadErrors(t *testing.T) {
	f := setup(t, 0)
	require.NoError(t, os.MkdirAll(f.dir, 0o755))

	tests := []struct {
		target string
		want   int
	}{
		{"/api/download", http.StatusBadRequest},
		{"/api/download?file=", http.StatusBadRequest},
		{"/api/download?file=..%2Fsecret.json", http.StatusForbidden},
		{"/api/download?file=..%2F..%2Fetc%2Fpasswd", http.StatusForbidden},
		{"/api/download?file=missing.json", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := f.do(http.MethodGet, tt.target, "")
		assert.Equal(t, tt.want, w.Code, tt.target)
	}
}
