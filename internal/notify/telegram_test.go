package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	methods []string
	bodies  []string
	fail    bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.methods = append(f.methods, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
	f.bodies = append(f.bodies, string(body))
	fail := f.fail
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
		return
	}
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
}

func newNotifier(t *testing.T, api *fakeAPI, sendFile bool) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	n, err := NewTelegram(TelegramOptions{Token: "123:abc", ChatID: 42, SendFile: sendFile, APIURL: srv.URL})
	require.NoError(t, err)
	return n
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telegram-users-backup-1.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"userId":1}]`), 0o644))
	return path
}

func TestNewTelegramNotConfigured(t *testing.T) {
	_, err := NewTelegram(TelegramOptions{Token: "123:abc"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewTelegram(TelegramOptions{ChatID: 1})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestExportCompletedMessageOnly(t *testing.T) {
	api := &fakeAPI{}
	n := newNotifier(t, api, false)

	require.NoError(t, n.ExportCompleted(context.Background(), writeExport(t), 7))

	require.Equal(t, []string{"sendMessage"}, api.methods)
	assert.Contains(t, api.bodies[0], "7 users")
	assert.Contains(t, api.bodies[0], "telegram-users-backup-1.json")
}

func TestExportCompletedWithFile(t *testing.T) {
	api := &fakeAPI{}
	n := newNotifier(t, api, true)

	require.NoError(t, n.ExportCompleted(context.Background(), writeExport(t), 1))

	require.Equal(t, []string{"sendMessage", "sendDocument"}, api.methods)
	assert.Contains(t, api.bodies[1], `[{"userId":1}]`)
}

func TestExportCompletedMissingFile(t *testing.T) {
	api := &fakeAPI{}
	n := newNotifier(t, api, true)

	err := n.ExportCompleted(context.Background(), filepath.Join(t.TempDir(), "gone.json"), 1)
	assert.Error(t, err)
	assert.Equal(t, []string{"sendMessage"}, api.methods)
}

func TestExportCompletedAPIError(t *testing.T) {
	api := &fakeAPI{fail: true}
	n := newNotifier(t, api, true)

	err := n.ExportCompleted(context.Background(), writeExport(t), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message")
}
