package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ncobase/shopconsole/concurrency/worker"
	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"github.com/ncobase/shopconsole/internal/backup/data/repository/repositorytest"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const testPrefix = "test_export_tg"

// recordingStore remembers every progress value written
type recordingStore struct {
	repository.StatusStore
	key string

	mu       sync.Mutex
	progress []int64
}

func (s *recordingStore) Set(ctx context.Context, key string, value any) error {
	if key == s.key {
		s.mu.Lock()
		switch v := value.(type) {
		case int:
			s.progress = append(s.progress, int64(v))
		case int64:
			s.progress = append(s.progress, v)
		}
		s.mu.Unlock()
	}
	return s.StatusStore.Set(ctx, key, value)
}

func (s *recordingStore) values() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.progress...)
}

type env struct {
	mr       *miniredis.Miniredis
	store    *recordingStore
	users    *repositorytest.Users
	keys     structs.Keys
	dir      string
	exporter *Exporter
	pool     *worker.Pool
	ctrl     *Controller
}

// newEnv seeds n users, inserted newest first so the export must sort them
func newEnv(t *testing.T, n, pageSize int) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rc.Close() })

	base, err := repository.NewStatusStore(rc, nil)
	require.NoError(t, err)

	keys := structs.NewKeys(testPrefix)
	store := &recordingStore{StatusStore: base, key: keys.Progress}

	docs := make([]bson.D, 0, n)
	for i := n - 1; i >= 0; i-- {
		docs = append(docs, bson.D{
			{Key: "_id", Value: fmt.Sprintf("oid-%d", i)},
			{Key: "userId", Value: int64(100000 + i)},
			{Key: "username", Value: fmt.Sprintf("user-%d", i)},
			{Key: "joinedAt", Value: int64(i)},
		})
	}
	users := repositorytest.NewUsers(docs...)

	dir := filepath.Join(t.TempDir(), "backups")
	exporter := NewExporter(store, users, keys, ExporterConfig{Dir: dir, PageSize: pageSize})

	pool := worker.NewPool(&worker.Config{MaxWorkers: 2, QueueSize: 4})
	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.Stop(ctx)
	})

	return &env{
		mr:       mr,
		store:    store,
		users:    users,
		keys:     keys,
		dir:      dir,
		exporter: exporter,
		pool:     pool,
		ctrl:     NewController(store, keys, pool, exporter),
	}
}

func (e *env) get(t *testing.T, key string) (string, bool) {
	t.Helper()
	if !e.mr.Exists(key) {
		return "", false
	}
	v, err := e.mr.Get(key)
	require.NoError(t, err)
	return v, true
}

// files lists the file names in the backup directory
func (e *env) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (e *env) waitPending(t *testing.T) error {
	t.Helper()
	h := e.ctrl.Pending()
	require.NotNil(t, h)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return h.Wait(ctx)
}
