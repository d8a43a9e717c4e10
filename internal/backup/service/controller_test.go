package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStatusDefaults(t *testing.T) {
	e := newEnv(t, 0, 10)

	snap := e.ctrl.Status(context.Background())
	assert.Equal(t, structs.IdleSnapshot(), snap)
}

func TestStatusParsesCounters(t *testing.T) {
	e := newEnv(t, 0, 10)
	require.NoError(t, e.mr.Set(e.keys.Status, "running"))
	require.NoError(t, e.mr.Set(e.keys.Progress, "42"))
	require.NoError(t, e.mr.Set(e.keys.Total, "not-a-number"))

	snap := e.ctrl.Status(context.Background())
	assert.Equal(t, structs.StatusRunning, snap.Status)
	assert.Equal(t, int64(42), snap.Progress)
	assert.Equal(t, int64(0), snap.Total)
	assert.Nil(t, snap.FilePath)
	assert.Nil(t, snap.Error)
	assert.False(t, snap.Degraded)
}

func TestStatusStoreDown(t *testing.T) {
	e := newEnv(t, 0, 10)
	e.mr.Close()

	snap := e.ctrl.Status(context.Background())
	assert.Equal(t, structs.StatusError, snap.Status)
	assert.True(t, snap.Degraded)
	require.NotNil(t, snap.Error)
	assert.Contains(t, *snap.Error, "failed to read export status")
}

func TestStartRunsExport(t *testing.T) {
	e := newEnv(t, 7, 3)

	require.NoError(t, e.ctrl.Start(context.Background()))
	require.NoError(t, e.waitPending(t))

	snap := e.ctrl.Status(context.Background())
	assert.Equal(t, structs.StatusCompleted, snap.Status)
	assert.Equal(t, int64(7), snap.Progress)
	assert.Equal(t, int64(7), snap.Total)
	require.NotNil(t, snap.FilePath)
	assert.FileExists(t, *snap.FilePath)
	assert.Nil(t, snap.Error)
}

func TestStartResetsPreviousRun(t *testing.T) {
	e := newEnv(t, 2, 10)
	require.NoError(t, e.mr.Set(e.keys.Status, "error"))
	require.NoError(t, e.mr.Set(e.keys.Error, "old failure"))

	require.NoError(t, e.ctrl.Start(context.Background()))
	require.NoError(t, e.waitPending(t))

	snap := e.ctrl.Status(context.Background())
	assert.Equal(t, structs.StatusCompleted, snap.Status)
	assert.Nil(t, snap.Error)
}

func TestStartConflictWhileRunning(t *testing.T) {
	e := newEnv(t, 5, 10)
	require.NoError(t, e.mr.Set(e.keys.Status, "running"))
	require.NoError(t, e.mr.Set(e.keys.Progress, "3"))

	err := e.ctrl.Start(context.Background())
	assert.ErrorIs(t, err, structs.ErrConflict)

	progress, _ := e.get(t, e.keys.Progress)
	assert.Equal(t, "3", progress, "conflicting start must not touch state")
	assert.Nil(t, e.ctrl.Pending())
}

func TestStartConflictWhileTaskActive(t *testing.T) {
	e := newEnv(t, 10, 5)

	entered := make(chan struct{})
	release := make(chan struct{})
	e.users.FindHook = func(skip int64, _ []bson.Raw) {
		if skip == 0 {
			close(entered)
			<-release
		}
	}

	require.NoError(t, e.ctrl.Start(context.Background()))
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("export did not start")
	}

	// even with the status wiped the pool still knows the task
	e.mr.Del(e.keys.Status)
	assert.ErrorIs(t, e.ctrl.Start(context.Background()), structs.ErrConflict)

	close(release)
	// the wiped status reads as a cancellation
	assert.ErrorIs(t, e.waitPending(t), structs.ErrUserCancelled)
}

func TestStopWhenIdle(t *testing.T) {
	e := newEnv(t, 0, 10)
	require.NoError(t, e.mr.Set(e.keys.Lock, "stale"))
	require.NoError(t, e.mr.Set(e.keys.Status, "error"))
	require.NoError(t, e.mr.Set(e.keys.Error, "old failure"))

	require.NoError(t, e.ctrl.Stop(context.Background()))

	status, _ := e.get(t, e.keys.Status)
	assert.Equal(t, string(structs.StatusStopped), status)
	assert.False(t, e.mr.Exists(e.keys.Lock))
	assert.False(t, e.mr.Exists(e.keys.Error))
	assert.Nil(t, e.ctrl.Status(context.Background()).Error)
}

func TestClearWhenIdle(t *testing.T) {
	e := newEnv(t, 0, 10)

	require.NoError(t, e.ctrl.Clear(context.Background()))
	assert.Equal(t, structs.IdleSnapshot(), e.ctrl.Status(context.Background()))
}

func TestClearRemovesExport(t *testing.T) {
	e := newEnv(t, 3, 10)
	require.NoError(t, e.exporter.Run(context.Background()))

	path, ok := e.get(t, e.keys.FilePath)
	require.True(t, ok)
	require.FileExists(t, path)

	require.NoError(t, e.ctrl.Clear(context.Background()))

	assert.NoFileExists(t, path)
	for _, key := range e.keys.All() {
		assert.False(t, e.mr.Exists(key), key)
	}
}

func TestClearMissingFile(t *testing.T) {
	e := newEnv(t, 0, 10)
	gone := filepath.Join(t.TempDir(), "gone.json")
	require.NoError(t, e.mr.Set(e.keys.FilePath, gone))
	require.NoError(t, e.mr.Set(e.keys.Status, "completed"))

	require.NoError(t, e.ctrl.Clear(context.Background()))

	_, err := os.Stat(gone)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, e.mr.Exists(e.keys.Status))
}

func TestClearStoreDown(t *testing.T) {
	e := newEnv(t, 0, 10)
	e.mr.Close()

	assert.ErrorIs(t, e.ctrl.Clear(context.Background()), structs.ErrStoreUnavailable)
	assert.ErrorIs(t, e.ctrl.Stop(context.Background()), structs.ErrStoreUnavailable)
	assert.ErrorIs(t, e.ctrl.Start(context.Background()), structs.ErrStoreUnavailable)
}
