package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/ncobase/shopconsole/concurrency/worker"
	"github.com/ncobase/shopconsole/ctxutil"
	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/ncobase/shopconsole/logging/logger"
)

// ExportTaskName registers the running export in the worker pool
const ExportTaskName = "backup.telegram.export"

// Controller is the start/stop/clear/status state machine around the exporter
type Controller struct {
	store    repository.StatusStore
	keys     structs.Keys
	pool     *worker.Pool
	exporter *Exporter

	mu      sync.Mutex
	pending *worker.Handle
}

// NewController creates a controller launching exporter on pool
func NewController(store repository.StatusStore, keys structs.Keys, pool *worker.Pool, exporter *Exporter) *Controller {
	return &Controller{
		store:    store,
		keys:     keys,
		pool:     pool,
		exporter: exporter,
	}
}

// Start resets the job state and launches an export without waiting for it
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, _, err := c.store.Get(ctx, c.keys.Status)
	if err != nil {
		return err
	}
	if structs.Status(status) == structs.StatusRunning {
		return structs.ErrConflict
	}
	if _, ok := c.pool.Active(ExportTaskName); ok {
		return structs.ErrConflict
	}

	if err := c.store.Delete(ctx, c.keys.All()...); err != nil {
		return err
	}

	runCtx := ctxutil.Detach(ctx)
	h, err := c.pool.Go(ExportTaskName, func(taskCtx context.Context) error {
		// keep request values such as the trace id, follow the pool for cancellation
		return c.exporter.Run(mergeValues(taskCtx, runCtx))
	})
	if errors.Is(err, worker.ErrTaskRunning) {
		return structs.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("submit export: %w", err)
	}
	c.pending = h

	logger.Info(ctx, "Background Telegram users export started.")
	return nil
}

// Pending returns the handle of the last launched export
func (c *Controller) Pending() *worker.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Stop marks the job stopped and releases the lock, whether or not an
// export is running. The exporter notices at its next page.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.store.Set(ctx, c.keys.Status, string(structs.StatusStopped)); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, c.keys.Lock, c.keys.Error); err != nil {
		return err
	}
	logger.Info(ctx, "Background Telegram users export stop requested.")
	return nil
}

// Clear removes the job state and, best effort, the exported file
func (c *Controller) Clear(ctx context.Context) error {
	filePath, found, err := c.store.Get(ctx, c.keys.FilePath)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, c.keys.All()...); err != nil {
		return err
	}

	if found && filePath != "" {
		if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "Failed to remove export file", "file", filePath, "error", err)
		}
	}
	return nil
}

// Status reads the job snapshot. A store failure yields an error snapshot
// marked Degraded instead of an error.
func (c *Controller) Status(ctx context.Context) *structs.Snapshot {
	values, err := c.store.GetMultiple(ctx, c.keys.Snapshot()...)
	if err != nil {
		msg := fmt.Sprintf("failed to read export status: %v", err)
		return &structs.Snapshot{
			Status:   structs.StatusError,
			Error:    &msg,
			Degraded: true,
		}
	}

	snap := structs.IdleSnapshot()
	if v := values[0]; v != nil && *v != "" {
		snap.Status = structs.Status(*v)
	}
	snap.Progress = parseCount(values[1])
	snap.Total = parseCount(values[2])
	snap.FilePath = values[3]
	snap.Error = values[4]
	return snap
}

func parseCount(v *string) int64 {
	if v == nil {
		return 0
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// valueCtx takes cancellation from one context and values from another
type valueCtx struct {
	context.Context
	values context.Context
}

func (v valueCtx) Value(key any) any {
	if val := v.Context.Value(key); val != nil {
		return val
	}
	return v.values.Value(key)
}

func mergeValues(cancel, values context.Context) context.Context {
	return valueCtx{Context: cancel, values: values}
}
