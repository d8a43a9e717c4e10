package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/shopconsole/ctxutil"
	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/ncobase/shopconsole/logging/observes"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultPageSize = 5000
	DefaultLockTTL  = time.Hour

	filePrefix = "telegram-users-backup-"
	tmpSuffix  = ".tmp"
)

// ExporterConfig configures an Exporter
type ExporterConfig struct {
	Dir      string
	PageSize int
	LockTTL  time.Duration
}

// Exporter streams the bot users collection into a JSON array file
type Exporter struct {
	store    repository.StatusStore
	users    repository.UserRepository
	keys     structs.Keys
	dir      string
	pageSize int64
	lockTTL  time.Duration
	notifier Notifier
	metrics  *Metrics
	now      func() time.Time
}

// NewExporter creates an exporter writing into cfg.Dir
func NewExporter(store repository.StatusStore, users repository.UserRepository, keys structs.Keys, cfg ExporterConfig) *Exporter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	return &Exporter{
		store:    store,
		users:    users,
		keys:     keys,
		dir:      cfg.Dir,
		pageSize: int64(cfg.PageSize),
		lockTTL:  cfg.LockTTL,
		now:      time.Now,
	}
}

// SetNotifier sets the notifier told about completed exports
func (e *Exporter) SetNotifier(n Notifier) { e.notifier = n }

// SetMetrics sets the metrics recorder
func (e *Exporter) SetMetrics(m *Metrics) { e.metrics = m }

// Run performs one export. It returns nil without doing anything when
// another export holds the lock. Failures are recorded in the status store
// before being returned.
func (e *Exporter) Run(ctx context.Context) error {
	token := uuid.NewString()
	acquired, err := e.store.SetIfAbsent(ctx, e.keys.Lock, token, e.lockTTL)
	if err != nil {
		logger.Error(ctx, "Background TG users export failed to acquire lock", "error", err)
		e.metrics.run("error")
		return err
	}
	if !acquired {
		logger.Info(ctx, "Background Telegram export process is already running.")
		return nil
	}

	ctx, span := observes.StartSpan(ctx, "backup.export")
	filePath, total, stack, err := e.safeExport(ctx)
	observes.EndSpan(span, err)

	// the run context may be cancelled by now, final writes must still land
	fctx, cancel := ctxutil.WithAsyncContext(ctx, 10*time.Second)
	defer cancel()

	if err != nil {
		e.fail(fctx, token, err, stack)
		return err
	}

	e.complete(fctx, token, filePath, total)
	return nil
}

// safeExport runs export, turning a panic into an error
func (e *Exporter) safeExport(ctx context.Context) (filePath string, total int64, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export panicked: %v", r)
			stack = string(debug.Stack())
		}
	}()
	filePath, total, err = e.export(ctx)
	return filePath, total, "", err
}

func (e *Exporter) export(ctx context.Context) (string, int64, error) {
	total, err := e.users.Count(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("count users: %w", err)
	}

	if err := e.store.Set(ctx, e.keys.Status, string(structs.StatusRunning)); err != nil {
		return "", 0, err
	}
	if err := e.store.Set(ctx, e.keys.Total, total); err != nil {
		return "", 0, err
	}
	if err := e.store.Set(ctx, e.keys.Progress, 0); err != nil {
		return "", 0, err
	}

	dir, err := filepath.Abs(e.dir)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create backup directory: %w", err)
	}

	finalPath := filepath.Join(dir, fmt.Sprintf("%s%d.json", filePrefix, e.now().UnixMilli()))
	tmpPath := finalPath + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create export file: %w", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := e.writeAll(ctx, f, total); err != nil {
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", 0, fmt.Errorf("rename export file: %w", err)
	}
	renamed = true

	return finalPath, total, nil
}

// writeAll writes the JSON array page by page, polling the status before
// each page
func (e *Exporter) writeAll(ctx context.Context, f *os.File, total int64) error {
	w := bufio.NewWriter(f)
	if _, err := w.WriteString("[\n"); err != nil {
		return err
	}

	first := true
	for skip := int64(0); skip < total; skip += e.pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		status, _, err := e.store.Get(ctx, e.keys.Status)
		if err != nil {
			return err
		}
		if structs.Status(status) != structs.StatusRunning {
			return structs.ErrUserCancelled
		}

		start := time.Now()
		n, err := e.writePage(ctx, w, skip, &first)
		if err != nil {
			return err
		}
		e.metrics.page(n, time.Since(start))

		if err := e.store.Set(ctx, e.keys.Progress, min(skip+int64(n), total)); err != nil {
			return err
		}
	}

	if _, err := w.WriteString("\n]"); err != nil {
		return err
	}
	return w.Flush()
}

func (e *Exporter) writePage(ctx context.Context, w *bufio.Writer, skip int64, first *bool) (int, error) {
	ctx, span := observes.StartSpan(ctx, "backup.export.page", attribute.Int64("skip", skip))
	page, err := e.users.FindPage(ctx, skip, e.pageSize)
	if err != nil {
		observes.EndSpan(span, err)
		return 0, fmt.Errorf("fetch users page at %d: %w", skip, err)
	}

	for _, doc := range page {
		b, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			observes.EndSpan(span, err)
			return 0, fmt.Errorf("encode user: %w", err)
		}
		if !*first {
			if _, err := w.WriteString(",\n"); err != nil {
				observes.EndSpan(span, err)
				return 0, err
			}
		}
		if _, err := w.Write(b); err != nil {
			observes.EndSpan(span, err)
			return 0, err
		}
		*first = false
	}

	err = w.Flush()
	span.SetAttributes(attribute.Int("records", len(page)))
	observes.EndSpan(span, err)
	return len(page), err
}

func (e *Exporter) complete(ctx context.Context, token, filePath string, total int64) {
	if err := e.store.Set(ctx, e.keys.FilePath, filePath); err != nil {
		logger.Error(ctx, "Failed to record export file path", "error", err)
	}
	if err := e.store.Set(ctx, e.keys.Status, string(structs.StatusCompleted)); err != nil {
		logger.Error(ctx, "Failed to record export completion", "error", err)
	}
	e.releaseLock(ctx, token)

	logger.Info(ctx, "Telegram users background export completed.",
		logger.EventLevelKey, logger.EventLevelSuccess,
		"totalUsers", total,
		"filePath", filePath,
	)
	e.metrics.run("completed")

	if e.notifier != nil {
		if err := e.notifier.ExportCompleted(ctx, filePath, total); err != nil {
			logger.Warn(ctx, "Failed to notify about completed export", "error", err)
		}
	}
}

// fail records err in the status store. A stop request keeps its stopped
// status and no error message, everything else ends as error.
func (e *Exporter) fail(ctx context.Context, token string, err error, stack string) {
	cancelled := errors.Is(err, structs.ErrUserCancelled)

	keepStopped := false
	if cancelled {
		status, _, gerr := e.store.Get(ctx, e.keys.Status)
		keepStopped = gerr == nil && structs.Status(status) == structs.StatusStopped
	}
	// error is only recorded alongside status=error
	if !keepStopped {
		if serr := e.store.Set(ctx, e.keys.Status, string(structs.StatusError)); serr != nil {
			logger.Error(ctx, "Failed to record export failure", "error", serr)
		}
		if serr := e.store.Set(ctx, e.keys.Error, err.Error()); serr != nil {
			logger.Error(ctx, "Failed to record export error message", "error", serr)
		}
	}
	e.releaseLock(ctx, token)

	if stack == "" {
		stack = string(debug.Stack())
	}
	logger.Error(ctx, fmt.Sprintf("Background TG users export failed: %v", err), "stack", stack)

	if cancelled {
		e.metrics.run("cancelled")
	} else {
		e.metrics.run("error")
	}
}

func (e *Exporter) releaseLock(ctx context.Context, token string) {
	if _, err := e.store.CompareAndDelete(ctx, e.keys.Lock, token); err != nil {
		logger.Warn(ctx, "Failed to release export lock", "error", err)
	}
}
