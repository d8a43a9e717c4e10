// Package backup wires the bot users export/import pipeline.
package backup

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/shopconsole/concurrency/worker"
	"github.com/ncobase/shopconsole/config"
	"github.com/ncobase/shopconsole/data"
	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"github.com/ncobase/shopconsole/internal/backup/handler"
	"github.com/ncobase/shopconsole/internal/backup/service"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/ncobase/shopconsole/logging/logger"
)

// Option configures a Module.
type Option func(*Module)

// WithNotifier sets the notifier told about completed exports.
func WithNotifier(n service.Notifier) Option {
	return func(m *Module) { m.exporter.SetNotifier(n) }
}

// WithMetrics records export and import metrics.
func WithMetrics(metrics *service.Metrics) Option {
	return func(m *Module) {
		m.exporter.SetMetrics(metrics)
		m.importer.SetMetrics(metrics)
	}
}

// Module represents the backup module.
type Module struct {
	keys     structs.Keys
	exporter *service.Exporter
	ctrl     *service.Controller
	importer *service.Importer
	handler  *handler.Handler
}

// New creates the module on top of the shared data layer.
func New(conf *config.Backup, d *data.Data, pool *worker.Pool, opts ...Option) (*Module, error) {
	store, err := repository.NewStatusStore(d.Redis(), d.Collector())
	if err != nil {
		return nil, err
	}
	users, err := repository.NewUserRepository(d.Mongo(), conf.Collection, d.Collector())
	if err != nil {
		return nil, err
	}
	return NewWithRepositories(conf, store, users, pool, opts...), nil
}

// NewWithRepositories creates the module from explicit repositories.
func NewWithRepositories(conf *config.Backup, store repository.StatusStore, users repository.UserRepository, pool *worker.Pool, opts ...Option) *Module {
	keys := structs.NewKeys(conf.KeyPrefix)
	exporter := service.NewExporter(store, users, keys, service.ExporterConfig{
		Dir:      conf.Dir,
		PageSize: conf.PageSize,
		LockTTL:  conf.LockTTL,
	})
	ctrl := service.NewController(store, keys, pool, exporter)
	importer := service.NewImporter(users, conf.ImportTransactional)

	m := &Module{
		keys:     keys,
		exporter: exporter,
		ctrl:     ctrl,
		importer: importer,
		handler:  handler.New(ctrl, importer, conf.Dir, conf.MaxImportBytes),
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info(context.Background(), "Backup module initialized",
		"dir", conf.Dir,
		"collection", conf.Collection,
		"page_size", conf.PageSize,
	)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "backup"
}

// Controller returns the export state machine.
func (m *Module) Controller() *service.Controller { return m.ctrl }

// Exporter returns the exporter, for foreground runs.
func (m *Module) Exporter() *service.Exporter { return m.exporter }

// Importer returns the importer.
func (m *Module) Importer() *service.Importer { return m.importer }

// RegisterRoutes registers HTTP routes.
func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.RegisterRoutes(r)
}
