package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/shopconsole/concurrency/worker"
	"github.com/ncobase/shopconsole/config"
	"github.com/ncobase/shopconsole/data"
	"github.com/ncobase/shopconsole/data/metrics"
	"github.com/ncobase/shopconsole/internal/backup"
	"github.com/ncobase/shopconsole/internal/backup/service"
	"github.com/ncobase/shopconsole/internal/eventlog"
	"github.com/ncobase/shopconsole/internal/notify"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/ncobase/shopconsole/logging/observes"
	"github.com/ncobase/shopconsole/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "shopconsole"

// app holds the process-wide components shared by the commands
type app struct {
	cfg      *config.Config
	data     *data.Data
	pool     *worker.Pool
	registry *prometheus.Registry
	events   *eventlog.Store
	backup   *backup.Module

	cleanups []func()
}

func bootstrap(configFile string) (a *app, err error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	logCleanup, err := logger.New(cfg.Logger)
	if err != nil {
		return a, fmt.Errorf("failed to create logger: %w", err)
	}
	a.cleanups = append(a.cleanups, logCleanup)
	logger.SetVersion(version.GetVersionInfo().Version)

	sentryOpts := cfg.Observes.Sentry
	flush, err := observes.NewSentry(&observes.SentryOptions{
		Dsn:         sentryOpts.Endpoint,
		Name:        cfg.AppName,
		Release:     sentryOpts.Release,
		Environment: sentryOpts.Environment,
		SampleRate:  sentryOpts.SampleRate,
	})
	if err != nil {
		return a, fmt.Errorf("failed to init sentry: %w", err)
	}
	a.cleanups = append(a.cleanups, flush)
	if sentryOpts.Endpoint != "" {
		logger.AddHook(observes.NewSentryHook())
	}

	tracerOpts := cfg.Observes.Tracer
	shutdownTracer, err := observes.NewTracer(&observes.TracerOption{
		URL:                tracerOpts.Endpoint,
		Name:               tracerOpts.ServiceName,
		Version:            version.Version,
		Environment:        tracerOpts.Environment,
		SamplingRate:       tracerOpts.SamplingRate,
		BatchTimeout:       tracerOpts.BatchTimeout,
		ExportTimeout:      tracerOpts.ExportTimeout,
		MaxExportBatchSize: tracerOpts.MaxExportBatchSize,
	})
	if err != nil {
		return a, fmt.Errorf("failed to init tracer: %w", err)
	}
	a.cleanups = append(a.cleanups, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d, dataCleanup, err := data.New(cfg.Data,
		data.WithMetricsCollector(metrics.NewPrometheusCollector(a.registry, metricsNamespace)),
	)
	if err != nil {
		return a, fmt.Errorf("failed to connect data layer: %w", err)
	}
	a.data = d
	a.cleanups = append(a.cleanups, dataCleanup)

	a.events = eventlog.NewStore(d.Redis(), cfg.EventLog.Key, cfg.EventLog.Limit)
	logger.AddHook(eventlog.NewHook(a.events, cfg.EventLog.Level))

	a.pool = worker.NewPool(&worker.Config{
		MaxWorkers: cfg.Worker.MaxWorkers,
		QueueSize:  cfg.Worker.QueueSize,
	})
	a.pool.Start()
	a.cleanups = append(a.cleanups, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.pool.Stop(ctx)
	})
	service.RegisterPool(a.registry, metricsNamespace, a.pool)

	opts := []backup.Option{
		backup.WithMetrics(service.NewMetrics(a.registry, metricsNamespace)),
	}
	notifier, err := notify.NewTelegram(notify.TelegramOptions{
		Token:    cfg.Telegram.Token,
		ChatID:   cfg.Telegram.AdminChatID,
		SendFile: cfg.Telegram.SendFile,
	})
	switch {
	case err == nil:
		opts = append(opts, backup.WithNotifier(notifier))
	case errors.Is(err, notify.ErrNotConfigured):
		logger.Debug(context.Background(), "Telegram notifications disabled")
	default:
		logger.Warn(context.Background(), "Telegram notifications unavailable", "error", err)
	}

	a.backup, err = backup.New(cfg.Backup, d, a.pool, opts...)
	if err != nil {
		return a, fmt.Errorf("failed to create backup module: %w", err)
	}
	return a, nil
}

// close releases resources in reverse order of creation
func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
