package data

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/shopconsole/data/config"
	"github.com/ncobase/shopconsole/data/connection"
	"github.com/ncobase/shopconsole/data/metrics"
	"github.com/redis/go-redis/v9"
)

// Data represents the data layer implementation
type Data struct {
	rc        *redis.Client
	mongo     *connection.MongoManager
	collector metrics.Collector
}

// Option function type for configuring Data
type Option func(*Data)

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(collector metrics.Collector) Option {
	return func(d *Data) {
		if collector != nil {
			d.collector = collector
		}
	}
}

// New connects Redis and MongoDB and returns the data layer with its cleanup
func New(cfg *config.Config, opts ...Option) (*Data, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("data configuration is nil")
	}

	d := &Data{collector: metrics.NoOpCollector{}}
	for _, opt := range opts {
		opt(d)
	}

	rc, err := connection.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	rc.AddHook(metrics.NewRedisHook(d.collector))
	d.rc = rc

	mm, err := connection.NewMongoManager(cfg.MongoDB)
	if err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	d.mongo = mm

	cleanup := func() {
		_ = d.Close()
	}
	return d, cleanup, nil
}

// NewWithClients builds the data layer from existing clients
func NewWithClients(rc *redis.Client, mm *connection.MongoManager, opts ...Option) *Data {
	d := &Data{rc: rc, mongo: mm, collector: metrics.NoOpCollector{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Redis returns the redis client
func (d *Data) Redis() *redis.Client {
	return d.rc
}

// Mongo returns the mongodb manager
func (d *Data) Mongo() *connection.MongoManager {
	return d.mongo
}

// Collector returns the metrics collector
func (d *Data) Collector() metrics.Collector {
	return d.collector
}

// Close closes every connection
func (d *Data) Close() error {
	var errs []error
	if d.rc != nil {
		if err := d.rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.mongo.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
