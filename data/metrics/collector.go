package metrics

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Collector interface for data layer metrics
type Collector interface {
	RedisCommand(command string, err error)
	MongoOperation(operation string, duration time.Duration, err error)
	HealthCheck(component string, healthy bool)
}

// NoOpCollector implements Collector with no-op methods
type NoOpCollector struct{}

func (NoOpCollector) RedisCommand(string, error)                  {}
func (NoOpCollector) MongoOperation(string, time.Duration, error) {}
func (NoOpCollector) HealthCheck(string, bool)                    {}

// PrometheusCollector records data layer metrics as prometheus series
type PrometheusCollector struct {
	redisCommands *prometheus.CounterVec
	mongoOps      *prometheus.HistogramVec
	health        *prometheus.GaugeVec
}

// NewPrometheusCollector creates a collector and registers its series on reg
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	c := &PrometheusCollector{
		redisCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "commands_total",
			Help:      "Redis commands by name and result.",
		}, []string{"command", "result"}),
		mongoOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mongo",
			Name:      "operation_duration_seconds",
			Help:      "MongoDB operation latency by operation and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_up",
			Help:      "Last health check result per component.",
		}, []string{"component"}),
	}
	reg.MustRegister(c.redisCommands, c.mongoOps, c.health)
	return c
}

// RedisCommand records Redis command metrics
func (c *PrometheusCollector) RedisCommand(command string, err error) {
	c.redisCommands.WithLabelValues(strings.ToLower(command), result(err)).Inc()
}

// MongoOperation records MongoDB operation metrics
func (c *PrometheusCollector) MongoOperation(operation string, duration time.Duration, err error) {
	c.mongoOps.WithLabelValues(operation, result(err)).Observe(duration.Seconds())
}

// HealthCheck records health check results
func (c *PrometheusCollector) HealthCheck(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	c.health.WithLabelValues(component).Set(v)
}

func result(err error) string {
	if err != nil && err != redis.Nil {
		return "error"
	}
	return "ok"
}

// RedisHook reports every command of a client to the collector
type RedisHook struct {
	collector Collector
}

// NewRedisHook creates a go-redis hook bound to c
func NewRedisHook(c Collector) *RedisHook {
	return &RedisHook{collector: c}
}

func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		h.collector.RedisCommand(cmd.Name(), err)
		return err
	}
}

func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			h.collector.RedisCommand(cmd.Name(), cmd.Err())
		}
		return err
	}
}
