package service

import (
	"time"

	"github.com/ncobase/shopconsole/concurrency/worker"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backup pipeline series. A nil *Metrics records nothing.
type Metrics struct {
	runs            *prometheus.CounterVec
	exported        prometheus.Counter
	pageDuration    prometheus.Histogram
	imported        prometheus.Counter
	importsRejected prometheus.Counter
}

// NewMetrics registers the backup series on reg
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "export_runs_total",
			Help:      "Finished export runs by outcome.",
		}, []string{"outcome"}),
		exported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "exported_records_total",
			Help:      "Records written to export files.",
		}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "export_page_duration_seconds",
			Help:      "Time to fetch and write one export page.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		imported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "imported_records_total",
			Help:      "Records inserted by imports.",
		}),
		importsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "import_rejected_total",
			Help:      "Import payloads rejected before any change.",
		}),
	}
	reg.MustRegister(m.runs, m.exported, m.pageDuration, m.imported, m.importsRejected)
	return m
}

// RegisterPool exposes the worker pool counters as gauges
func RegisterPool(reg prometheus.Registerer, namespace string, pool *worker.Pool) {
	for _, name := range []string{"active_workers", "pending_tasks", "completed_tasks", "failed_tasks"} {
		name := name
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      name,
			Help:      "Worker pool " + name + ".",
		}, func() float64 {
			return float64(pool.GetMetrics()[name])
		}))
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "busy",
		Help:      "1 when every worker is taken or the queue is full.",
	}, func() float64 {
		if pool.IsBusy() {
			return 1
		}
		return 0
	}))
}

func (m *Metrics) run(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) page(records int, d time.Duration) {
	if m == nil {
		return
	}
	m.exported.Add(float64(records))
	m.pageDuration.Observe(d.Seconds())
}

func (m *Metrics) importDone(records int) {
	if m == nil {
		return
	}
	m.imported.Add(float64(records))
}

func (m *Metrics) importRejected() {
	if m == nil {
		return
	}
	m.importsRejected.Inc()
}
