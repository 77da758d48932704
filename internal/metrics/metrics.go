package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediaconv/internal/dispatch"
	"mediaconv/internal/strategy"
)

const namespace = "mediaconv"

// Metrics holds the collectors for one daemon run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	jobs            *prometheus.CounterVec
	archiveFailures *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	events          *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	running         prometheus.Gauge
	workers         prometheus.Gauge
}

// New registers the mediaconv collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished conversion jobs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		archiveFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_failures_total",
			Help:      "Successful conversions whose archive step failed.",
		}, []string{"policy"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time from stability wait to archive step.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Filesystem events seen by the watcher by kind.",
		}, []string{"kind"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker.",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Jobs currently being converted.",
		}),
		workers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Size of the worker pool.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordJob counts a finished job.
func (m *Metrics) RecordJob(kind string, job *strategy.Job, result strategy.Result) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	outcome := result.Outcome.String()
	m.jobs.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(result.Duration.Seconds())
	if result.ArchiveErr != nil {
		m.archiveFailures.WithLabelValues(job.Archive().Mode.String()).Inc()
	}
}

// ObserveEvent counts one filesystem event of the given kind
// (create, remove, rename, ignored, error).
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// ObserveQueue publishes a dispatcher snapshot.
func (m *Metrics) ObserveQueue(stats dispatch.Stats) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(stats.Pending))
	m.running.Set(float64(stats.Running))
	m.workers.Set(float64(stats.Workers))
}

// Recorder adapts Metrics to the per-job recorder shape used by the watcher.
type Recorder struct {
	metrics *Metrics
	kind    string
}

// NewRecorder binds m to strategy kind.
func NewRecorder(m *Metrics, kind string) *Recorder {
	return &Recorder{metrics: m, kind: kind}
}

// Record counts the finished job.
func (r *Recorder) Record(_ context.Context, job *strategy.Job, result strategy.Result) {
	if r == nil {
		return
	}
	r.metrics.RecordJob(r.kind, job, result)
}
