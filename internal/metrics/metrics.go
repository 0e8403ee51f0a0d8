// Package metrics exposes Prometheus metrics for truncation runs and the
// reset server.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/koustreak/tablewipe/internal/truncate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tablewipe"

// Collector records truncation runs. It implements truncate.Observer and
// owns its own registry.
type Collector struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	tables         prometheus.Counter
	rowsDeleted    prometheus.Counter
	deleteDuration prometheus.Histogram
	runDuration    prometheus.Histogram

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

var _ truncate.Observer = (*Collector)(nil)

// NewCollector registers every metric on a fresh registry.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "truncate",
			Name:      "runs_total",
			Help:      "Truncation runs by outcome.",
		}, []string{"status"}),
		tables: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "truncate",
			Name:      "tables_total",
			Help:      "DELETE statements executed.",
		}),
		rowsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "truncate",
			Name:      "rows_deleted_total",
			Help:      "Rows removed across all tables.",
		}),
		deleteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "truncate",
			Name:      "delete_duration_seconds",
			Help:      "Latency of one DELETE statement.",
			Buckets:   prometheus.DefBuckets,
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "truncate",
			Name:      "run_duration_seconds",
			Help:      "Latency of a whole truncation run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
	}

	for _, m := range []prometheus.Collector{
		c.runs, c.tables, c.rowsDeleted, c.deleteDuration, c.runDuration,
		c.requestDuration, c.requestTotal,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// TableDeleted implements truncate.Observer.
func (c *Collector) TableDeleted(d truncate.Deletion) {
	c.tables.Inc()
	c.rowsDeleted.Add(float64(d.Rows))
	c.deleteDuration.Observe(d.Duration.Seconds())
}

// RunFinished implements truncate.Observer.
func (c *Collector) RunFinished(r *truncate.Report, err error) {
	c.runs.WithLabelValues(runStatus(err)).Inc()
	c.runDuration.Observe(r.Duration.Seconds())
}

func runStatus(err error) string {
	var (
		introErr *truncate.IntrospectionError
		depErr   *truncate.DependencyQueryError
		delErr   *truncate.DeleteError
		cycleErr *truncate.CycleError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &introErr):
		return "introspection_error"
	case errors.As(err, &depErr):
		return "dependency_error"
	case errors.As(err, &delErr):
		return "delete_error"
	case errors.As(err, &cycleErr):
		return "cycle_error"
	default:
		return "error"
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in text exposition format,
// for node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.status)
		c.requestTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
