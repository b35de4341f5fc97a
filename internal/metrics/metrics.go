// Package metrics exposes Prometheus instrumentation for the HTTP layer and the
// correlation snapshot lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/modules/correlation"
)

const namespace = "corrscope"

// Metrics owns a private registry so tests and multiple servers never collide
// on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	snapshotCompanies prometheus.Gauge
	snapshotPairs     prometheus.Gauge
	snapshotBuiltAt   prometheus.Gauge
	snapshotBuild     prometheus.Histogram
	bucketPairs       *prometheus.GaugeVec
	refreshFailures   prometheus.Counter
	archivesUploaded  prometheus.Counter
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "route"}),
		snapshotCompanies: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_companies",
			Help:      "Companies in the current correlation snapshot",
		}),
		snapshotPairs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_pairs",
			Help:      "Indexed pairs in the current correlation snapshot",
		}),
		snapshotBuiltAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_built_timestamp_seconds",
			Help:      "Unix time the current snapshot was built",
		}),
		snapshotBuild: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_build_duration_seconds",
			Help:      "Time to load the feed and build a snapshot",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		}),
		bucketPairs: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_bucket_pairs",
			Help:      "Indexed pairs per correlation bucket",
		}, []string{"bucket"}),
		refreshFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Failed snapshot refreshes",
		}),
		archivesUploaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_uploaded_total",
			Help:      "Snapshot exports uploaded to object storage",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSnapshot updates the snapshot gauges. Register it with Engine.OnSnapshot.
func (m *Metrics) ObserveSnapshot(snap *correlation.Snapshot) {
	if snap == nil {
		return
	}
	m.snapshotCompanies.Set(float64(snap.Len()))
	m.snapshotPairs.Set(float64(snap.Index().Total()))
	m.snapshotBuiltAt.Set(float64(snap.BuiltAt.Unix()))
	for bucket, n := range snap.Index().Counts() {
		m.bucketPairs.WithLabelValues(bucket).Set(float64(n))
	}
}

// Subscribe counts refresh failures and uploads, and records build durations
// from the event bus. The returned func removes every subscription.
func (m *Metrics) Subscribe(bus *events.Bus) (unsubscribe func()) {
	offs := []func(){
		bus.Subscribe(events.CorrelationSnapshotBuilt, func(e *events.Event) {
			if ms, ok := numeric(e.Data["duration_ms"]); ok {
				m.snapshotBuild.Observe(ms / 1000)
			}
		}),
		bus.Subscribe(events.CorrelationRefreshFailed, func(*events.Event) {
			m.refreshFailures.Inc()
		}),
		bus.Subscribe(events.SnapshotArchived, func(*events.Event) {
			m.archivesUploaded.Inc()
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// numeric accepts the number shapes produced by the JSON round trip in
// events.convertEventDataToMap as well as direct Emit callers.
func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
