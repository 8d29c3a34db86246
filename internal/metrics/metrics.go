// Package metrics exposes Prometheus collectors for the API server and the
// client-side cache store.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evcraddock/estate-crm/internal/model"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	mutations          *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
	loads              *prometheus.CounterVec
	loadDuration       prometheus.Histogram
}

// New creates a registry with the estate-crm collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecrm_http_requests_total",
				Help: "Total number of API requests by route and status code.",
			},
			[]string{"method", "route", "code"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ecrm_http_request_duration_seconds",
				Help:    "Latency of API requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecrm_store_mutations_total",
				Help: "Total number of store mutations by entity, action and result.",
			},
			[]string{"entity", "action", "result"},
		),

		sideEffectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecrm_store_side_effect_failures_total",
				Help: "Activity and audit writes that failed after a successful mutation.",
			},
			[]string{"kind", "entity"},
		),

		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecrm_store_loads_total",
				Help: "Total number of bulk loads by result.",
			},
			[]string{"result"},
		),

		loadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ecrm_store_load_duration_seconds",
				Help:    "Duration of bulk loads in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.mutations,
		m.sideEffectFailures,
		m.loads,
		m.loadDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument counts and times requests served by next under the given
// route label. Use the mux pattern, not the raw path, to bound label
// cardinality.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveMutation records a store mutation outcome.
func (m *Metrics) ObserveMutation(entity model.EntityType, action string, err error) {
	m.mutations.WithLabelValues(string(entity), action, result(err)).Inc()
}

// ObserveSideEffectFailure records a failed activity or audit write.
func (m *Metrics) ObserveSideEffectFailure(kind string, entity model.EntityType) {
	m.sideEffectFailures.WithLabelValues(kind, string(entity)).Inc()
}

// ObserveLoad records a bulk load's result and duration.
func (m *Metrics) ObserveLoad(d time.Duration, err error) {
	m.loads.WithLabelValues(result(err)).Inc()
	m.loadDuration.Observe(d.Seconds())
}
