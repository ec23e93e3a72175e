// Package metrics owns the Prometheus collectors exported on /metrics.
//
// All methods are safe on a nil *Metrics, so components built without
// metrics (mostly tests) need no special casing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "money_manager"

// Metrics groups the collectors and the registry they are registered in.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	entriesAdded   *prometheus.CounterVec
	storeConflicts prometheus.Counter
}

// New creates a private registry with the service collectors plus the
// standard Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		entriesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_added_total",
			Help:      "Ledger entries created, by kind.",
		}, []string{"kind"}),
		storeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_store_conflicts_total",
			Help:      "Optimistic-concurrency conflicts that forced a retry.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.entriesAdded,
		m.storeConflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// EntryAdded counts a created ledger entry.
func (m *Metrics) EntryAdded(kind string) {
	if m == nil {
		return
	}
	m.entriesAdded.WithLabelValues(kind).Inc()
}

// StoreConflict counts a version conflict that triggered a retry.
func (m *Metrics) StoreConflict() {
	if m == nil {
		return
	}
	m.storeConflicts.Inc()
}
