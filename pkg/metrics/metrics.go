// Package metrics holds the Prometheus collectors shared by connectors,
// loaders and the query executor. All methods are safe on a nil *Metrics so
// callers that do not care about metrics can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "encore"

// Outcome labels for upstream calls.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	batchSize       *prometheus.HistogramVec
	queries         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
}

// New creates a private registry with the encore collectors plus the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Upstream provider calls by connector, operation and outcome.",
		}, []string{"connector", "operation", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "duration_seconds",
			Help:      "Upstream provider call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"connector", "operation"}),
		batchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batch_size",
			Help:      "Distinct keys dispatched per loader batch.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}, []string{"loader"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "queries_total",
			Help:      "Executed GraphQL operations by whether any field errored.",
		}, []string{"has_errors"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "query_duration_seconds",
			Help:      "GraphQL operation execution time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.upstreamCalls,
		m.upstreamLatency,
		m.batchSize,
		m.queries,
		m.queryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveUpstream(connector, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(connector, operation, outcome).Inc()
	m.upstreamLatency.WithLabelValues(connector, operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBatch(loader string, size int) {
	if m == nil {
		return
	}
	m.batchSize.WithLabelValues(loader).Observe(float64(size))
}

func (m *Metrics) ObserveQuery(errorCount int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(strconv.FormatBool(errorCount > 0)).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
}
