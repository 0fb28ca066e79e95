// Package metrics exposes draftflow's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	publishOutcomes *prometheus.CounterVec
	catalogRequests *prometheus.CounterVec
	catalogLatency  *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	draftOperations *prometheus.CounterVec
}

// New registers every collector under the given namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "draftflow"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		publishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by draft type and outcome.",
		}, []string{"draft_type", "outcome"}),
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Catalog API requests by operation and status class.",
		}, []string{"operation", "status"}),
		catalogLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_request_duration_seconds",
			Help:      "Catalog API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Publish notifications by template and result.",
		}, []string{"template", "result"}),
		draftOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_operations_total",
			Help:      "Local draft operations by draft type and operation.",
		}, []string{"draft_type", "operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.publishOutcomes,
		m.catalogRequests,
		m.catalogLatency,
		m.notifications,
		m.draftOperations,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCatalogCall records one catalog request. Status 0 is a transport failure.
func (m *Metrics) ObserveCatalogCall(operation string, status int, elapsed time.Duration) {
	m.catalogRequests.WithLabelValues(operation, statusClass(status)).Inc()
	m.catalogLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// PublishCompleted records the outcome of one publish attempt.
func (m *Metrics) PublishCompleted(draftType, outcome string) {
	m.publishOutcomes.WithLabelValues(draftType, outcome).Inc()
}

// DraftOperation records a create, update or delete of a local draft.
func (m *Metrics) DraftOperation(draftType, operation string) {
	m.draftOperations.WithLabelValues(draftType, operation).Inc()
}

// NotificationProcessed records the delivery result of one notification.
func (m *Metrics) NotificationProcessed(template, result string) {
	m.notifications.WithLabelValues(template, result).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
