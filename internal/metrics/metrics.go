// Package metrics holds the Prometheus collectors exported by the API server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brewfeed"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	friendshipEvents    *prometheus.CounterVec
	postEvents          *prometheus.CounterVec
	eventPublishFailure *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the application collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		friendshipEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friendship_transitions_total",
			Help:      "Friendship state transitions (requested, accepted, removed).",
		}, []string{"transition"}),
		postEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_mutations_total",
			Help:      "Post mutations (created, updated, deleted).",
		}, []string{"mutation"}),
		eventPublishFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published.",
		}, []string{"topic"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route, method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(seconds)
}

// FriendshipTransition counts one friendship state change.
func (m *Metrics) FriendshipTransition(transition string) {
	if m == nil {
		return
	}
	m.friendshipEvents.WithLabelValues(transition).Inc()
}

// PostMutation counts one post write.
func (m *Metrics) PostMutation(mutation string) {
	if m == nil {
		return
	}
	m.postEvents.WithLabelValues(mutation).Inc()
}

// EventPublishFailed counts a dropped domain event.
func (m *Metrics) EventPublishFailed(topic string) {
	if m == nil {
		return
	}
	m.eventPublishFailure.WithLabelValues(topic).Inc()
}
