// Package metrics exposes prometheus collectors for workflow transitions, event handlers, HTTP traffic and workers.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trip_expense"

// WorkflowMetrics counts applied and refused state transitions; it implements workflow.TransitionObserver
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on reg; a nil reg yields a no-op recorder
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Status transitions applied, by entity, source, target and trigger.",
	}, []string{"entity", "from", "to", "trigger"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_transitions_total",
		Help:      "Transitions refused because the trigger is not allowed from the current status.",
	}, []string{"entity", "from", "trigger"})
	reg.MustRegister(transitions, rejected)
	return &WorkflowMetrics{
		transitions: transitions,
		rejected:    rejected,
	}
}

// ObserveTransition counts one applied transition
func (m *WorkflowMetrics) ObserveTransition(entityName, from, to, trigger string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(entityName, normalizeLabel(from), to, trigger).Inc()
}

// ObserveRejectedTransition counts one refused transition
func (m *WorkflowMetrics) ObserveRejectedTransition(entityName, from, trigger string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(entityName, normalizeLabel(from), trigger).Inc()
}

// HTTPMetrics records request counts and latencies per route
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics on reg
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)
	return &HTTPMetrics{
		requests: requests,
		duration: duration,
	}
}

// ObserveRequest records one finished request
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// WorkerMetrics counts items handled by background workers
type WorkerMetrics struct {
	items *prometheus.CounterVec
}

// NewWorkerMetrics registers the worker metrics on reg
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_items_total",
		Help:      "Items processed by background workers, by outcome.",
	}, []string{"worker", "outcome"})
	reg.MustRegister(items)
	return &WorkerMetrics{items: items}
}

// IncProcessed counts one item with outcome success or failure
func (m *WorkerMetrics) IncProcessed(worker string, success bool) {
	if m == nil || m.items == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.items.WithLabelValues(normalizeLabel(worker), outcome).Inc()
}

// EventMetrics records event handler runs; it implements dispatcher.HandlerObserver
type EventMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewEventMetrics registers the event handler metrics on reg
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_handler_runs_total",
		Help:      "Event handler invocations by event type, handler and outcome.",
	}, []string{"event_type", "handler", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_handler_duration_seconds",
		Help:      "Event handler latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"handler"})
	reg.MustRegister(runs, duration)
	return &EventMetrics{runs: runs, duration: duration}
}

// ObserveHandler records one handler run
func (m *EventMetrics) ObserveHandler(eventType, handler string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.runs.WithLabelValues(eventType, handler, outcome).Inc()
	m.duration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
