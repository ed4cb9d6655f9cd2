package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)

	m.ObserveTransition("trip", "", "active", "create")
	m.ObserveTransition("trip", "active", "awaiting_review", "submit")
	m.ObserveTransition("trip", "active", "awaiting_review", "submit")
	m.ObserveRejectedTransition("advance", "completed", "approve_area")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("trip", "none", "active", "create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("trip", "active", "awaiting_review", "submit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("advance", "completed", "approve_area")))

	count, err := testutil.GatherAndCount(reg, "trip_expense_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("GET", "/api/v1/trips/:id", 200, 30*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/trips/:id", 404, 5*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/trips/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "none", "404")))

	count, err := testutil.GatherAndCount(reg, "trip_expense_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWorkerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics(reg)

	m.IncProcessed("notification_push", true)
	m.IncProcessed("notification_push", false)
	m.IncProcessed("notification_push", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues("notification_push", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.items.WithLabelValues("notification_push", "failure")))
}

func TestEventMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)

	m.ObserveHandler("trip.status_changed", "notifications", 3*time.Millisecond, nil)
	m.ObserveHandler("trip.status_changed", "notifications", time.Millisecond, errors.New("inbox down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("trip.status_changed", "notifications", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("trip.status_changed", "notifications", "failure")))

	count, err := testutil.GatherAndCount(reg, "trip_expense_event_handler_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilRegistererIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWorkflowMetrics(nil).ObserveTransition("trip", "a", "b", "c")
		NewWorkflowMetrics(nil).ObserveRejectedTransition("trip", "a", "c")
		NewHTTPMetrics(nil).ObserveRequest("GET", "/", 200, time.Millisecond)
		NewWorkerMetrics(nil).IncProcessed("w", true)
		NewEventMetrics(nil).ObserveHandler("t", "h", time.Millisecond, nil)

		var m *WorkflowMetrics
		m.ObserveTransition("trip", "a", "b", "c")
	})
}
