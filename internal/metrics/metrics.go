// Package metrics exposes Prometheus collectors for the dojo backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	AttendanceRecorded   *prometheus.CounterVec
	AttendanceBulkRows   prometheus.Histogram
	SessionTransitions   *prometheus.CounterVec
	EventPublishFailures prometheus.Counter
	HTTPRequestDuration  *prometheus.HistogramVec
	LiveBoardConnections prometheus.Gauge
}

// New registers every collector on the default registry. Call it once per process.
func New() *Metrics {
	return &Metrics{
		AttendanceRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seirin_attendance_recorded_total",
			Help: "Attendance rows written, by status and origin",
		}, []string{"status", "origin"}), // origin: "single", "bulk", "mark"

		AttendanceBulkRows: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "seirin_attendance_bulk_rows",
			Help:    "Rows inserted per bulk attendance call",
			Buckets: []float64{0, 1, 5, 10, 20, 40, 80},
		}),

		SessionTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seirin_class_session_transitions_total",
			Help: "Class session lifecycle transitions",
		}, []string{"transition"}), // transition: "start", "end"

		EventPublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seirin_attendance_event_publish_failures_total",
			Help: "Attendance events that could not be published",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seirin_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),

		LiveBoardConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "seirin_live_board_connections",
			Help: "Open attendance live board websockets",
		}),
	}
}

// IncAttendance records n attendance rows written with status.
func (m *Metrics) IncAttendance(status, origin string, n int) {
	if m != nil && n > 0 {
		m.AttendanceRecorded.WithLabelValues(status, origin).Add(float64(n))
	}
}

// ObserveBulk records the number of rows a bulk call inserted.
func (m *Metrics) ObserveBulk(n int) {
	if m != nil {
		m.AttendanceBulkRows.Observe(float64(n))
	}
}

// IncTransition records a session lifecycle transition.
func (m *Metrics) IncTransition(transition string) {
	if m != nil {
		m.SessionTransitions.WithLabelValues(transition).Inc()
	}
}

// IncPublishFailure records a dropped attendance event.
func (m *Metrics) IncPublishFailure() {
	if m != nil {
		m.EventPublishFailures.Inc()
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}

// LiveBoardOpened and LiveBoardClosed track websocket subscribers.
func (m *Metrics) LiveBoardOpened() {
	if m != nil {
		m.LiveBoardConnections.Inc()
	}
}

func (m *Metrics) LiveBoardClosed() {
	if m != nil {
		m.LiveBoardConnections.Dec()
	}
}
