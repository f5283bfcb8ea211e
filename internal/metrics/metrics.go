// Package metrics exposes Prometheus collectors for sessions and inference.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inference outcomes used as the "result" label.
const (
	ResultGood  = "good"
	ResultError = "form_error"
	ResultFail  = "failed"
)

// Metrics holds all application metrics.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Session tracking
	ActiveSessions    atomic.Int64
	CompletedSessions atomic.Uint64

	framesProcessed   *prometheus.CounterVec
	repsCounted       *prometheus.CounterVec
	inferences        *prometheus.CounterVec
	inferenceDuration prometheus.Histogram

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus.
func (m *Metrics) registerPrometheusMetrics() {
	m.framesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcoach_frames_processed_total",
			Help: "Total pose frames processed by active sessions",
		},
		[]string{"exercise"},
	)
	m.repsCounted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcoach_reps_total",
			Help: "Total repetitions counted",
		},
		[]string{"exercise"},
	)
	m.inferences = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcoach_inferences_total",
			Help: "Total form model inferences by outcome",
		},
		[]string{"result"},
	)
	m.inferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "formcoach_inference_duration_seconds",
		Help:    "Form model inference latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	m.registry.MustRegister(m.framesProcessed, m.repsCounted, m.inferences, m.inferenceDuration)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "formcoach_sessions_active",
			Help: "Number of sessions currently in the active phase",
		},
		func() float64 { return float64(m.ActiveSessions.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "formcoach_sessions_completed_total",
			Help: "Total sessions ended with a report",
		},
		func() float64 { return float64(m.CompletedSessions.Load()) },
	))
}

// FrameProcessed counts one frame for exercise.
func (m *Metrics) FrameProcessed(exercise string) {
	if m == nil {
		return
	}
	m.framesProcessed.WithLabelValues(exercise).Inc()
}

// RepCounted counts one repetition for exercise.
func (m *Metrics) RepCounted(exercise string) {
	if m == nil {
		return
	}
	m.repsCounted.WithLabelValues(exercise).Inc()
}

// Inference records one model call.
func (m *Metrics) Inference(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.inferences.WithLabelValues(result).Inc()
	m.inferenceDuration.Observe(duration.Seconds())
}

// SessionStarted marks a session as active.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(1)
}

// SessionEnded marks an active session as no longer active.
// completed is true when the session produced a report.
func (m *Metrics) SessionEnded(completed bool) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(-1)
	if completed {
		m.CompletedSessions.Add(1)
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
