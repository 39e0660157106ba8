package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"Conflux/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations       *prometheus.CounterVec
	decisions         *prometheus.CounterVec
	suppressions      *prometheus.CounterVec
	invalidComponents *prometheus.CounterVec
	boundsViolations  *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_evaluations_total",
				Help: "Total number of score snapshot evaluations",
			},
			[]string{"symbol"},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_decisions_total",
				Help: "Governor decisions by symbol, signal type and outcome",
			},
			[]string{"symbol", "signal_type", "decision"},
		),
		suppressions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_suppressions_total",
				Help: "Suppressed envelopes by reason",
			},
			[]string{"reason"},
		),
		invalidComponents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_invalid_components_total",
				Help: "Components excluded at intake",
			},
			[]string{"symbol", "component"},
		),
		boundsViolations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_bounds_violations_total",
				Help: "Computed statistics that required clamping",
			},
			[]string{"field"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conflux_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation records one pipeline run for a symbol.
func (r *Recorder) RecordEvaluation(symbol string) {
	r.evaluations.WithLabelValues(symbol).Inc()
}

// RecordDecision records the governor outcome for an evaluation.
func (r *Recorder) RecordDecision(symbol string, signalType models.SignalType, decision models.Decision) {
	r.decisions.WithLabelValues(symbol, string(signalType), string(decision)).Inc()
}

// RecordSuppression records a suppressed envelope by reason.
func (r *Recorder) RecordSuppression(reason string) {
	r.suppressions.WithLabelValues(reason).Inc()
}

// RecordInvalidComponent records a component excluded at intake.
func (r *Recorder) RecordInvalidComponent(symbol, component string) {
	r.invalidComponents.WithLabelValues(symbol, component).Inc()
}

// RecordBoundsViolation records a statistic clamped post-hoc.
func (r *Recorder) RecordBoundsViolation(field string) {
	r.boundsViolations.WithLabelValues(field).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
