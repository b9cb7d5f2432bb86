// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts processed turns by final session status.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxflow_turns_total",
		Help: "Processed workflow turns by resulting session status.",
	}, []string{"status"})

	// TurnDuration observes end-to-end turn latency.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taxflow_turn_duration_seconds",
		Help:    "End-to-end turn processing latency.",
		Buckets: prometheus.DefBuckets,
	})

	// StepErrorsTotal counts errors surfaced by workflow steps.
	StepErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxflow_step_errors_total",
		Help: "Errors surfaced by workflow steps.",
	}, []string{"step"})

	// ErrorReportsTotal counts reports dispatched to the error sink.
	ErrorReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxflow_error_reports_total",
		Help: "Error reports dispatched to the configured sink.",
	})
)
