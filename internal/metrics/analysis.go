package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resume_analyzer"

// Outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeFailed    = "failed"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "completed_total",
			Help:      "Candidate analyses by mode and result kind.",
		},
		[]string{"mode", "result"},
	)

	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Time spent analyzing one candidate, including provider retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"mode"},
	)

	providerAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "AI provider calls by outcome.",
		},
		[]string{"outcome"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "side_effect_failures_total",
			Help:      "Best-effort steps that failed after a successful analysis.",
		},
		[]string{"step"},
	)

	queueDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "deliveries_total",
			Help:      "Queued analysis requests by acknowledgement decision.",
		},
		[]string{"decision"},
	)
)

// ObserveAnalysis records one finished candidate analysis. result is "success" or the error kind.
func ObserveAnalysis(mode, result string, elapsed time.Duration) {
	analysesTotal.WithLabelValues(mode, result).Inc()
	analysisDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveProviderAttempt records one inference call
func ObserveProviderAttempt(outcome string) {
	providerAttempts.WithLabelValues(outcome).Inc()
}

// ObserveSideEffectFailure records a swallowed broadcast, quota or activity failure
func ObserveSideEffectFailure(step string) {
	sideEffectFailures.WithLabelValues(step).Inc()
}

// ObserveDelivery records how the worker settled a queue message (ack, requeue, reject)
func ObserveDelivery(decision string) {
	queueDeliveries.WithLabelValues(decision).Inc()
}
