package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for pipeline runs.
//
// Metrics:
//   - dispatch_runs_total{source_type,intent,action} - completed runs
//   - dispatch_run_duration_seconds{source_type} - end-to-end run latency
//   - dispatch_classifier_fallbacks_total{source_type} - heuristic classifications
//   - dispatch_action_failures_total{action} - side effects that could not be delivered
//   - dispatch_runs_cancelled_total - runs abandoned before resolution
//   - dispatch_record_failures_total - completed runs the store rejected
type Metrics struct {
	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	ClassifierFallbacks *prometheus.CounterVec
	ActionFailures      *prometheus.CounterVec
	RunsCancelled       prometheus.Counter
	RecordFailures      prometheus.Counter
}

// NewMetrics creates pipeline collectors registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_runs_total",
				Help: "Total number of completed pipeline runs",
			},
			[]string{"source_type", "intent", "action"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"source_type"},
		),
		ClassifierFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_classifier_fallbacks_total",
				Help: "Total number of classifications produced by the heuristic fallback",
			},
			[]string{"source_type"},
		),
		ActionFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_action_failures_total",
				Help: "Total number of side effects that failed after retries",
			},
			[]string{"action"},
		),
		RunsCancelled: f.NewCounter(
			prometheus.CounterOpts{
				Name: "dispatch_runs_cancelled_total",
				Help: "Total number of runs cancelled before action resolution",
			},
		),
		RecordFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "dispatch_record_failures_total",
				Help: "Total number of completed runs that could not be recorded",
			},
		),
	}
}
