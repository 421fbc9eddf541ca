package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks orchestrator runs.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	Runs      *prometheus.CounterVec
	Duration  prometheus.Histogram
	Accepted  *prometheus.CounterVec
	Rejected  prometheus.Counter
	Fallbacks prometheus.Counter
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register Pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Total number of pipeline runs by result.",
	}, []string{"result"}) // result: accepted, fallback, failed

	m.Duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_duration_seconds",
		Help:    "Duration of complete pipeline runs in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	})

	m.Accepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_accepted_candidates_total",
		Help: "Total number of accepted candidates by provider.",
	}, []string{"provider"})

	m.Rejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_rejected_candidates_total",
		Help: "Total number of candidates below the acceptance threshold.",
	})

	m.Fallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_fallbacks_total",
		Help: "Total number of runs answered with placeholder images.",
	})
}

// RecordRun records a finished run.
func (m *PipelineMetrics) RecordRun(result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	m.Duration.Observe(durationSeconds)
	if result == ResultFallback {
		m.Fallbacks.Inc()
	}
}

// RecordCandidate records an acceptance decision.
func (m *PipelineMetrics) RecordCandidate(provider string, accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.Accepted.WithLabelValues(provider).Inc()
		return
	}
	m.Rejected.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Runs.Collect(ch)
	ch <- m.Duration
	m.Accepted.Collect(ch)
	ch <- m.Rejected
	ch <- m.Fallbacks
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Runs.Describe(ch)
	ch <- m.Duration.Desc()
	m.Accepted.Describe(ch)
	ch <- m.Rejected.Desc()
	ch <- m.Fallbacks.Desc()
}
