package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ValidatorMetrics tracks image validation and the validation cache.
// A nil *ValidatorMetrics is valid and records nothing.
type ValidatorMetrics struct {
	Outcomes           *prometheus.CounterVec
	ClassifierDuration *prometheus.HistogramVec
	DownloadDuration   prometheus.Histogram
	CacheHits          *prometheus.CounterVec
	CacheMisses        prometheus.Counter
	CacheEntries       prometheus.Gauge
	StoreErrors        *prometheus.CounterVec
}

// NewValidatorMetrics creates and registers validator metrics.
func NewValidatorMetrics(registry prometheus.Registerer) (*ValidatorMetrics, error) {
	m := &ValidatorMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register Validator metrics: %w", err)
	}
	return m, nil
}

func (m *ValidatorMetrics) initMetrics() {
	m.Outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "validator_outcomes_total",
		Help: "Total number of validation outcomes by kind.",
	}, []string{"kind"})

	m.ClassifierDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "validator_classifier_duration_seconds",
		Help:    "Duration of vision classifier calls in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	}, []string{"backend", "status"})

	m.DownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "validator_image_download_duration_seconds",
		Help:    "Duration of candidate image downloads in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	})

	m.CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_cache_hits_total",
		Help: "Total number of validation cache hits by tier.",
	}, []string{"tier"})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "validation_cache_misses_total",
		Help: "Total number of validation cache misses.",
	})

	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "validation_cache_entries",
		Help: "Current number of entries in the in-process validation cache.",
	})

	m.StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_cache_store_errors_total",
		Help: "Total number of shared validation cache store errors.",
	}, []string{"operation"})
}

// RecordOutcome counts one validation outcome.
func (m *ValidatorMetrics) RecordOutcome(kind string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(kind).Inc()
}

// ObserveClassifier records the latency of one classifier call.
func (m *ValidatorMetrics) ObserveClassifier(backend, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ClassifierDuration.WithLabelValues(backend, status).Observe(durationSeconds)
}

// ObserveDownload records the latency of one image download.
func (m *ValidatorMetrics) ObserveDownload(durationSeconds float64) {
	if m == nil {
		return
	}
	m.DownloadDuration.Observe(durationSeconds)
}

// RecordCacheHit counts a hit in the given tier.
func (m *ValidatorMetrics) RecordCacheHit(tier string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss counts a miss in every tier.
func (m *ValidatorMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// SetCacheEntries updates the in-process entry count.
func (m *ValidatorMetrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// RecordStoreError counts a failed store get or set.
func (m *ValidatorMetrics) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *ValidatorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Outcomes.Collect(ch)
	m.ClassifierDuration.Collect(ch)
	ch <- m.DownloadDuration
	m.CacheHits.Collect(ch)
	ch <- m.CacheMisses
	ch <- m.CacheEntries
	m.StoreErrors.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ValidatorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Outcomes.Describe(ch)
	m.ClassifierDuration.Describe(ch)
	ch <- m.DownloadDuration.Desc()
	m.CacheHits.Describe(ch)
	ch <- m.CacheMisses.Desc()
	ch <- m.CacheEntries.Desc()
	m.StoreErrors.Describe(ch)
}
