// Package metrics provides custom Prometheus metrics for the BioMuseum image pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageProviderMetrics contains all Prometheus metrics related to candidate providers.
// A nil *ImageProviderMetrics is valid and records nothing.
type ImageProviderMetrics struct {
	Requests    *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Candidates  *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewImageProviderMetrics creates and registers provider metrics.
func NewImageProviderMetrics(registry prometheus.Registerer) (*ImageProviderMetrics, error) {
	m := &ImageProviderMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageProvider metrics: %w", err)
	}
	return m, nil
}

func (m *ImageProviderMetrics) initMetrics() {
	m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_requests_total",
		Help: "Total number of search requests sent to image providers.",
	}, []string{"provider"})

	m.Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_failures_total",
		Help: "Total number of failed image provider requests.",
	}, []string{"provider", "reason"}) // reason: network, status, decode, credentials, rate_limit

	m.Candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_candidates_total",
		Help: "Total number of candidate image URLs returned by providers.",
	}, []string{"provider"})

	m.Duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_provider_request_duration_seconds",
		Help:    "Duration of image provider search requests in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	}, []string{"provider"})

	m.CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_cache_hits_total",
		Help: "Total number of provider result cache hits.",
	}, []string{"provider"})

	m.CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_cache_misses_total",
		Help: "Total number of provider result cache misses.",
	}, []string{"provider"})
}

// RecordRequest records one search request and its duration.
func (m *ImageProviderMetrics) RecordRequest(provider string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(provider).Inc()
	m.Duration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordFailure records a failed request.
func (m *ImageProviderMetrics) RecordFailure(provider, reason string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(provider, reason).Inc()
}

// RecordCandidates adds n returned candidate URLs.
func (m *ImageProviderMetrics) RecordCandidates(provider string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Candidates.WithLabelValues(provider).Add(float64(n))
}

// RecordCacheLookup records a provider result cache lookup.
func (m *ImageProviderMetrics) RecordCacheLookup(provider string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(provider).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(provider).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	m.Failures.Collect(ch)
	m.Candidates.Collect(ch)
	m.Duration.Collect(ch)
	m.CacheHits.Collect(ch)
	m.CacheMisses.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	m.Failures.Describe(ch)
	m.Candidates.Describe(ch)
	m.Duration.Describe(ch)
	m.CacheHits.Describe(ch)
	m.CacheMisses.Describe(ch)
}
