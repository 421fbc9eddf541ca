// Package observability provides metrics and monitoring capabilities for the BioMuseum application.
// Sentry error telemetry is handled in the telemetry package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry      *prometheus.Registry
	ImageProvider *metrics.ImageProviderMetrics
	Validator     *metrics.ValidatorMetrics
	Pipeline      *metrics.PipelineMetrics
	HTTP          *metrics.HTTPMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry,
// initializing all metric collectors.
func NewMetrics() (*Metrics, error) {
	return newMetrics(prometheus.NewRegistry(), false)
}

// NewProcessMetrics is NewMetrics plus Go runtime and process collectors.
func NewProcessMetrics() (*Metrics, error) {
	return newMetrics(prometheus.NewRegistry(), true)
}

func newMetrics(registry *prometheus.Registry, withRuntime bool) (*Metrics, error) {
	if withRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	imageProviderMetrics, err := metrics.NewImageProviderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ImageProvider metrics: %w", err)
	}

	validatorMetrics, err := metrics.NewValidatorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Validator metrics: %w", err)
	}

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pipeline metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry:      registry,
		ImageProvider: imageProviderMetrics,
		Validator:     validatorMetrics,
		Pipeline:      pipelineMetrics,
		HTTP:          httpMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
