// Package app assembles the image pipeline from settings.
package app

import (
	"fmt"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/imageprovider"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
	"github.com/srthknk/biomuseum/internal/pipeline"
	"github.com/srthknk/biomuseum/internal/validator"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Settings     *conf.Settings
	Metrics      *observability.Metrics
	Orchestrator *pipeline.Orchestrator

	cache *validator.Cache
	log   logger.Logger
}

// New builds providers, the cached validator and the orchestrator. A nil
// metrics disables instrumentation.
func New(settings *conf.Settings, m *observability.Metrics, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Global().Module("app")
	}

	providers, err := imageprovider.NewFromSettings(&settings.Providers, providerMetrics(m), log.Module("imageprovider"))
	if err != nil {
		return nil, fmt.Errorf("configure image providers: %w", err)
	}

	base := validator.NewFromSettings(&settings.Validator, validatorMetrics(m), log.Module("validator"))
	cache, err := validator.NewCacheFromSettings(&settings.Cache, validatorMetrics(m), log.Module("validator.cache"))
	if err != nil {
		return nil, fmt.Errorf("configure validation cache: %w", err)
	}

	orchestrator, err := pipeline.New(&pipeline.Options{
		Providers:    providers,
		Validator:    validator.NewCached(base, cache),
		Fallback:     pipeline.NewStaticFallback(settings.Pipeline.FallbackImages),
		Concurrency:  settings.Pipeline.Concurrency,
		DefaultCount: settings.Pipeline.DefaultCount,
		MaxCount:     settings.Pipeline.MaxCount,
		Metrics:      pipelineMetrics(m),
		Logger:       log.Module("pipeline"),
	})
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	return &App{
		Settings:     settings,
		Metrics:      m,
		Orchestrator: orchestrator,
		cache:        cache,
		log:          log,
	}, nil
}

// Close releases the shared validation store.
func (a *App) Close() error {
	if err := a.cache.Close(); err != nil {
		a.log.Warn("closing validation cache failed", logger.Error(err))
		return err
	}
	return nil
}

func providerMetrics(m *observability.Metrics) *metrics.ImageProviderMetrics {
	if m == nil {
		return nil
	}
	return m.ImageProvider
}

func validatorMetrics(m *observability.Metrics) *metrics.ValidatorMetrics {
	if m == nil {
		return nil
	}
	return m.Validator
}

func pipelineMetrics(m *observability.Metrics) *metrics.PipelineMetrics {
	if m == nil {
		return nil
	}
	return m.Pipeline
}
