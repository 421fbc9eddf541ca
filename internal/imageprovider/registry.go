package imageprovider

import (
	"fmt"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/httpclient"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

// NewFromSettings builds the enabled providers in priority order. Each
// provider gets its own HTTP client so one failing service cannot trip the
// circuit breaker of another.
func NewFromSettings(settings *conf.ProvidersSettings, m *metrics.ImageProviderMetrics, log logger.Logger) ([]Provider, error) {
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	providers := make([]Provider, 0, len(settings.Order))
	for _, name := range settings.Order {
		ps, ok := settings.Provider(name)
		if !ok {
			return nil, errors.Newf("unknown image provider %q", name).
				Component(componentName).
				Category(errors.CategoryConfiguration).
				Context("provider", name).
				Build()
		}
		if !ps.Enabled {
			log.Debug("image provider disabled", logger.String("provider", name))
			continue
		}

		clientCfg := httpclient.DefaultConfig()
		clientCfg.DefaultTimeout = settings.Timeout
		opts := &Options{
			Client:    httpclient.New(&clientCfg),
			Endpoint:  ps.Endpoint,
			APIKey:    ps.APIKey,
			Timeout:   settings.Timeout,
			RateLimit: ps.RateLimit,
			Burst:     ps.Burst,
			Metrics:   m,
			Logger:    log,
		}

		var p Provider
		switch name {
		case conf.ProviderUnsplash:
			p = NewUnsplashProvider(opts)
		case conf.ProviderPexels:
			p = NewPexelsProvider(opts)
		case conf.ProviderWikimedia:
			p = NewWikimediaProvider(opts, settings.Contact)
		case conf.ProviderBrave:
			p = NewBraveProvider(opts)
		case conf.ProviderBing:
			p = NewBingProvider(opts)
		default:
			return nil, fmt.Errorf("image provider %q has no implementation", name)
		}

		if settings.CacheTTL > 0 {
			p = NewCachedProvider(p, settings.CacheTTL, settings.CacheTTL, m)
		}
		providers = append(providers, p)
	}

	log.Info("image providers configured", logger.Int("count", len(providers)))
	return providers, nil
}
