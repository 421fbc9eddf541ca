package validator

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/httpclient"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

// NewFromSettings builds the validator described by settings.
func NewFromSettings(settings *conf.ValidatorSettings, m *metrics.ValidatorMetrics, log logger.Logger) *Validator {
	downloadCfg := httpclient.DefaultConfig()
	downloadCfg.DefaultTimeout = settings.DownloadTimeout
	downloadCfg.Retry = nil
	downloadCfg.CircuitBreaker = nil // candidates come from many unrelated hosts

	classifierCfg := httpclient.DefaultConfig()
	classifierCfg.DefaultTimeout = settings.ClassifierTimeout

	return New(&Options{
		Classifier:      NewClassifier(settings, httpclient.New(&classifierCfg)),
		Client:          httpclient.New(&downloadCfg),
		DownloadTimeout: settings.DownloadTimeout,
		MaxImageBytes:   settings.MaxImageBytes,
		Policy: UnavailablePolicy{
			Optimistic:             settings.OptimisticFallback,
			UnconfiguredConfidence: settings.UnconfiguredConfidence,
			UnreachableConfidence:  settings.UnreachableConfidence,
		},
		Metrics: m,
		Logger:  log,
	})
}

// NewStoreFromSettings opens the shared cache tier, nil for "none".
func NewStoreFromSettings(settings *conf.CacheSettings, log logger.Logger) (Store, error) {
	switch settings.Store {
	case "", conf.StoreNone:
		return nil, nil
	case conf.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		return NewRedisStore(client, settings.Redis.KeyPrefix), nil
	case conf.StoreSQLite:
		store, err := OpenSQLiteStore(settings.SQL.Path, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case conf.StoreMySQL:
		store, err := OpenMySQLStore(settings.SQL.DSN, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.Newf("unknown validation cache store %q", settings.Store).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// NewCacheFromSettings builds the validation cache and its shared tier.
func NewCacheFromSettings(settings *conf.CacheSettings, m *metrics.ValidatorMetrics, log logger.Logger) (*Cache, error) {
	store, err := NewStoreFromSettings(settings, log)
	if err != nil {
		return nil, err
	}
	cache, err := NewCache(&CacheOptions{
		MaxEntries:     settings.MaxEntries,
		TTL:            settings.TTL,
		CacheTransient: settings.CacheTransient,
		Store:          store,
		Metrics:        m,
		Logger:         log,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return cache, nil
}
