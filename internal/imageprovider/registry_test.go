package imageprovider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/logger"
)

func TestNewFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.ProvidersSettings{
		Order:     []string{conf.ProviderWikimedia, conf.ProviderUnsplash, conf.ProviderPexels, conf.ProviderBing},
		Timeout:   5 * time.Second,
		Unsplash:  conf.ProviderSettings{Enabled: true, APIKey: "u"},
		Pexels:    conf.ProviderSettings{Enabled: false},
		Wikimedia: conf.ProviderSettings{Enabled: true},
		Bing:      conf.ProviderSettings{Enabled: true, APIKey: "b", RateLimit: 2, Burst: 1},
	}

	providers, err := NewFromSettings(settings, nil, logger.Discard())
	require.NoError(t, err)
	require.Len(t, providers, 3)

	assert.Equal(t, SourceWikimedia, providers[0].Name())
	assert.Equal(t, SourceUnsplash, providers[1].Name())
	assert.Equal(t, SourceBing, providers[2].Name())

	assert.IsType(t, &WikimediaProvider{}, providers[0])
	bing, ok := providers[2].(*BingProvider)
	require.True(t, ok)
	assert.NotNil(t, bing.limiter)
	assert.Equal(t, 5*time.Second, bing.timeout)
}

func TestNewFromSettings_WrapsWithCache(t *testing.T) {
	t.Parallel()

	settings := &conf.ProvidersSettings{
		Order:     []string{conf.ProviderWikimedia},
		CacheTTL:  time.Minute,
		Wikimedia: conf.ProviderSettings{Enabled: true},
	}

	providers, err := NewFromSettings(settings, nil, logger.Discard())
	require.NoError(t, err)
	require.Len(t, providers, 1)

	cached, ok := providers[0].(*CachedProvider)
	require.True(t, ok)
	assert.Equal(t, SourceWikimedia, cached.Name())
}

func TestNewFromSettings_UnknownProvider(t *testing.T) {
	t.Parallel()

	settings := &conf.ProvidersSettings{Order: []string{"istock"}}

	providers, err := NewFromSettings(settings, nil, logger.Discard())
	require.Error(t, err)
	assert.Nil(t, providers)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
