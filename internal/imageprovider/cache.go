package imageprovider

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

// CachedProvider memoizes another provider's non-empty results for a TTL.
type CachedProvider struct {
	inner   Provider
	cache   *cache.Cache
	metrics *metrics.ImageProviderMetrics
}

// NewCachedProvider wraps inner. cleanupInterval controls how often expired
// entries are purged in the background; 0 disables the janitor goroutine and
// leaves expiry checks to lookups.
func NewCachedProvider(inner Provider, ttl, cleanupInterval time.Duration, m *metrics.ImageProviderMetrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   cache.New(ttl, cleanupInterval),
		metrics: m,
	}
}

func (c *CachedProvider) Name() Source { return c.inner.Name() }

// Fetch returns the cached URLs for the same phrasings and size, calling the
// wrapped provider on a miss.
func (c *CachedProvider) Fetch(ctx context.Context, q Query, maxResults int) []string {
	key := cacheKey(q, maxResults)

	if v, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheLookup(string(c.inner.Name()), true)
		return slices.Clone(v.([]string))
	}
	c.metrics.RecordCacheLookup(string(c.inner.Name()), false)

	urls := c.inner.Fetch(ctx, q, maxResults)
	if len(urls) > 0 {
		c.cache.SetDefault(key, slices.Clone(urls))
	}
	return urls
}

// Len returns the number of cached result sets, including expired ones not yet purged.
func (c *CachedProvider) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(q Query, maxResults int) string {
	phrases := Phrasings(q)
	for i := range phrases {
		phrases[i] = strings.ToLower(phrases[i])
	}
	return strings.Join(phrases, "\x1f") + "\x1e" + strconv.Itoa(maxResults)
}
