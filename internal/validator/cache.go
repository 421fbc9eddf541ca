package validator

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

const (
	defaultCacheEntries   = 10000
	defaultCacheTTL       = 7 * 24 * time.Hour
	defaultComputeTimeout = 2 * time.Minute
)

// Store is a cache tier shared across processes or restarts. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Outcome, bool, error)
	Set(ctx context.Context, key string, out Outcome, ttl time.Duration) error
	Close() error
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	MaxEntries int
	TTL        time.Duration
	// CacheTransient also keeps outcomes of download or classifier outages.
	CacheTransient bool
	// ComputeTimeout bounds a shared computation, which does not follow the
	// cancellation of any single caller.
	ComputeTimeout time.Duration
	// Store is an optional second tier consulted on in-process misses.
	Store   Store
	Metrics *metrics.ValidatorMetrics
	Logger  logger.Logger
}

type cacheEntry struct {
	outcome   Outcome
	expiresAt time.Time
}

// Cache memoizes validation outcomes by organism and image URL. Concurrent
// lookups of the same key share one computation.
type Cache struct {
	entries        *lru.Cache[string, cacheEntry]
	ttl            time.Duration
	cacheTransient bool
	computeTimeout time.Duration
	store          Store
	group          singleflight.Group
	metrics        *metrics.ValidatorMetrics
	log            logger.Logger
	now            func() time.Time
}

// NewCache creates a validation cache.
func NewCache(opts *CacheOptions) (*Cache, error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = defaultCacheEntries
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryImageCache).
			Context("max_entries", size).
			Build()
	}

	c := &Cache{
		entries:        entries,
		ttl:            opts.TTL,
		cacheTransient: opts.CacheTransient,
		computeTimeout: opts.ComputeTimeout,
		store:          opts.Store,
		metrics:        opts.Metrics,
		log:            opts.Logger,
		now:            time.Now,
	}
	if c.ttl <= 0 {
		c.ttl = defaultCacheTTL
	}
	if c.computeTimeout <= 0 {
		c.computeTimeout = defaultComputeTimeout
	}
	if c.log == nil {
		c.log = logger.Global().Module(componentName)
	}
	return c, nil
}

var organismFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeOrganism folds accents, case and whitespace so spelling variants
// of one name share cache entries.
func NormalizeOrganism(name string) string {
	folded, _, err := transform.String(organismFolder, name)
	if err != nil {
		folded = name
	}
	folded = cases.Fold().String(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Key returns the cache key for an image judged against an organism.
func Key(imageURL, organismName string) string {
	return NormalizeOrganism(organismName) + "|" + strings.TrimSpace(imageURL)
}

type flightResult struct {
	outcome Outcome
	cached  bool
}

// GetOrCompute returns the cached outcome for (imageURL, organismName) or
// runs compute and caches its result.
//
// Concurrent callers of one key share a computation that runs detached from
// their contexts, bounded by the compute timeout. A caller whose own context
// ends first gets a transient cancelled outcome; the others still receive
// the real verdict.
func (c *Cache) GetOrCompute(ctx context.Context, imageURL, organismName string, compute func(context.Context) Outcome) Outcome {
	key := Key(imageURL, organismName)

	if out, ok := c.memoryGet(key); ok {
		c.metrics.RecordCacheHit(metrics.TierMemory)
		return out
	}
	if ctx.Err() != nil {
		return cancelledOutcome()
	}

	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		return c.computeShared(flightCtx, key, compute), nil
	})

	select {
	case r := <-ch:
		res := r.Val.(flightResult)
		out := res.outcome
		out.Characteristics = slices.Clone(out.Characteristics)
		out.ServedFromCache = res.cached
		return out
	case <-ctx.Done():
		return cancelledOutcome()
	}
}

func (c *Cache) computeShared(ctx context.Context, key string, compute func(context.Context) Outcome) flightResult {
	if out, ok := c.memoryGet(key); ok {
		c.metrics.RecordCacheHit(metrics.TierMemory)
		return flightResult{outcome: out, cached: true}
	}

	if out, ok := c.storeGet(ctx, key); ok {
		c.metrics.RecordCacheHit(metrics.TierStore)
		c.memorySet(key, out)
		return flightResult{outcome: out, cached: true}
	}

	c.metrics.RecordCacheMiss()
	out := compute(ctx)
	if !out.Transient || c.cacheTransient {
		c.memorySet(key, out)
		c.storeSet(ctx, key, out)
	}
	return flightResult{outcome: out}
}

func cancelledOutcome() Outcome {
	return Outcome{Reason: ReasonCancelled, Characteristics: []string{}, Transient: true}
}

// Len returns the number of in-process entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Close releases the shared store, if any.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Cache) memoryGet(key string) (Outcome, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return Outcome{}, false
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		c.metrics.SetCacheEntries(c.entries.Len())
		return Outcome{}, false
	}
	out := e.outcome
	out.Characteristics = slices.Clone(out.Characteristics)
	out.ServedFromCache = true
	return out, true
}

func (c *Cache) memorySet(key string, out Outcome) {
	out.ServedFromCache = false
	out.Characteristics = slices.Clone(out.Characteristics)
	c.entries.Add(key, cacheEntry{outcome: out, expiresAt: c.now().Add(c.ttl)})
	c.metrics.SetCacheEntries(c.entries.Len())
}

func (c *Cache) storeGet(ctx context.Context, key string) (Outcome, bool) {
	if c.store == nil {
		return Outcome{}, false
	}
	out, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.RecordStoreError("get")
		c.log.WithContext(ctx).Warn("validation cache store lookup failed, treating as miss",
			logger.String("key", key), logger.Error(err))
		return Outcome{}, false
	}
	if !ok {
		return Outcome{}, false
	}
	out.ServedFromCache = true
	if out.Characteristics == nil {
		out.Characteristics = []string{}
	}
	return out, true
}

func (c *Cache) storeSet(ctx context.Context, key string, out Outcome) {
	if c.store == nil {
		return
	}
	out.ServedFromCache = false
	if err := c.store.Set(ctx, key, out, c.ttl); err != nil {
		c.metrics.RecordStoreError("set")
		c.log.WithContext(ctx).Warn("validation cache store write failed",
			logger.String("key", key), logger.Error(err))
	}
}

// Cached is an ImageValidator that consults a Cache before validating.
type Cached struct {
	inner ImageValidator
	cache *Cache
}

// NewCached wraps inner with cache.
func NewCached(inner ImageValidator, cache *Cache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) Validate(ctx context.Context, imageURL, organismName, scientificName string) Outcome {
	return c.cache.GetOrCompute(ctx, imageURL, organismName, func(ctx context.Context) Outcome {
		return c.inner.Validate(ctx, imageURL, organismName, scientificName)
	})
}
