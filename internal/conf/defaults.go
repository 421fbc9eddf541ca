// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultProviderOrder is the provider cascade, free and reliable sources first.
var DefaultProviderOrder = []string{
	ProviderUnsplash,
	ProviderPexels,
	ProviderWikimedia,
	ProviderBrave,
	ProviderBing,
}

// DefaultFallbackImages are generic nature and science photographs.
var DefaultFallbackImages = []string{
	"https://images.unsplash.com/photo-1441974231531-c6227db76b6e?w=800&q=90",
	"https://images.unsplash.com/photo-1489330911046-c894fdcc538d?w=800&q=90",
	"https://images.unsplash.com/photo-1619451334792-850e73b47241?w=800&q=90",
	"https://images.unsplash.com/photo-1551085254-e96b210db58a?w=800&q=90",
}

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("providers.order", DefaultProviderOrder)
	v.SetDefault("providers.timeout", 10*time.Second)
	v.SetDefault("providers.cache_ttl", 15*time.Minute)
	v.SetDefault("providers.contact", "https://github.com/srthknk/biomuseum")

	v.SetDefault("providers.unsplash.enabled", true)
	v.SetDefault("providers.unsplash.endpoint", "https://api.unsplash.com")
	v.SetDefault("providers.unsplash.rate_limit", 1.0)
	v.SetDefault("providers.unsplash.burst", 3)

	v.SetDefault("providers.pexels.enabled", true)
	v.SetDefault("providers.pexels.endpoint", "https://api.pexels.com")
	v.SetDefault("providers.pexels.rate_limit", 2.0)
	v.SetDefault("providers.pexels.burst", 3)

	v.SetDefault("providers.wikimedia.enabled", true)
	v.SetDefault("providers.wikimedia.endpoint", "https://commons.wikimedia.org/w/api.php")
	v.SetDefault("providers.wikimedia.rate_limit", 5.0)
	v.SetDefault("providers.wikimedia.burst", 5)

	v.SetDefault("providers.brave.enabled", true)
	v.SetDefault("providers.brave.endpoint", "https://api.search.brave.com")
	v.SetDefault("providers.brave.rate_limit", 1.0)
	v.SetDefault("providers.brave.burst", 1)

	v.SetDefault("providers.bing.enabled", true)
	v.SetDefault("providers.bing.endpoint", "https://api.bing.microsoft.com")
	v.SetDefault("providers.bing.rate_limit", 3.0)
	v.SetDefault("providers.bing.burst", 3)

	v.SetDefault("validator.backend", BackendGemini)
	v.SetDefault("validator.gemini.model", "gemini-2.0-flash")
	v.SetDefault("validator.gemini.endpoint", "https://generativelanguage.googleapis.com")
	v.SetDefault("validator.openai.model", "gpt-4o-mini")
	v.SetDefault("validator.openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("validator.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("validator.anthropic.endpoint", "https://api.anthropic.com")
	v.SetDefault("validator.download_timeout", 10*time.Second)
	v.SetDefault("validator.classifier_timeout", 30*time.Second)
	v.SetDefault("validator.max_image_bytes", 10<<20)
	v.SetDefault("validator.optimistic_fallback", true)
	v.SetDefault("validator.unconfigured_confidence", 75)
	v.SetDefault("validator.unreachable_confidence", 70)

	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.ttl", 7*24*time.Hour)
	v.SetDefault("cache.cache_transient", false)
	v.SetDefault("cache.store", StoreNone)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "biomuseum:validation:")
	v.SetDefault("cache.sql.path", "data/validation-cache.db")
	v.SetDefault("cache.sql.dsn", "")

	v.SetDefault("pipeline.default_count", 6)
	v.SetDefault("pipeline.max_count", 20)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.fallback_images", DefaultFallbackImages)

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.body_limit", "64K")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("sentry.debug", false)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/biomuseum.log")
}
