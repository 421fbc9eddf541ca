// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		func(s *Settings) []string { return validateProvidersSettings(&s.Providers) },
		func(s *Settings) []string { return validateValidatorSettings(&s.Validator) },
		func(s *Settings) []string { return validateCacheSettings(&s.Cache) },
		func(s *Settings) []string { return validatePipelineSettings(&s.Pipeline) },
		validateServerSettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateProvidersSettings(p *ProvidersSettings) []string {
	var errs []string

	if len(p.Order) == 0 {
		errs = append(errs, "providers.order must name at least one provider")
	}

	seen := make(map[string]bool, len(p.Order))
	for _, name := range p.Order {
		settings, ok := p.Provider(name)
		if !ok {
			errs = append(errs, fmt.Sprintf("providers.order: unknown provider %q", name))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("providers.order: provider %q listed twice", name))
		}
		seen[name] = true

		if settings.RateLimit < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.rate_limit must be non-negative", name))
		}
		if settings.Enabled && !isHTTPURL(settings.Endpoint) {
			errs = append(errs, fmt.Sprintf("providers.%s.endpoint must be an http(s) URL, got %q", name, settings.Endpoint))
		}
	}

	if p.Timeout <= 0 {
		errs = append(errs, "providers.timeout must be positive")
	}
	if p.CacheTTL < 0 {
		errs = append(errs, "providers.cache_ttl must be non-negative")
	}

	return errs
}

func validateValidatorSettings(v *ValidatorSettings) []string {
	var errs []string

	switch v.Backend {
	case BackendGemini, BackendOpenAI, BackendAnthropic, BackendNone:
	default:
		errs = append(errs, fmt.Sprintf("validator.backend %q is not one of gemini, openai, anthropic, none", v.Backend))
	}

	if c := v.Classifier(); c != nil {
		if c.Model == "" {
			errs = append(errs, fmt.Sprintf("validator.%s.model must be set", v.Backend))
		}
		if !isHTTPURL(c.Endpoint) {
			errs = append(errs, fmt.Sprintf("validator.%s.endpoint must be an http(s) URL", v.Backend))
		}
	}

	if v.DownloadTimeout <= 0 {
		errs = append(errs, "validator.download_timeout must be positive")
	}
	if v.ClassifierTimeout <= 0 {
		errs = append(errs, "validator.classifier_timeout must be positive")
	}
	if v.MaxImageBytes <= 0 {
		errs = append(errs, "validator.max_image_bytes must be positive")
	}
	if v.UnconfiguredConfidence < 0 || v.UnconfiguredConfidence > 100 {
		errs = append(errs, fmt.Sprintf("validator.unconfigured_confidence must be between 0 and 100, got %d", v.UnconfiguredConfidence))
	}
	if v.UnreachableConfidence < 0 || v.UnreachableConfidence > 100 {
		errs = append(errs, fmt.Sprintf("validator.unreachable_confidence must be between 0 and 100, got %d", v.UnreachableConfidence))
	}

	return errs
}

func validateCacheSettings(c *CacheSettings) []string {
	var errs []string

	if c.MaxEntries <= 0 {
		errs = append(errs, "cache.max_entries must be positive")
	}
	if c.TTL < 0 {
		errs = append(errs, "cache.ttl must be non-negative")
	}

	switch c.Store {
	case StoreNone, "":
	case StoreRedis:
		if err := validateEnvHostPort(c.Redis.Addr); err != nil {
			errs = append(errs, fmt.Sprintf("cache.redis.addr: %v", err))
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQL.Path) == "" {
			errs = append(errs, "cache.sql.path is required for the sqlite store")
		}
	case StoreMySQL:
		if strings.TrimSpace(c.SQL.DSN) == "" {
			errs = append(errs, "cache.sql.dsn is required for the mysql store")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.store %q is not one of none, redis, sqlite, mysql", c.Store))
	}

	return errs
}

func validatePipelineSettings(p *PipelineSettings) []string {
	var errs []string

	if p.DefaultCount <= 0 {
		errs = append(errs, "pipeline.default_count must be positive")
	}
	if p.MaxCount < p.DefaultCount {
		errs = append(errs, fmt.Sprintf("pipeline.max_count (%d) must not be below default_count (%d)", p.MaxCount, p.DefaultCount))
	}
	if p.Concurrency <= 0 {
		errs = append(errs, "pipeline.concurrency must be positive")
	}
	for _, u := range p.FallbackImages {
		if !isHTTPURL(u) {
			errs = append(errs, fmt.Sprintf("pipeline.fallback_images: %q is not an http(s) URL", u))
		}
	}

	return errs
}

func validateServerSettings(s *Settings) []string {
	var errs []string

	if _, _, err := net.SplitHostPort(s.Server.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("server.listen: %v", err))
	}
	if s.Server.ReadTimeout < 0 || s.Server.WriteTimeout < 0 || s.Server.ShutdownTimeout < 0 {
		errs = append(errs, "server.read_timeout, server.write_timeout and server.shutdown_timeout must not be negative")
	}
	if s.Metrics.Enabled && !strings.HasPrefix(s.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		errs = append(errs, "sentry.dsn is required when sentry is enabled")
	}
	if s.Sentry.SampleRate < 0 || s.Sentry.SampleRate > 1 {
		errs = append(errs, "sentry.sample_rate must be between 0 and 1")
	}

	return errs
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
