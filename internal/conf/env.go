// env.go - Environment variable configuration and validation for BioMuseum
package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix enables BIOMUSEUM_<SECTION>_<KEY> overrides for every setting.
const envPrefix = "BIOMUSEUM"

// DotEnvFile is the optional file of KEY=value pairs loaded before binding.
var DotEnvFile = ".env"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVars   []string           // Environment variable names, first set one wins
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Image providers
		{"providers.unsplash.api_key", []string{"UNSPLASH_ACCESS_KEY"}, nil},
		{"providers.pexels.api_key", []string{"PEXELS_API_KEY"}, nil},
		{"providers.brave.api_key", []string{"BRAVE_SEARCH_API_KEY"}, nil},
		{"providers.bing.api_key", []string{"BING_SEARCH_API_KEY"}, nil},

		// Vision classifiers
		{"validator.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, nil},
		{"validator.openai.api_key", []string{"OPENAI_API_KEY"}, nil},
		{"validator.anthropic.api_key", []string{"ANTHROPIC_API_KEY"}, nil},
		{"validator.backend", []string{"BIOMUSEUM_VALIDATOR_BACKEND"}, validateEnvBackend},

		// Cache and telemetry
		{"cache.redis.addr", []string{"REDIS_ADDR"}, validateEnvHostPort},
		{"cache.redis.password", []string{"REDIS_PASSWORD"}, nil},
		{"sentry.dsn", []string{"SENTRY_DSN"}, nil},

		// Application
		{"server.listen", []string{"BIOMUSEUM_LISTEN"}, validateEnvHostPort},
		{"logging.default_level", []string{"BIOMUSEUM_LOG_LEVEL"}, validateEnvLogLevel},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warnings []string

	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, name := range binding.EnvVars {
			if value := os.Getenv(name); value != "" {
				if err := binding.Validate(value); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", name, value, err))
				}
				break
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// loadDotEnv loads DotEnvFile into the process environment. Variables that
// are already set are not overridden. A missing file is not an error.
func loadDotEnv() error {
	if DotEnvFile == "" {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", DotEnvFile, err)
	}
	return nil
}

// Environment variable validation functions

func validateEnvBackend(value string) error {
	switch value {
	case BackendGemini, BackendOpenAI, BackendAnthropic, BackendNone:
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join([]string{BackendGemini, BackendOpenAI, BackendAnthropic, BackendNone}, ", "))
}

func validateEnvHostPort(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of: trace, debug, info, warn, error")
}
