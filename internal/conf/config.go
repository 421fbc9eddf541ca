// config.go: BioMuseum configuration handling
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/srthknk/biomuseum/internal/logger"
)

// Provider names accepted in providers.order.
const (
	ProviderUnsplash  = "unsplash"
	ProviderPexels    = "pexels"
	ProviderWikimedia = "wikimedia"
	ProviderBrave     = "brave"
	ProviderBing      = "bing"
)

// Classifier backends accepted in validator.backend.
const (
	BackendGemini    = "gemini"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendNone      = "none"
)

// Validation cache stores accepted in cache.store.
const (
	StoreNone   = "none"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

// ProviderSettings contains settings for one image search provider.
type ProviderSettings struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`           // literal or ${VAR}
	APIKeyFile string  `yaml:"api_key_file" mapstructure:"api_key_file"` // takes precedence over api_key
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 disables limiting
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// ProvidersSettings contains the provider cascade settings.
type ProvidersSettings struct {
	Order     []string         `yaml:"order" mapstructure:"order"`       // priority order, first is queried first
	Timeout   time.Duration    `yaml:"timeout" mapstructure:"timeout"`   // per provider request
	CacheTTL  time.Duration    `yaml:"cache_ttl" mapstructure:"cache_ttl"` // 0 disables result caching
	Contact   string           `yaml:"contact" mapstructure:"contact"`   // contact URL or mail for the User-Agent
	Unsplash  ProviderSettings `yaml:"unsplash" mapstructure:"unsplash"`
	Pexels    ProviderSettings `yaml:"pexels" mapstructure:"pexels"`
	Wikimedia ProviderSettings `yaml:"wikimedia" mapstructure:"wikimedia"`
	Brave     ProviderSettings `yaml:"brave" mapstructure:"brave"`
	Bing      ProviderSettings `yaml:"bing" mapstructure:"bing"`
}

// Provider returns the settings for a provider by name.
func (p *ProvidersSettings) Provider(name string) (*ProviderSettings, bool) {
	switch name {
	case ProviderUnsplash:
		return &p.Unsplash, true
	case ProviderPexels:
		return &p.Pexels, true
	case ProviderWikimedia:
		return &p.Wikimedia, true
	case ProviderBrave:
		return &p.Brave, true
	case ProviderBing:
		return &p.Bing, true
	default:
		return nil, false
	}
}

// ClassifierSettings contains credentials and model for one vision backend.
type ClassifierSettings struct {
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	APIKeyFile string `yaml:"api_key_file" mapstructure:"api_key_file"`
	Model      string `yaml:"model" mapstructure:"model"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
}

// ValidatorSettings contains the image validation settings.
type ValidatorSettings struct {
	Backend           string             `yaml:"backend" mapstructure:"backend"`
	Gemini            ClassifierSettings `yaml:"gemini" mapstructure:"gemini"`
	OpenAI            ClassifierSettings `yaml:"openai" mapstructure:"openai"`
	Anthropic         ClassifierSettings `yaml:"anthropic" mapstructure:"anthropic"`
	DownloadTimeout   time.Duration      `yaml:"download_timeout" mapstructure:"download_timeout"`
	ClassifierTimeout time.Duration      `yaml:"classifier_timeout" mapstructure:"classifier_timeout"`
	MaxImageBytes     int64              `yaml:"max_image_bytes" mapstructure:"max_image_bytes"`

	// OptimisticFallback accepts images when the classifier cannot be used.
	OptimisticFallback     bool `yaml:"optimistic_fallback" mapstructure:"optimistic_fallback"`
	UnconfiguredConfidence int  `yaml:"unconfigured_confidence" mapstructure:"unconfigured_confidence"`
	UnreachableConfidence  int  `yaml:"unreachable_confidence" mapstructure:"unreachable_confidence"`
}

// Classifier returns the settings of the selected backend, nil for "none".
func (v *ValidatorSettings) Classifier() *ClassifierSettings {
	switch v.Backend {
	case BackendGemini:
		return &v.Gemini
	case BackendOpenAI:
		return &v.OpenAI
	case BackendAnthropic:
		return &v.Anthropic
	default:
		return nil
	}
}

// RedisSettings contains the shared cache tier connection.
type RedisSettings struct {
	Addr         string `yaml:"addr" mapstructure:"addr"`
	Password     string `yaml:"password" mapstructure:"password"`
	PasswordFile string `yaml:"password_file" mapstructure:"password_file"`
	DB           int    `yaml:"db" mapstructure:"db"`
	KeyPrefix    string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// SQLSettings contains the persistent cache tier connection.
type SQLSettings struct {
	Path string `yaml:"path" mapstructure:"path"` // sqlite database file
	DSN  string `yaml:"dsn" mapstructure:"dsn"`   // mysql data source name
}

// CacheSettings contains the validation cache settings.
type CacheSettings struct {
	MaxEntries     int           `yaml:"max_entries" mapstructure:"max_entries"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CacheTransient bool          `yaml:"cache_transient" mapstructure:"cache_transient"`
	Store          string        `yaml:"store" mapstructure:"store"`
	Redis          RedisSettings `yaml:"redis" mapstructure:"redis"`
	SQL            SQLSettings   `yaml:"sql" mapstructure:"sql"`
}

// PipelineSettings contains orchestrator settings.
type PipelineSettings struct {
	DefaultCount   int      `yaml:"default_count" mapstructure:"default_count"`
	MaxCount       int      `yaml:"max_count" mapstructure:"max_count"`
	Concurrency    int      `yaml:"concurrency" mapstructure:"concurrency"`
	FallbackImages []string `yaml:"fallback_images" mapstructure:"fallback_images"`
}

// ServerSettings contains the HTTP API settings.
type ServerSettings struct {
	Listen          string        `yaml:"listen" mapstructure:"listen"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"` // CORS origins
	BodyLimit       string        `yaml:"body_limit" mapstructure:"body_limit"`           // e.g. "64K"
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"` // must cover a full pipeline run
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// MetricsSettings contains Prometheus settings.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SentrySettings contains error telemetry settings.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	Debug       bool    `yaml:"debug" mapstructure:"debug"`
}

// Settings contains all configuration options for BioMuseum.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Providers ProvidersSettings    `yaml:"providers" mapstructure:"providers"`
	Validator ValidatorSettings    `yaml:"validator" mapstructure:"validator"`
	Cache     CacheSettings        `yaml:"cache" mapstructure:"cache"`
	Pipeline  PipelineSettings     `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerSettings       `yaml:"server" mapstructure:"server"`
	Metrics   MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml from the default paths, .env and the environment.
func Load() (*Settings, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit configuration file. An empty path
// searches the default locations.
func LoadFile(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v, err := initViper(configFile)
	if err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper creates a viper instance with defaults, env bindings and the
// configuration file, if one is found.
func initViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	for _, path := range GetDefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// defaults and environment only
			return v, nil
		}
		return nil, fmt.Errorf("fatal error reading config file: %w", err)
	}

	return v, nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "biomuseum"))
	}
	return append(paths, "/etc/biomuseum")
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
