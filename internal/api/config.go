// Package api provides the HTTP surface of BioMuseum: the verified image
// search endpoint, health and Prometheus metrics.
package api

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 3 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "64K"
	DefaultMetricsPath     = "/metrics"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen         string
	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // bounds a whole image search
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string

	MetricsEnabled bool
	MetricsPath    string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		MetricsEnabled:  true,
		MetricsPath:     DefaultMetricsPath,
	}
}

// ConfigFromSettings creates a Config from settings, keeping defaults for
// zero values.
func ConfigFromSettings(settings *conf.Settings) *Config {
	config := DefaultConfig()
	if settings == nil {
		return config
	}

	if settings.Server.Listen != "" {
		config.Listen = settings.Server.Listen
	}
	if len(settings.Server.AllowedOrigins) > 0 {
		config.AllowedOrigins = settings.Server.AllowedOrigins
	}
	if settings.Server.BodyLimit != "" {
		config.BodyLimit = settings.Server.BodyLimit
	}
	if settings.Server.ReadTimeout > 0 {
		config.ReadTimeout = settings.Server.ReadTimeout
	}
	if settings.Server.WriteTimeout > 0 {
		config.WriteTimeout = settings.Server.WriteTimeout
	}
	if settings.Server.ShutdownTimeout > 0 {
		config.ShutdownTimeout = settings.Server.ShutdownTimeout
	}

	config.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		config.MetricsPath = settings.Metrics.Path
	}
	config.Debug = settings.Debug

	return config
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("metrics path %q must start with /", c.MetricsPath)
	}
	return nil
}
