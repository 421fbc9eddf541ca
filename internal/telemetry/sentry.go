// Package telemetry wires opt-in Sentry error reporting into the error builder.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/logger"
)

// Release identifies this build in Sentry events.
var Release = "biomuseum@dev"

var initialized atomic.Bool

// InitSentry initializes Sentry when enabled in settings and routes
// EnhancedError reports to it. It is a no-op when Sentry is disabled.
func InitSentry(settings *conf.Settings, log logger.Logger) error {
	return initSentry(settings, log, nil)
}

func initSentry(settings *conf.Settings, log logger.Logger, transport sentry.Transport) error {
	if log == nil {
		log = logger.Global().Module("telemetry")
	}

	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       settings.Sentry.SampleRate,
		Debug:            settings.Sentry.Debug,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          Release,
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("application", "biomuseum")
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.Float64("sample_rate", settings.Sentry.SampleRate))

	return nil
}

// applyPrivacyFilters strips host identity and credentials from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = logger.RedactSensitiveData(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactSensitiveData(event.Exception[i].Value)
	}
	if event.Request != nil {
		event.Request.QueryString = ""
		event.Request.Cookies = ""
		event.Request.Headers = nil
	}

	return event
}

// Flush waits up to timeout for queued events. Safe to call when Sentry is disabled.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
