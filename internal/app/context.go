package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/srthknk/biomuseum/internal/buildinfo"
	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/telemetry"
)

const flushTimeout = 2 * time.Second

// Context carries process-wide state shared by the CLI commands.
type Context struct {
	Build *buildinfo.Context

	// Set from persistent flags before Init.
	ConfigFile string
	Debug      bool

	Settings *conf.Settings
	Logger   *logger.CentralLogger

	// LogOutput receives console logs; stderr keeps stdout free for results.
	LogOutput io.Writer
}

// NewContext creates a Context for the given build.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build, LogOutput: os.Stderr}
}

// Init loads settings and sets up logging and telemetry.
func (c *Context) Init() error {
	settings, err := conf.LoadFile(c.ConfigFile)
	if err != nil {
		return err
	}
	if c.Debug {
		settings.Debug = true
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	c.Settings = settings

	central, err := logger.NewCentralLoggerWithWriter(&settings.Logging, c.LogOutput)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)
	c.Logger = central

	telemetry.Release = "biomuseum@" + c.Build.GetVersion()
	if err := telemetry.InitSentry(settings, central.Module("telemetry")); err != nil {
		central.Module("app").Warn("sentry initialization failed", logger.Error(err))
	}
	return nil
}

// Close flushes telemetry and the logger.
func (c *Context) Close() {
	telemetry.Flush(flushTimeout)
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}
