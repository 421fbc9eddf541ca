package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedCentral(t *testing.T, cfg *LoggingConfig) (*CentralLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cl, err := NewCentralLoggerWithWriter(cfg, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })
	return cl, &buf
}

func TestModuleLoggerAddsModuleAndFields(t *testing.T) {
	t.Parallel()

	cl, buf := newBufferedCentral(t, &LoggingConfig{DefaultLevel: "debug", Console: &ConsoleOutput{Enabled: true, Level: "debug"}})

	log := cl.Module("pipeline").Module("orchestrator").With(String("organism", "Bengal Tiger"))
	log.Info("run finished", Int("accepted", 3), Error(errors.New("none")))

	out := buf.String()
	assert.Contains(t, out, "module=pipeline.orchestrator")
	assert.Contains(t, out, `organism="Bengal Tiger"`)
	assert.Contains(t, out, "accepted=3")
	assert.Contains(t, out, "error=none")
}

func TestModuleLevelsFilterRecords(t *testing.T) {
	t.Parallel()

	cl, buf := newBufferedCentral(t, &LoggingConfig{
		DefaultLevel: "info",
		Console:      &ConsoleOutput{Enabled: true, Level: "trace"},
		ModuleLevels: map[string]string{"validator": "warn"},
	})

	cl.Module("validator").Info("hidden")
	cl.Module("validator").Warn("shown")
	cl.Module("imageprovider").Debug("hidden too")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	cl, buf := newBufferedCentral(t, &LoggingConfig{})
	ctx := WithTraceID(context.Background(), "abcd1234")

	cl.Module("api").WithContext(ctx).Info("request")
	cl.Module("api").WithContext(context.Background()).Info("no trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=abcd1234")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewTestLogger(&buf)
	log.Info("calling provider",
		String("api_key", "super-secret"),
		String("url", "https://api.unsplash.com/search/photos?client_id=abc123&query=tiger"))

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "abc123")
	assert.Contains(t, out, "query=tiger")
}

func TestFileOutputWritesJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, _ := newBufferedCentral(t, &LoggingConfig{
		Console:    &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{Enabled: true, Path: path},
	})

	cl.Module("cmd").Info("started", Bool("serve", true))
	require.NoError(t, cl.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
	assert.Contains(t, string(data), `"serve":true`)
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}
