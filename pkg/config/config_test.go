package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/config"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".metaast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.FrontendSitter, cfg.Python.Frontend)
	assert.Equal(t, "python3", cfg.Python.Command)
	assert.Equal(t, "elixir", cfg.Elixir.Command)
	assert.Equal(t, config.DefaultToolTimeout, cfg.Elixir.Timeout)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultWorkers, cfg.Batch.Workers)
	assert.Empty(t, cfg.Analysis.Enabled)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `python:
  frontend: tool
  command: /usr/bin/python3.12
  timeout: 5s
elixir:
  frontend: tool
logging:
  level: debug
  format: json
telemetry:
  endpoint: localhost:4317
  headers: "x-team=ast"
  sample_ratio: 0.25
  insecure: true
batch:
  workers: 8
analysis:
  enabled: [native_escape]
  options:
    native_escape:
      severity: error
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.LanguageConfig{Frontend: "tool", Command: "/usr/bin/python3.12", Timeout: 5 * time.Second}, cfg.Python)
	assert.Equal(t, config.FrontendTool, cfg.Elixir.Frontend)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, []string{"native_escape"}, cfg.Analysis.Enabled)
	assert.Equal(t, "error", cfg.Analysis.Options["native_escape"]["severity"])

	obsCfg := cfg.Observability("1.0.0")
	assert.Equal(t, "1.0.0", obsCfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", obsCfg.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-team": "ast"}, obsCfg.OTLPHeaders)
	assert.True(t, obsCfg.OTLPInsecure)
	assert.True(t, obsCfg.LogJSON)
	assert.Equal(t, slog.LevelDebug, obsCfg.LogLevel)
	assert.InDelta(t, 0.25, obsCfg.SampleRatio, 1e-9)
	assert.Equal(t, 5, obsCfg.ShutdownTimeoutSec)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("METAAST_PYTHON_FRONTEND", "tool")
	t.Setenv("METAAST_BATCH_WORKERS", "2")

	cfg, err := config.LoadConfig(writeConfig(t, "batch:\n  workers: 16\n"))
	require.NoError(t, err)

	assert.Equal(t, config.FrontendTool, cfg.Python.Frontend)
	assert.Equal(t, 2, cfg.Batch.Workers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    error
		name    string
		content string
	}{
		{name: "frontend", content: "python:\n  frontend: wasm\n", want: config.ErrInvalidFrontend},
		{name: "command", content: "elixir:\n  frontend: tool\n  command: ' '\n", want: config.ErrEmptyCommand},
		{name: "timeout", content: "python:\n  frontend: tool\n  timeout: 0s\n", want: config.ErrInvalidTimeout},
		{name: "workers", content: "batch:\n  workers: 0\n", want: config.ErrInvalidWorkers},
		{name: "level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "format", content: "logging:\n  format: xml\n", want: config.ErrInvalidLogFormat},
		{name: "ratio", content: "telemetry:\n  sample_ratio: 2\n", want: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestBindings_Sitter(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	bindings := cfg.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, meta.LanguagePython, bindings[0].Language())
	assert.Equal(t, meta.LanguageElixir, bindings[1].Language())

	for _, binding := range bindings {
		doc, err := binding.Parse(context.Background(), "x + 5")
		require.NoError(t, err)
		assert.Equal(t, meta.KindBinaryOp, doc.AST.Kind())
	}
}
