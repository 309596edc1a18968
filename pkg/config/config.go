// Package config loads metaast settings from a .metaast.yaml file and
// METAAST_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/adapter/elixir"
	"github.com/Sumatoshi-tech/metaast/pkg/adapter/python"
	"github.com/Sumatoshi-tech/metaast/pkg/analysis"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
	"github.com/Sumatoshi-tech/metaast/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidFrontend    = errors.New("frontend must be sitter or tool")
	ErrEmptyCommand       = errors.New("tool command is empty")
	ErrInvalidTimeout     = errors.New("tool timeout must be positive")
	ErrInvalidWorkers     = errors.New("batch workers must be positive")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const (
	configName = ".metaast"
	envPrefix  = "METAAST"
)

// Config holds every metaast setting.
type Config struct {
	Analysis  analysis.Config `mapstructure:"analysis"`
	Python    LanguageConfig  `mapstructure:"python"`
	Elixir    LanguageConfig  `mapstructure:"elixir"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

// LanguageConfig selects how one language is parsed and printed.
type LanguageConfig struct {
	Frontend string        `mapstructure:"frontend"`
	Command  string        `mapstructure:"command"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Headers         string        `mapstructure:"headers"`
	Environment     string        `mapstructure:"environment"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Insecure        bool          `mapstructure:"insecure"`
	DebugTrace      bool          `mapstructure:"debug_trace"`
}

// BatchConfig bounds batch conversion.
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoadConfig reads configPath, or .metaast.yaml from the working directory
// and then the home directory when configPath is empty, and overlays
// METAAST_ environment variables such as METAAST_PYTHON_FRONTEND.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config

	if err := viperCfg.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	for name, command := range map[string]string{"python": DefaultPythonCommand, "elixir": DefaultElixirCommand} {
		viperCfg.SetDefault(name+".frontend", DefaultFrontend)
		viperCfg.SetDefault(name+".command", command)
		viperCfg.SetDefault(name+".timeout", DefaultToolTimeout)
	}

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.endpoint", "")
	viperCfg.SetDefault("telemetry.headers", "")
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultShutdownTimeout)
	viperCfg.SetDefault("telemetry.insecure", false)
	viperCfg.SetDefault("telemetry.debug_trace", false)

	viperCfg.SetDefault("batch.workers", DefaultWorkers)
}

// Validate reports the first invalid setting.
func (config *Config) Validate() error {
	if err := config.Python.validate(); err != nil {
		return fmt.Errorf("python: %w", err)
	}

	if err := config.Elixir.validate(); err != nil {
		return fmt.Errorf("elixir: %w", err)
	}

	if _, err := parseLevel(config.Logging.Level); err != nil {
		return err
	}

	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	if config.Batch.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Batch.Workers)
	}

	return nil
}

func (language LanguageConfig) validate() error {
	switch language.Frontend {
	case FrontendSitter:
		return nil
	case FrontendTool:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrontend, language.Frontend)
	}

	if strings.TrimSpace(language.Command) == "" {
		return ErrEmptyCommand
	}

	if language.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, language.Timeout)
	}

	return nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	return level, nil
}

// Observability converts the logging and telemetry settings.
func (config *Config) Observability(version string) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version
	obsCfg.Environment = config.Telemetry.Environment
	obsCfg.OTLPEndpoint = config.Telemetry.Endpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(config.Telemetry.Headers)
	obsCfg.OTLPInsecure = config.Telemetry.Insecure
	obsCfg.SampleRatio = config.Telemetry.SampleRatio
	obsCfg.DebugTrace = config.Telemetry.DebugTrace
	obsCfg.LogJSON = config.Logging.Format == "json"
	obsCfg.ShutdownTimeoutSec = int(config.Telemetry.ShutdownTimeout / time.Second)

	if level, err := parseLevel(config.Logging.Level); err == nil {
		obsCfg.LogLevel = level
	}

	return obsCfg
}

// Bindings builds one binding per language with the configured frontends.
// Tool frontends share runnerOpts.
func (config *Config) Bindings(runnerOpts ...native.Option) []adapter.Binding {
	pythonBinding := python.Bind(python.NewSitterFrontend())
	if config.Python.Frontend == FrontendTool {
		runner := native.NewRunner(meta.LanguagePython, config.Python.Command,
			slices.Concat(runnerOpts, []native.Option{native.WithTimeout(config.Python.Timeout)})...)
		pythonBinding = python.Bind(python.NewToolFrontend(runner))
	}

	elixirBinding := elixir.Bind(elixir.NewSitterFrontend())
	if config.Elixir.Frontend == FrontendTool {
		runner := native.NewRunner(meta.LanguageElixir, config.Elixir.Command,
			slices.Concat(runnerOpts, []native.Option{native.WithTimeout(config.Elixir.Timeout)})...)
		elixirBinding = elixir.Bind(elixir.NewToolFrontend(runner))
	}

	return []adapter.Binding{pythonBinding, elixirBinding}
}
