// Package observability wires OpenTelemetry tracing and metrics plus
// structured logging for metaast binaries and library users.
package observability

import "log/slog"

// AppMode identifies how metaast is being driven.
type AppMode string

const (
	// ModeCLI is the metaast command line.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an embedding program calling the packages directly.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName = "metaast"

	defaultShutdownTimeoutSec = 5
)

// Config holds all observability settings.
type Config struct {
	// OTLPHeaders are extra gRPC metadata headers sent to the collector.
	OTLPHeaders map[string]string

	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is the collector address, e.g. "localhost:4317". Empty
	// disables export and every provider becomes a no-op.
	OTLPEndpoint string

	// SampleRatio applies when DebugTrace is off and no OTEL_TRACES_SAMPLER
	// is set. Zero samples every root span.
	SampleRatio float64

	LogLevel slog.Level

	ShutdownTimeoutSec int

	OTLPInsecure bool

	// DebugTrace samples every span and logs attributes the filter drops.
	DebugTrace bool

	LogJSON bool
}

// DefaultConfig returns a working zero-export configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
