package config

import (
	"time"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/adapter/elixir"
	"github.com/Sumatoshi-tech/metaast/pkg/adapter/python"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

// Frontend names.
const (
	// FrontendSitter parses in process with tree-sitter.
	FrontendSitter = "sitter"
	// FrontendTool runs the language's own toolchain as a subprocess.
	FrontendTool = "tool"
)

// Language defaults.
const (
	DefaultFrontend      = FrontendSitter
	DefaultPythonCommand = python.DefaultCommand
	DefaultElixirCommand = elixir.DefaultCommand
	DefaultToolTimeout   = native.DefaultTimeout
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Batch defaults.
const (
	DefaultWorkers = adapter.DefaultWorkers
)

// Telemetry defaults.
const (
	DefaultShutdownTimeout = 5 * time.Second
)
