// Package main provides the metaast command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/analysis"
	"github.com/Sumatoshi-tech/metaast/pkg/config"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
	"github.com/Sumatoshi-tech/metaast/pkg/observability"
	"github.com/Sumatoshi-tech/metaast/pkg/version"
)

// Output formats shared by several commands.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTree  = "tree"
	formatTable = "table"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	cfgFile string
	verbose bool
	noColor bool
}

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *adapter.Registry
	analyzer *analysis.Runner
	metrics  *observability.ConversionMetrics
	shutdown func(ctx context.Context) error
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "metaast",
		Short: "Layered language-neutral ASTs for Python and Elixir",
		Long: `metaast converts Python and Elixir source into MetaAST, a layered
language-neutral syntax tree, checks its conformance, and converts it back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor && !color.NoColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./.metaast.yaml or $HOME/.metaast.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		parseCmd(opts),
		validateCmd(opts),
		roundtripCmd(opts),
		translateCmd(opts),
		analyzeCmd(opts),
		schemaCmd(),
		versionCmd(),
	)

	return rootCmd
}

// open loads configuration and wires telemetry, adapters and analyzers.
func (opts *rootOptions) open() (*app, error) {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.Observability(version.Current().Version)
	if opts.verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewConversionMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	bindings := cfg.Bindings(
		native.WithLogger(providers.Logger),
		native.WithTracer(providers.Tracer),
		native.WithObserver(metrics),
	)

	return &app{
		cfg:    cfg,
		logger: providers.Logger,
		registry: adapter.NewRegistry(bindings,
			adapter.WithLogger(providers.Logger),
			adapter.WithObserver(metrics),
			adapter.WithWorkers(cfg.Batch.Workers),
		),
		analyzer: analysis.NewRunner(analysis.DefaultRegistry(),
			analysis.WithLogger(providers.Logger),
			analysis.WithTracer(providers.Tracer),
		),
		metrics:  metrics,
		shutdown: providers.Shutdown,
	}, nil
}

// run opens the app, calls fn, and flushes telemetry whatever fn returned.
func (opts *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, application *app) error) error {
	application, err := opts.open()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runErr := fn(ctx, application)

	if shutdownErr := application.shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		application.logger.WarnContext(ctx, "telemetry shutdown failed", "error", shutdownErr)
	}

	return runErr
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "metaast %s\n", version.Current())
		},
	}
}

// writeOutput sends data to path, or to fallback when path is empty.
func writeOutput(path string, fallback io.Writer, data []byte) error {
	if path == "" {
		_, err := fallback.Write(data)

		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
