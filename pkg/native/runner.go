// Package native runs external parser and printer tools. Each call is a
// synchronous subprocess with an explicit timeout whose failures come back as
// MetaAST error values.
package native

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// ExitSyntaxError is the exit status bundled scripts use to report that the
// input does not parse.
const ExitSyntaxError = 2

// DefaultTimeout bounds a tool call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

const (
	tracerName = "metaast/native"
	spanPrefix = "native."

	// maxReasonLen caps the stderr excerpt carried in error reasons.
	maxReasonLen = 512

	// waitDelay bounds the wait for output pipes after the tool is killed;
	// a grandchild may still hold them open.
	waitDelay = 2 * time.Second
)

// ErrToolNotFound is wrapped when the tool executable is not on PATH.
var ErrToolNotFound = errors.New("tool not found")

// Observer receives one call per tool invocation.
type Observer interface {
	ObserveToolCall(ctx context.Context, language meta.Language, command string, elapsed time.Duration, err error)
}

// Runner invokes one external tool.
type Runner struct {
	tracer   trace.Tracer
	logger   *slog.Logger
	observer Observer
	language meta.Language
	command  string
	timeout  time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(runner *Runner) {
		if timeout > 0 {
			runner.timeout = timeout
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(runner *Runner) {
		runner.logger = logger
	}
}

// WithTracer sets the tracer used for per-call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(runner *Runner) {
		runner.tracer = tracer
	}
}

// WithObserver sets the tool call observer.
func WithObserver(observer Observer) Option {
	return func(runner *Runner) {
		runner.observer = observer
	}
}

// NewRunner creates a runner for command. Errors it returns name language.
func NewRunner(language meta.Language, command string, opts ...Option) *Runner {
	runner := &Runner{
		language: language,
		command:  command,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Command returns the executable the runner invokes.
func (runner *Runner) Command() string {
	return runner.command
}

// Available reports whether the executable can be found.
func (runner *Runner) Available() bool {
	_, err := exec.LookPath(runner.command)

	return err == nil
}

// Run executes the tool with args, feeding stdin, and returns its stdout.
// Exit status ExitSyntaxError yields a SyntaxError carrying the tool's
// stderr; every other failure yields an ExternalToolFailure.
func (runner *Runner) Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	ctx, span := runner.tracer.Start(ctx, spanPrefix+string(runner.language),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("tool.command", runner.command),
			attribute.String("metaast.language", string(runner.language)),
			attribute.Int("tool.stdin.bytes", len(stdin)),
		),
	)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, runner.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(callCtx, runner.command, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if err == nil {
		runner.observe(ctx, elapsed, nil)
		span.SetAttributes(attribute.Int("tool.stdout.bytes", stdout.Len()))
		runner.logger.DebugContext(ctx, "tool call done",
			"command", runner.command, "elapsed", elapsed, "stdout_bytes", stdout.Len())

		return stdout.Bytes(), nil
	}

	toolErr := runner.translate(callCtx, err, stderr.String())
	runner.observe(ctx, elapsed, toolErr)

	span.RecordError(toolErr)
	span.SetStatus(codes.Error, string(meta.CodeOf(toolErr)))
	runner.logger.DebugContext(ctx, "tool call failed",
		"command", runner.command, "elapsed", elapsed, "error", toolErr)

	return nil, toolErr
}

func (runner *Runner) observe(ctx context.Context, elapsed time.Duration, err error) {
	if runner.observer != nil {
		runner.observer.ObserveToolCall(ctx, runner.language, runner.command, elapsed, err)
	}
}

func (runner *Runner) translate(callCtx context.Context, err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return meta.NewToolFailure(runner.language, runner.command,
			fmt.Errorf("%w: %w", ErrToolNotFound, err))
	}

	if ctxErr := callCtx.Err(); ctxErr != nil {
		reason := fmt.Sprintf("%s did not finish within %s", runner.command, runner.timeout)

		return meta.NewToolFailure(runner.language, reason, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitSyntaxError {
		return meta.NewSyntaxError(runner.language, excerpt(stderr), nil)
	}

	reason := runner.command
	if text := excerpt(stderr); text != "" {
		reason += ": " + text
	}

	return meta.NewToolFailure(runner.language, reason, err)
}

// excerpt trims tool output to a single bounded reason string.
func excerpt(stderr string) string {
	text := strings.TrimSpace(stderr)
	if len(text) > maxReasonLen {
		cut := maxReasonLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}

		text = text[:cut] + "..."
	}

	return text
}
