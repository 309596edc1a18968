package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/metaast/pkg/observability"
)

func recordSpan(t *testing.T, logger *slog.Logger, attrs ...attribute.KeyValue) map[string]any {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	kept := make(map[string]any, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		kept[string(kv.Key)] = kv.Value.AsInterface()
	}

	require.NoError(t, provider.Shutdown(context.Background()))

	return kept
}

func TestAttributeFilter_KeepsMetaastNamespaces(t *testing.T) {
	t.Parallel()

	kept := recordSpan(t, nil,
		attribute.String("metaast.language", "python"),
		attribute.Int("analysis.issues", 3),
		attribute.String("tool.command", "python3"),
		attribute.String("error.type", "timeout"),
		attribute.Bool("error", true),
	)

	assert.Equal(t, "python", kept["metaast.language"])
	assert.Equal(t, int64(3), kept["analysis.issues"])
	assert.Equal(t, "python3", kept["tool.command"])
	assert.Equal(t, "timeout", kept["error.type"])
	assert.Equal(t, true, kept["error"])
}

func TestAttributeFilter_DropsSourceAndUnknownKeys(t *testing.T) {
	t.Parallel()

	kept := recordSpan(t, nil,
		attribute.String("metaast.source", "x + 5"),
		attribute.String("tool.stdin", "x + 5"),
		attribute.String("user.email", "alice@example.com"),
		attribute.String("http.method", "GET"),
		attribute.Int("tool.stdin.bytes", 5),
	)

	assert.Equal(t, map[string]any{"tool.stdin.bytes": int64(5)}, kept)
}

func TestAttributeFilter_LogsDroppedKeys(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	recordSpan(t, logger, attribute.String("user.secret", "val"))

	assert.Contains(t, logs.String(), "user.secret")
	assert.Contains(t, logs.String(), "dropped")
}
