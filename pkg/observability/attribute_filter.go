package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// allowedPrefixes are the span attribute namespaces metaast emits.
//
//nolint:gochecknoglobals // Read-only allow-list.
var allowedPrefixes = []string{
	"metaast.",
	"analysis.",
	"conversion.",
	"tool.",
	"error.",
}

// blockedKeys carry source text or tool payloads and never leave the process,
// even under an allowed prefix.
//
//nolint:gochecknoglobals // Read-only deny-list.
var blockedKeys = map[string]bool{
	"metaast.source":  true,
	"tool.stdin":      true,
	"tool.stdout":     true,
	"tool.stderr":     true,
	"conversion.text": true,
}

// attributeFilter strips span attributes outside the allow-list before the
// delegate processor sees them.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate. Dropped keys are logged at warn level
// when logger is non-nil.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

func (filter *attributeFilter) OnStart(parent context.Context, span sdktrace.ReadWriteSpan) {
	filter.delegate.OnStart(parent, span)
}

func (filter *attributeFilter) OnEnd(span sdktrace.ReadOnlySpan) {
	filter.delegate.OnEnd(&filteredSpan{ReadOnlySpan: span, filter: filter})
}

func (filter *attributeFilter) Shutdown(ctx context.Context) error {
	if err := filter.delegate.Shutdown(ctx); err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (filter *attributeFilter) ForceFlush(ctx context.Context) error {
	if err := filter.delegate.ForceFlush(ctx); err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (filter *attributeFilter) allows(key string) bool {
	if key == "error" {
		return true
	}

	if !blockedKeys[key] {
		for _, prefix := range allowedPrefixes {
			if strings.HasPrefix(key, prefix) {
				return true
			}
		}
	}

	if filter.logger != nil {
		filter.logger.Warn("span attribute dropped", "key", key)
	}

	return false
}

// filteredSpan is a read-only view exposing only allowed attributes.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

func (span *filteredSpan) Attributes() []attribute.KeyValue {
	original := span.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(original))

	for _, kv := range original {
		if span.filter.allows(string(kv.Key)) {
			kept = append(kept, kv)
		}
	}

	return kept
}
