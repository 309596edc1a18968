package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/analysis"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

const (
	metricConversionsTotal   = "metaast.conversions.total"
	metricConversionDuration = "metaast.conversion.duration.seconds"
	metricConversionErrors   = "metaast.conversion.errors.total"
	metricToolCallsTotal     = "metaast.tool.calls.total"
	metricToolCallDuration   = "metaast.tool.call.duration.seconds"
	metricIssuesTotal        = "metaast.analysis.issues.total"
	metricFaultsTotal        = "metaast.analysis.faults.total"

	attrLanguage  = "language"
	attrOperation = "operation"
	attrStatus    = "status"
	attrCode      = "code"
	attrCommand   = "command"
	attrAnalyzer  = "analyzer"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries spans in-process conversions (sub-millisecond)
// up to tool calls near their timeout.
//
//nolint:gochecknoglobals // Read-only histogram layout.
var durationBucketBoundaries = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// ConversionMetrics records conversions, external tool calls and analyzer
// outcomes. It satisfies [adapter.Observer] and [native.Observer]. A nil
// *ConversionMetrics records nothing.
type ConversionMetrics struct {
	conversions        metric.Int64Counter
	conversionDuration metric.Float64Histogram
	conversionErrors   metric.Int64Counter
	toolCalls          metric.Int64Counter
	toolCallDuration   metric.Float64Histogram
	issues             metric.Int64Counter
	faults             metric.Int64Counter
}

var (
	_ adapter.Observer = (*ConversionMetrics)(nil)
	_ native.Observer  = (*ConversionMetrics)(nil)
)

// NewConversionMetrics creates the instruments on meter.
func NewConversionMetrics(meter metric.Meter) (*ConversionMetrics, error) {
	var (
		metrics ConversionMetrics
		err     error
	)

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
		unit   string
	}{
		{&metrics.conversions, metricConversionsTotal, "Parse and unparse calls", "{conversion}"},
		{&metrics.conversionErrors, metricConversionErrors, "Failed conversions by error code", "{error}"},
		{&metrics.toolCalls, metricToolCallsTotal, "External parser and printer invocations", "{call}"},
		{&metrics.issues, metricIssuesTotal, "Issues reported by analyzers", "{issue}"},
		{&metrics.faults, metricFaultsTotal, "Analyzers disabled after a failure", "{fault}"},
	}

	for _, counter := range counters {
		*counter.target, err = meter.Int64Counter(counter.name,
			metric.WithDescription(counter.desc), metric.WithUnit(counter.unit))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", counter.name, err)
		}
	}

	metrics.conversionDuration, err = meter.Float64Histogram(metricConversionDuration,
		metric.WithDescription("Conversion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricConversionDuration, err)
	}

	metrics.toolCallDuration, err = meter.Float64Histogram(metricToolCallDuration,
		metric.WithDescription("External tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallDuration, err)
	}

	return &metrics, nil
}

// ObserveConversion implements [adapter.Observer].
func (metrics *ConversionMetrics) ObserveConversion(
	ctx context.Context, language meta.Language, operation string, elapsed time.Duration, err error,
) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrLanguage, string(language)),
		attribute.String(attrOperation, operation),
	}

	metrics.conversions.Add(ctx, 1, metric.WithAttributes(append(attrs, statusOf(err))...))
	metrics.conversionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		metrics.conversionErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrLanguage, string(language)),
			attribute.String(attrCode, codeOf(err)),
		))
	}
}

// ObserveToolCall implements [native.Observer].
func (metrics *ConversionMetrics) ObserveToolCall(
	ctx context.Context, language meta.Language, command string, elapsed time.Duration, err error,
) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrLanguage, string(language)),
		attribute.String(attrCommand, command),
	}

	metrics.toolCalls.Add(ctx, 1, metric.WithAttributes(append(attrs, statusOf(err))...))
	metrics.toolCallDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAnalysis counts the issues and faults of one analysis run.
func (metrics *ConversionMetrics) RecordAnalysis(ctx context.Context, result analysis.Result) {
	if metrics == nil {
		return
	}

	perAnalyzer := make(map[string]int64)

	for _, issue := range result.Issues {
		perAnalyzer[issue.Analyzer]++
	}

	for name, count := range perAnalyzer {
		metrics.issues.Add(ctx, count, metric.WithAttributes(attribute.String(attrAnalyzer, name)))
	}

	for _, fault := range result.Faults {
		metrics.faults.Add(ctx, 1, metric.WithAttributes(attribute.String(attrAnalyzer, fault.Analyzer)))
	}
}

func statusOf(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String(attrStatus, statusError)
	}

	return attribute.String(attrStatus, statusOK)
}

func codeOf(err error) string {
	if code := meta.CodeOf(err); code != "" {
		return string(code)
	}

	return "Unknown"
}
