package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/metaast/pkg/analysis"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/observability"
)

func setupMetrics(t *testing.T) (*observability.ConversionMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewConversionMetrics(provider.Meter("test"))
	require.NoError(t, err)

	return metrics, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

// counterValues maps the value of one attribute to the summed counter value.
func counterValues(t *testing.T, rm metricdata.ResourceMetrics, name, key string) map[string]int64 {
	t.Helper()

	found := findMetric(rm, name)
	require.NotNil(t, found, name)

	sum, ok := found.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	values := map[string]int64{}

	for _, point := range sum.DataPoints {
		value, _ := point.Attributes.Value(attribute.Key(key))
		values[value.AsString()] += point.Value
	}

	return values
}

func TestConversionMetrics_ObserveConversion(t *testing.T) {
	t.Parallel()

	metrics, reader := setupMetrics(t)
	ctx := context.Background()

	metrics.ObserveConversion(ctx, meta.LanguagePython, "parse", 2*time.Millisecond, nil)
	metrics.ObserveConversion(ctx, meta.LanguagePython, "parse", time.Millisecond,
		meta.NewSyntaxError(meta.LanguagePython, "line 1", nil))
	metrics.ObserveConversion(ctx, meta.LanguageElixir, "unparse", time.Millisecond, errors.New("opaque"))

	rm := collect(t, reader)

	assert.Equal(t, map[string]int64{"ok": 1, "error": 2},
		counterValues(t, rm, "metaast.conversions.total", "status"))
	assert.Equal(t, map[string]int64{"SyntaxError": 1, "Unknown": 1},
		counterValues(t, rm, "metaast.conversion.errors.total", "code"))

	duration := findMetric(rm, "metaast.conversion.duration.seconds")
	require.NotNil(t, duration)

	histogram, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var observations uint64
	for _, point := range histogram.DataPoints {
		observations += point.Count
	}

	assert.Equal(t, uint64(3), observations)
}

func TestConversionMetrics_ObserveToolCall(t *testing.T) {
	t.Parallel()

	metrics, reader := setupMetrics(t)

	metrics.ObserveToolCall(context.Background(), meta.LanguageElixir, "elixir", time.Second, nil)

	rm := collect(t, reader)
	assert.Equal(t, map[string]int64{"elixir": 1}, counterValues(t, rm, "metaast.tool.calls.total", "command"))
	assert.NotNil(t, findMetric(rm, "metaast.tool.call.duration.seconds"))
}

func TestConversionMetrics_RecordAnalysis(t *testing.T) {
	t.Parallel()

	metrics, reader := setupMetrics(t)

	metrics.RecordAnalysis(context.Background(), analysis.Result{
		Issues: []analysis.Issue{{Analyzer: "native_escape"}, {Analyzer: "native_escape"}},
		Faults: []analysis.Fault{{Analyzer: "broken", Err: errors.New("boom")}},
	})

	rm := collect(t, reader)
	assert.Equal(t, map[string]int64{"native_escape": 2}, counterValues(t, rm, "metaast.analysis.issues.total", "analyzer"))
	assert.Equal(t, map[string]int64{"broken": 1}, counterValues(t, rm, "metaast.analysis.faults.total", "analyzer"))
}

func TestConversionMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var metrics *observability.ConversionMetrics

	assert.NotPanics(t, func() {
		metrics.ObserveConversion(context.Background(), meta.LanguagePython, "parse", 0, nil)
		metrics.ObserveToolCall(context.Background(), meta.LanguagePython, "python3", 0, nil)
		metrics.RecordAnalysis(context.Background(), analysis.Result{})
	})
}
