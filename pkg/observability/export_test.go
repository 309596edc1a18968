package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ProbeBuildResource exposes buildResource for testing.
func ProbeBuildResource(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// ProbeInit exposes Init with a custom log destination.
func ProbeInit(cfg Config, logOutput io.Writer) (Providers, error) {
	return initWithOutput(cfg, logOutput)
}

// ProbeSamplerSpan reports whether a root span started under the sampler
// selected for cfg is exported.
func ProbeSamplerSpan(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	_, span := provider.Tracer("probe").Start(context.Background(), "probe")
	span.End()

	sampled := len(exporter.GetSpans()) > 0

	if err := provider.Shutdown(context.Background()); err != nil {
		return false
	}

	return sampled
}
