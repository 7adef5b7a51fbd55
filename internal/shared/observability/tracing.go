package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracer is the shared tracer for render pipeline spans. It reports into
// the global provider, which is a no-op until InitTracing is called.
var Tracer = otel.Tracer("uipreview")

// InitTracing wires the global tracer provider to an OTLP gRPC collector.
// An empty endpoint leaves the no-op provider in place. The returned
// function flushes and shuts the provider down.
func InitTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "uipreview"),
		)),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("uipreview")
	return provider.Shutdown, nil
}
