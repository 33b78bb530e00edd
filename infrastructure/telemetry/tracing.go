package telemetry

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for agent spans.
const TracerName = "github.com/felixgeelhaar/agentstep"

// Span attribute keys.
const (
	AttrSessionID = attribute.Key("session.id")
	AttrStepIndex = attribute.Key("step.index")
	AttrAttempt   = attribute.Key("step.attempt")
	AttrProvider  = attribute.Key("model.provider")
	AttrModel     = attribute.Key("model.id")
	AttrToolName  = attribute.Key("tool.name")
	AttrCallID    = attribute.Key("tool.call_id")
)

// TracingConfig configures the stdout span exporter.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	// Output receives pretty-printed spans. Defaults to os.Stderr.
	Output io.Writer

	// SampleRate is the sampling ratio in [0, 1].
	SampleRate float64
}

// SetupTracing installs a global tracer provider that exports spans to
// Output. The returned function flushes and shuts it down.
func SetupTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentstep"
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Output),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer returns the agent tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span on the agent tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
