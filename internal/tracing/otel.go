package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// otelState holds the process-wide tracer provider. Init wins once; later
// calls see the first outcome.
type otelState struct {
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
	err      error
	done     bool
}

var state otelState

// InitOpenTelemetry installs a sampling tracer provider identified by the
// given service name and version. Calling it again is a no-op returning the
// first call's error, so every entrypoint can init unconditionally.
func InitOpenTelemetry(serviceName, serviceVersion string) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.done {
		return state.err
	}
	state.done = true

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		state.err = err
		return err
	}

	state.provider = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(state.provider)

	return nil
}

// ShutdownOpenTelemetry flushes pending spans and releases the provider.
// Without a prior successful Init it does nothing.
func ShutdownOpenTelemetry(ctx context.Context) error {
	state.mu.Lock()
	tp := state.provider
	state.mu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// StartSpan opens a span and mirrors its trace ID into the rudder context
// keys, so zerolog lines and otel spans correlate on the same trace_id.
// A context that already carries a trace ID keeps it.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))

	if GetTraceID(ctx) == "" {
		if sc := span.SpanContext(); sc.IsValid() {
			ctx = WithTraceID(ctx, sc.TraceID().String())
		}
	}

	return ctx, span
}
