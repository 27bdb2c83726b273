package trace

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "trading-risk-engine"
	ServiceVersion = "1.0.0"
)

var (
	mu             sync.RWMutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Init installs a stdout-style exporter writing to stderr as the global
// tracer provider. Stdout carries decision output.
func Init() error {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}
	return InitWithExporter(exporter)
}

// InitWithExporter is Init with a caller supplied exporter, used by tests.
func InitWithExporter(exporter sdktrace.SpanExporter) error {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mu.Lock()
	defer mu.Unlock()
	tracerProvider = tp
	tracer = tp.Tracer(ServiceName)
	enabled = true
	return nil
}

func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := tracerProvider
	tracerProvider, tracer, enabled = nil, nil, false
	mu.Unlock()
	if tp != nil {
		return tp.Shutdown(ctx)
	}
	return nil
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t, on := tracer, enabled
	mu.RUnlock()
	if !on || t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !Enabled() {
		return "", "", false
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}
