package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope every span in this gateway is
// recorded under.
const TracerName = "github.com/streamgate/streamgate"

// Providers bundles the tracer and meter providers this gateway
// constructs at startup, plus a combined Shutdown that flushes both.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// NewProviders builds an OpenTelemetry tracer provider and meter provider
// exporting to w (cmd/streamgate passes os.Stderr in dev mode and
// io.Discard otherwise; tests pass io.Discard), batching
// spans the same way a production OTLP exporter would so the export path
// is exercised even though this gateway ships no collector wiring of its
// own.
func NewProviders(ctx context.Context, serviceName string, w io.Writer) (*Providers, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("observability: build trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("observability: build metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return &Providers{TracerProvider: tp, MeterProvider: mp}, nil
}

// Shutdown flushes and stops both providers, returning the first error
// encountered.
func (p *Providers) Shutdown(ctx context.Context) error {
	if err := p.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability: shutdown tracer provider: %w", err)
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability: shutdown meter provider: %w", err)
	}
	return nil
}

// Tracer returns the gateway's tracer, for components that start spans
// outside of NewProviders' own package (the correlator, the HTTP
// handler).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan is a small convenience wrapper so call sites don't each
// repeat Tracer().Start, matching the one-liner helper style the teacher
// uses for its own cross-cutting concerns (see loggerFromContext).
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// TracingMiddleware starts one span per request, named "http.<method>"
// with the method and URL path as attributes, and records the final
// status code as a span attribute. It is
// deliberately hand-rolled rather than built on otelhttp, which this
// module's dependency set does not include.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := StartSpan(r.Context(), "http."+r.Method,
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		)
		defer span.End()

		rec := &spanStatusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", rec.status))
	})
}

type spanStatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *spanStatusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *spanStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
