// Package tracing emits nested trace spans for every observable unit of
// work (agent call, retrieval call, embedding call) with start time,
// duration, success flag, and parent linkage. It is the Go analogue of
// the original Python system's LangSmith processor
// (initialize_tracing/flush_traces/shutdown_tracing in
// src/agents/helpers.py): a lazily-initialized, process-wide singleton
// that still creates spans but exports none when no exporter endpoint is
// configured.
package tracing

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dwarkesh-labs/transcript-rag"

var (
	initOnce sync.Once
	provider *trace.TracerProvider
	tracer   oteltrace.Tracer
)

// Init sets up the global TracerProvider, tagged with serviceName via
// an OTel resource. Passing an empty otlpEndpoint installs a tracer
// with no span processor attached — spans are still created (TraceID
// keeps working for response metadata) but never exported; this is the
// "no global tracing processor configured" case and is never an error.
// A non-empty endpoint attaches a batching OTLP/HTTP exporter, so spans
// are flushed asynchronously rather than per-call. Double
// initialization is a no-op.
func Init(serviceName, otlpEndpoint string) {
	initOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(semconv.ServiceName(serviceName)),
		)
		if err != nil {
			slog.Warn("tracing resource init failed, using default", "error", err)
			res = resource.Default()
		}

		opts := []trace.TracerProviderOption{
			trace.WithSampler(trace.AlwaysSample()),
			trace.WithResource(res),
		}
		if otlpEndpoint != "" {
			exporter, err := otlptracehttp.New(context.Background(),
				otlptracehttp.WithEndpoint(otlpEndpoint),
				otlptracehttp.WithInsecure(),
			)
			if err != nil {
				slog.Warn("otlp exporter init failed, spans will not be exported", "endpoint", otlpEndpoint, "error", err)
			} else {
				opts = append(opts, trace.WithBatcher(exporter))
			}
		}

		provider = trace.NewTracerProvider(opts...)
		otel.SetTracerProvider(provider)
		tracer = provider.Tracer(instrumentationName)
	})
}

// Shutdown flushes any pending spans. Safe to call even if Init was never
// called or tracing is disabled.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// Start opens a span named name as a child of any span already present
// in ctx, returning a context carrying the new span and a function that
// must be called (deferred) with the operation's outcome.
func Start(ctx context.Context, name string) (context.Context, func(success bool)) {
	if tracer == nil {
		Init("transcript-rag", "")
	}
	ctx, span := tracer.Start(ctx, name)
	return ctx, func(success bool) {
		span.SetAttributes()
		if !success {
			span.RecordError(errNotOK)
		}
		span.End()
	}
}

var errNotOK = &spanFailure{}

type spanFailure struct{}

func (*spanFailure) Error() string { return "span recorded a non-success outcome" }

// TraceID returns the trace identifier of the span carried by ctx, if
// any, formatted the way callers surface trace_id in responses.
func TraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
