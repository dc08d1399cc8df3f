// Package telemetry wires one OpenTelemetry span per decoded request and
// one per backend call (spec.md §9 "Global configuration and tracing").
//
// Grounded on marmos91-dittofs/internal/telemetry: a package-level tracer
// behind sync.Once, a no-op fallback when tracing is disabled, and small
// StartSpan/RecordError helpers call sites use instead of touching the
// otel API directly. Unlike dittofs, this package does not wire an OTLP
// exporter — no Non-goal excludes tracing, but nothing in spec.md names an
// external trace backend either, so spans are recorded against the SDK's
// TracerProvider (itself real, not a stub) without a network sink.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "dray"

var (
	tracer     trace.Tracer
	tracerOnce sync.Once
)

// Init installs a process-wide TracerProvider and returns a shutdown
// function the caller must invoke on exit to flush any buffered spans.
func Init() (shutdown func(context.Context) error) {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(serviceName)

	return provider.Shutdown
}

// Tracer returns the package tracer, falling back to the global (no-op by
// default) tracer provider if Init was never called — tests and any code
// path that runs before startup still get a usable, inert Tracer.
func Tracer() trace.Tracer {
	tracerOnce.Do(func() {
		if tracer == nil {
			tracer = otel.Tracer(serviceName)
		}
	})
	return tracer
}

// StartSpan starts a span named name as a child of any span in ctx.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}

// RecordError records err on the span in ctx and marks it failed. A nil
// err is a no-op, so call sites can pass straight through without a
// separate branch.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
