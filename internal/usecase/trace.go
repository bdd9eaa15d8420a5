package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var exportTracer = otel.Tracer("league-snapshot/internal/usecase")

// startExportSpan opens "export.<step>" under the caller's span. Runs started
// without a recording parent get the parent's no-op span back, so an export
// with tracing off creates nothing.
func startExportSpan(ctx context.Context, step string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return exportTracer.Start(ctx, "export."+step, trace.WithAttributes(attrs...))
}

// endExportSpan closes span, marking it failed when err is set.
func endExportSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
