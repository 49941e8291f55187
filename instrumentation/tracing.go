package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Trace attribute keys.
const (
	AttrTraceProvider  = "graphauth.provider"
	AttrTraceOperation = "graphauth.operation"
	AttrTraceState     = "graphauth.state"
)

// StartSpan starts a span on the named scope. Nil-safe: on a nil receiver
// the context is returned unchanged with a no-op span.
func (i *Instrumentation) StartSpan(ctx context.Context, scope, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if i == nil {
		return trace.ContextWithSpan(ctx, noopSpan()), noopSpan()
	}
	return i.Tracer(scope).Start(ctx, name, trace.WithAttributes(attrs...))
}

func noopSpan() trace.Span {
	return trace.SpanFromContext(context.Background())
}

// RecordError records an error on a span and marks it failed. Nil-safe.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks a span as successful. Nil-safe.
func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// AddLifecycleAttributes sets the common token-lifecycle attributes on a span.
func AddLifecycleAttributes(span trace.Span, providerName, operation string) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrTraceProvider, providerName),
		attribute.String(AttrTraceOperation, operation),
	)
}
