package tracing

import (
	"context"
	"net/http"
)

// Propagation headers.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

type ctxKey int

const (
	traceKey ctxKey = iota
	spanKey
)

func withIDs(ctx context.Context, trace TraceID, span SpanID) context.Context {
	if trace != "" {
		ctx = context.WithValue(ctx, traceKey, trace)
	}
	if span != "" {
		ctx = context.WithValue(ctx, spanKey, span)
	}
	return ctx
}

// Extract continues the trace a caller sent in h.
func Extract(ctx context.Context, h http.Header) context.Context {
	return withIDs(ctx, TraceID(h.Get(TraceHeader)), SpanID(h.Get(SpanHeader)))
}

// Inject writes the trace context of ctx into h.
func Inject(ctx context.Context, h http.Header) {
	if v := GetTraceID(ctx); v != "" {
		h.Set(TraceHeader, string(v))
	}
	if v := GetSpanID(ctx); v != "" {
		h.Set(SpanHeader, string(v))
	}
}

// GetTraceID returns the trace in ctx, or "".
func GetTraceID(ctx context.Context) TraceID {
	v, _ := ctx.Value(traceKey).(TraceID)
	return v
}

// GetSpanID returns the innermost span in ctx, or "".
func GetSpanID(ctx context.Context) SpanID {
	v, _ := ctx.Value(spanKey).(SpanID)
	return v
}
