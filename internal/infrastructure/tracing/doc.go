/*
Package tracing provides lightweight request tracing for the studio.

A span is opened for every HTTP request and for every call the studio makes
to the poster service. The trace context travels in the X-Trace-ID and
X-Span-ID headers, so a poster service that logs them can be correlated
with studio logs. Finished spans are buffered and written to the log by a
single collector goroutine.

# Usage

	tracer := tracing.New("studio", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.Start(ctx, "posterapi.prompt")
	defer span.End()
	tracing.Inject(ctx, req.Header)
*/
package tracing
