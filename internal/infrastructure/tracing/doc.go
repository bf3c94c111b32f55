/*
Package tracing provides lightweight request tracing.

Each HTTP request gets a span whose trace ID is taken from the X-Trace-ID
header or freshly generated. Child spans cover generation calls and the
outbound provider requests, which carry the trace headers forward.
Finished spans are logged through zap by a background collector.

# Usage

	tracer := tracing.New("appfeed", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	err := tracer.Trace(ctx, "generator.anthropic", func(ctx context.Context) error {
		return call(ctx)
	})
*/
package tracing
