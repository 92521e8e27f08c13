/*
Package tracing provides lightweight request tracing.

# Overview

Spans are created per HTTP request on the UI gateway and per control-plane
round trip, collected on a buffered channel and logged through zap once
finished. Trace context travels in X-Trace-ID / X-Span-ID headers; inbound
values are adopted only when they parse as ids from package id.

# Usage

	tracer := tracing.New("wsl-terminal", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.Start(ctx, "control.get_tabs")
	defer span.End()
	logger.Debug("Relaying", tracing.Fields(ctx)...)
*/
package tracing
