/*
Package monitoring provides metrics collection.

# Overview

Prometheus metrics for the UI gateway, the pty session manager and the
control plane. Every Metrics value owns its own registry, so several
instances (one per test, say) never collide on registration.

# Features

- HTTP request metrics (latency, throughput, size)
- Session lifecycle metrics (active, spawned, spawn failures, pty bytes)
- Control-plane metrics (requests by outcome, round-trip latency, slot overwrites)
- WebSocket connection and message metrics
- Event bus drops
- Uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "get_tabs")
	// ... round trip ...
	timer.Stop(monitoring.OutcomeReplied)

A nil *Metrics is valid and records nothing.
*/
package monitoring
