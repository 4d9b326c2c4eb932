/*
Package monitoring exports the studio's Prometheus metrics.

A Metrics value owns its own registry, so tests and several studios can
share a process. Every Record method is a no-op on a nil *Metrics, which
lets components take metrics as an optional dependency.

Families cover the studio HTTP surface, store transitions (applied or
dropped as stale), dispatcher operations, poster service calls with the
breaker state, preview fetches, style buffer flushes and WebSocket clients.

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics, "/metrics"))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "send_prompt")
	defer timer.Stop("success")
*/
package monitoring
