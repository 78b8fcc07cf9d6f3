/*
Package monitoring provides Prometheus metrics for the preview service.

# Overview

Metrics are registered on a caller-supplied registry so tests and embedded
servers do not collide on the global default registry. Tracked:

  - HTTP requests (count, latency, sizes) via Middleware
  - Preview executions by file type and outcome, via ObserveExecution,
    which satisfies dispatch.Observer
  - Stage timings (sanitize, render) via Timer
  - Stream connections and messages
  - Uptime

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	dispatcher := dispatch.New(exec, renderer, styles, mon, dispatch.WithObserver(metrics))

	timer := monitoring.NewTimer(metrics, "sanitize", "html")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
