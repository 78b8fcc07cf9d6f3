// Package server wires the preview engine into an HTTP service.
//
// NewServer builds every component from config: the realm pool, executor,
// sanitizer policy, renderers, the process-wide execution monitor, the
// dispatcher, the middleware stack, and the routes (JSON API, WebSocket
// stream, Prometheus metrics). Close drains in-flight requests before closing
// the pool.
package server
