// Package main is the entry point for the web IDE preview server.
//
// The server runs untrusted JavaScript in bounded sandboxes, renders HTML
// and CSS into sandboxed documents, and reports execution telemetry.
//
// Architecture:
//
//	Editor (browser) → HTTP / WebSocket → Dispatcher → JavaScript sandbox
//	                                                → HTML renderer
//	                                                → CSS previewer
//
// The server provides:
//   - REST API for previews, sanitization and history
//   - WebSocket streaming of preview results
//   - Prometheus metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -config preview.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
package main
