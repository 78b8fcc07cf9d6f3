// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive the embedded *zap.Logger, usually scoped with
// Component, and log with typed fields.
//
// Example Usage:
//
//	logger := logging.FromConfig("info", false)
//	exec := sandbox.NewExecutor(cfg, sandbox.WithLogger(logger.Component("sandbox")))
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
