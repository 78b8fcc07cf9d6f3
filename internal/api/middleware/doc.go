// Package middleware provides the gin middleware stack of the preview API:
// request ids with access logging, CORS for the editor frontend, and per-client
// rate limiting so a single tab cannot monopolize the sandbox.
package middleware
