// Package http exposes the preview engine over a JSON API.
//
// Every preview endpoint answers 200 whenever the engine produced an outcome,
// successful or not; transport-level problems map to 400 (malformed body),
// 413 (source over the configured limit) and 415 (binary payload).
package http
