// Package ws streams previews over a WebSocket.
//
// Each connection gets a conn_ ULID and may keep several executions in
// flight; replies carry the request id so the editor can match them up.
// Closing the socket cancels whatever is still running.
//
// Message Types (Client → Server):
//   - execute: run {sourceCode, fileName, timeoutMs, htmlContext}
//   - stats: request the execution statistics
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection greeting with the connection id
//   - result: preview outcome for an execute request
//   - stats: statistics snapshot
//   - pong: ping reply
//   - error: malformed or unknown message
//
// Example Usage:
//
//	handler := ws.NewHandler(dispatcher, ws.Config{}, ws.WithMetrics(metrics))
//	router.GET("/preview/stream", handler.HandleConnection)
package ws
