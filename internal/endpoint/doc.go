// Package endpoint owns the control socket a child process attaches to.
//
// The endpoint listens on a process-unique local address (a Unix domain
// socket, or a named pipe on Windows) and serves a small chi router over it:
//
//   - GET /         websocket upgrade; exactly one child may attach
//   - GET /healthz  liveness of the parent side
//   - GET /metrics  Prometheus metrics
//
// Inbound text frames are handed to Config.OnFrame in wire order from a
// single read goroutine. The endpoint knows nothing about envelopes; parsing
// and correlation live in package router.
package endpoint
