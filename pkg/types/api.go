package types

import "encoding/json"

// Envelope is one control message exchanged over the child channel.
// A frame carrying a RequestID that matches a pending request is a reply;
// anything else is dispatched by Name.
type Envelope struct {
	// Opaque correlation id. Set on requests that expect a reply and echoed on the reply.
	// example: 6f1c2b8e-0d3a-4c55-9a43-1f7c0e2d9b11
	RequestID string `json:"requestId,omitempty" example:"6f1c2b8e-0d3a-4c55-9a43-1f7c0e2d9b11"`
	// Optional addressee inside the child (e.g., a worker or module id).
	// example: worker-1
	Target string `json:"target,omitempty" example:"worker-1"`
	// Message kind used for handler dispatch.
	// example: ping
	Name string `json:"name,omitempty" example:"ping"`
	// Arbitrary JSON payload.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Error text on a failed reply.
	// example: unknown module
	Error string `json:"error,omitempty" example:"unknown module"`
}

// ErrorResponse is the JSON body returned when the control socket rejects
// a plain HTTP request (e.g., a second upgrade attempt).
type ErrorResponse struct {
	// Error message.
	// example: child already attached
	Error string `json:"error" example:"child already attached"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}
