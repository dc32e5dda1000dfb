package router

import (
	"errors"
	"fmt"

	"childctl/internal/process"
)

// ErrProtocolCorruption is matched by every *ProtocolError. It wraps the
// process-level MANAGER_MESSAGE_HANDLING_FAILED sentinel so a top-level
// caller can map it to the right exit code.
var ErrProtocolCorruption = fmt.Errorf("protocol corruption: %w", process.ErrMessageHandlingFailed)

// ProtocolError reports a frame that is not a valid envelope.
type ProtocolError struct {
	Frame []byte
	Cause error
}

func (e *ProtocolError) Error() string {
	return "malformed control message: " + e.Cause.Error()
}

func (e *ProtocolError) Unwrap() []error { return []error{ErrProtocolCorruption, e.Cause} }

// IsProtocolError reports whether err signals protocol corruption.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocolCorruption)
}

// RemoteError carries the error text of a failed reply.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Name == "" {
		return "remote: " + e.Message
	}
	return "remote " + e.Name + ": " + e.Message
}
