package endpoint

import (
	"errors"
	"strings"
)

var (
	// ErrNotConnected is returned by Send and Ping when no child is attached.
	ErrNotConnected = errors.New("no child connected")
	// ErrChildAlreadyAttached rejects a second upgrade attempt.
	ErrChildAlreadyAttached = errors.New("child already attached")
)

// BindError reports a failure to open the listening socket.
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string { return "bind " + e.Path + ": " + e.Err.Error() }

func (e *BindError) Unwrap() error { return e.Err }

// IsBindError reports whether err is a *BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

// ResourceError collects the failures of a best-effort teardown.
type ResourceError struct {
	Errs []error
}

func (e *ResourceError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return "release control endpoint: " + strings.Join(parts, "; ")
}

func (e *ResourceError) Unwrap() []error { return e.Errs }
