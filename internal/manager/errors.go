package manager

import (
	"errors"

	"childctl/internal/endpoint"
	"childctl/internal/liveness"
	"childctl/internal/router"
)

var (
	// ErrManagerClosed fails requests pending at Close and operations after it.
	ErrManagerClosed = errors.New("manager closed")
	// ErrChildDisconnected fails requests pending when the child goes away.
	ErrChildDisconnected = errors.New("child disconnected")
	// ErrNotConnected is returned by Request when no child is attached.
	ErrNotConnected = endpoint.ErrNotConnected
)

// IsClosed reports whether err indicates the manager was closed.
func IsClosed(err error) bool { return errors.Is(err, ErrManagerClosed) }

// IsProtocolError reports whether err is a protocol corruption error.
func IsProtocolError(err error) bool { return router.IsProtocolError(err) }

// IsUnreachable reports whether err is a liveness failure.
func IsUnreachable(err error) bool { return errors.Is(err, liveness.ErrChildUnreachable) }

// IsBindError reports whether err came from binding the control socket.
func IsBindError(err error) bool { return endpoint.IsBindError(err) }
