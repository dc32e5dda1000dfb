//go:build windows

package endpoint

import (
	"net"

	"github.com/Microsoft/go-winio"
)

const addressScheme = "pipe"

// socketPath ignores dir; named pipes live in their own namespace.
func socketPath(dir, seed string, seq int) string {
	return `\\.\pipe\` + socketName(seed, seq)
}

func listenSocket(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}

func removeSocket(path string) error { return nil }
