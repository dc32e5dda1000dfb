//go:build !windows

package endpoint

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const addressScheme = "unix"

func socketPath(dir, seed string, seq int) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, socketName(seed, seq)+".sock")
}

// listenSocket binds path. A leftover socket file is removed only when
// nothing answers on it; a live listener means the path is in use.
func listenSocket(path string) (net.Listener, error) {
	if _, err := os.Lstat(path); err == nil {
		conn, derr := net.DialTimeout("unix", path, 500*time.Millisecond)
		if derr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("socket in use: %w", syscall.EADDRINUSE)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing stale socket: %w", err)
		}
	}
	return net.Listen("unix", path)
}

func removeSocket(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing socket %s: %w", path, err)
	}
	return nil
}
