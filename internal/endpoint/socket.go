package endpoint

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

const socketPrefix = "childctl-"

// socketName derives the per-listen socket name. The inputs make it unique
// per process, manager and listen call while staying computable up front.
func socketName(seed string, seq int) string {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%d/%s/%d", os.Getpid(), seed, seq)))
	return socketPrefix + hex.EncodeToString(sum[:8])
}

// FormatAddress renders path as a URL-like address for the child.
func FormatAddress(path string) string {
	if path == "" {
		return ""
	}
	return addressScheme + "://" + path
}

// ParseAddress splits an address produced by FormatAddress into its scheme
// ("unix" or "pipe") and the socket path.
func ParseAddress(addr string) (scheme, path string, err error) {
	scheme, path, ok := strings.Cut(addr, "://")
	if !ok || path == "" {
		return "", "", fmt.Errorf("invalid control address %q", addr)
	}
	switch scheme {
	case "unix", "pipe":
		return scheme, path, nil
	default:
		return "", "", fmt.Errorf("unsupported control address scheme %q", scheme)
	}
}
