//go:build !windows

package bootstrap

import (
	"context"
	"fmt"
	"net"
)

func dialSocket(ctx context.Context, scheme, path string) (net.Conn, error) {
	if scheme != "unix" {
		return nil, fmt.Errorf("address scheme %q is not supported on this platform", scheme)
	}
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
