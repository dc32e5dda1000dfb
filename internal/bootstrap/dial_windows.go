//go:build windows

package bootstrap

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

func dialSocket(ctx context.Context, scheme, path string) (net.Conn, error) {
	if scheme != "pipe" {
		return nil, fmt.Errorf("address scheme %q is not supported on this platform", scheme)
	}
	return winio.DialPipeContext(ctx, path)
}
