package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/coder/websocket"

	"childctl/internal/endpoint"
)

// maxFrameSize matches the parent's inbound limit.
const maxFrameSize = 1 << 20

// DialConn opens the raw websocket to the parent at address.
func DialConn(ctx context.Context, address string) (*websocket.Conn, error) {
	scheme, path, err := endpoint.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialSocket(ctx, scheme, path)
		},
	}}
	c, _, err := websocket.Dial(ctx, "ws://childctl/", &websocket.DialOptions{HTTPClient: hc})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	c.SetReadLimit(maxFrameSize)
	return c, nil
}
