package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"childctl/internal/router"
	"childctl/pkg/types"
)

// ErrClosed fails requests still pending when the connection ends.
var ErrClosed = errors.New("bootstrap: connection closed")

// Client is a connected child.
type Client struct {
	conn   *websocket.Conn
	rt     *router.Router
	log    zerolog.Logger
	closed atomic.Bool
}

// Dial connects to the parent at address.
func Dial(ctx context.Context, address string, logger zerolog.Logger) (*Client, error) {
	conn, err := DialConn(ctx, address)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, log: logger}
	c.rt = router.New(c.write, logger)
	return c, nil
}

func (c *Client) write(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

// Handle registers fn for messages named name. Register handlers before Run.
func (c *Client) Handle(name string, fn router.HandlerFunc) {
	c.rt.Handle(name, fn)
}

// Send writes a one-way message to the parent.
func (c *Client) Send(ctx context.Context, name string, payload any) error {
	p, err := router.Payload(payload)
	if err != nil {
		return err
	}
	return c.rt.Send(ctx, types.Envelope{Name: name, Payload: p})
}

// Request sends a message and waits for the parent's reply. Run must be
// active for the reply to arrive.
func (c *Client) Request(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	p, err := router.Payload(payload)
	if err != nil {
		return nil, err
	}
	return c.rt.Request(ctx, types.Envelope{Name: name, Payload: p})
}

// Run reads frames until the connection ends. It answers pings while it
// runs. A clean close by either side returns nil.
func (c *Client) Run(ctx context.Context) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.rt.FailAll(ErrClosed)
			if c.closed.Load() {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug().Msg("control channel closed")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read control frame: %w", err)
		}
		if err := c.rt.Deliver(ctx, data); err != nil {
			c.rt.FailAll(ErrClosed)
			_ = c.conn.Close(websocket.StatusProtocolError, "malformed control message")
			return err
		}
	}
}

// Close ends the connection with a normal closure.
func (c *Client) Close() error {
	c.closed.Store(true)
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
