package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"childctl/internal/endpoint"
	"childctl/internal/router"
	"childctl/pkg/types"
)

// Handle registers fn for unsolicited messages named name. Handlers run on
// the connection's read goroutine and must not block for long.
func (m *Manager) Handle(name string, fn router.HandlerFunc) {
	m.rt.Handle(name, fn)
}

// Send writes a one-way message to the child. With no child attached it does
// nothing and returns nil.
func (m *Manager) Send(target, name string, payload any) error {
	if !m.ep.Connected() {
		return nil
	}
	p, err := router.Payload(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err = m.rt.Send(ctx, types.Envelope{Target: target, Name: name, Payload: p})
	if errors.Is(err, endpoint.ErrNotConnected) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

// Request sends a message and waits for the child's reply. A reply carrying
// an error comes back as *router.RemoteError.
func (m *Manager) Request(ctx context.Context, target, name string, payload any) (json.RawMessage, error) {
	if m.closed() {
		return nil, ErrManagerClosed
	}
	if !m.ep.Connected() {
		return nil, ErrNotConnected
	}
	p, err := router.Payload(payload)
	if err != nil {
		return nil, err
	}
	return m.rt.Request(ctx, types.Envelope{Target: target, Name: name, Payload: p})
}

// Reply answers the child's request requestID outside of a handler.
func (m *Manager) Reply(requestID string, payload any) error {
	p, err := router.Payload(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return m.rt.Send(ctx, types.Envelope{RequestID: requestID, Payload: p})
}

// KeepAlive runs one liveness round against the child.
func (m *Manager) KeepAlive(ctx context.Context) error {
	return m.sup.Tick(ctx)
}

func (m *Manager) closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateClosed
}
