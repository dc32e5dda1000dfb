//go:build !windows

package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"childctl/internal/endpoint"
	"childctl/internal/registry"
	"childctl/internal/router"
	"childctl/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// parent is a listening endpoint with its own router, standing in for a manager.
type parent struct {
	ep *endpoint.Endpoint
	rt *router.Router
}

func startParent(t *testing.T) *parent {
	t.Helper()
	p := &parent{}
	p.ep = endpoint.New(endpoint.Config{
		Dir:  t.TempDir(),
		Seed: t.Name(),
		OnFrame: func(ctx context.Context, frame []byte) error {
			return p.rt.Deliver(ctx, frame)
		},
	})
	p.rt = router.New(p.ep.Send, zerolog.Nop())
	if err := p.ep.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = p.ep.Close() })
	return p
}

func waitConnected(t *testing.T, ep *endpoint.Endpoint) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !ep.Connected() {
		if time.Now().After(deadline) {
			t.Fatalf("child never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddressFromEnv(t *testing.T) {
	t.Setenv(AddressEnv, "")
	if _, err := AddressFromEnv(); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress, got %v", err)
	}
	t.Setenv(AddressEnv, "unix:///tmp/x.sock")
	addr, err := AddressFromEnv()
	if err != nil || addr != "unix:///tmp/x.sock" {
		t.Fatalf("unexpected address %q err=%v", addr, err)
	}
}

func TestDialRejectsBadAddress(t *testing.T) {
	if _, err := Dial(testCtx(t), "tcp://127.0.0.1:1", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	if _, err := Dial(testCtx(t), "unix://"+filepath.Join(t.TempDir(), "missing.sock"), zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing socket")
	}
}

func TestRequestsBothWays(t *testing.T) {
	p := startParent(t)
	p.rt.Handle("whoami", func(ctx context.Context, env types.Envelope) (any, error) {
		return map[string]string{"role": "parent"}, nil
	})

	c, err := Dial(testCtx(t), p.ep.Address(), zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c.Handle("echo", func(ctx context.Context, env types.Envelope) (any, error) {
		return env.Payload, nil
	})
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(context.Background()) }()
	waitConnected(t, p.ep)

	got, err := p.rt.Request(testCtx(t), types.Envelope{Name: "echo", Payload: json.RawMessage(`{"n":1}`)})
	if err != nil {
		t.Fatalf("parent request: %v", err)
	}
	if string(got) != `{"n":1}` {
		t.Fatalf("echo payload = %s", got)
	}

	got, err = c.Request(testCtx(t), "whoami", nil)
	if err != nil {
		t.Fatalf("child request: %v", err)
	}
	var who map[string]string
	if err := json.Unmarshal(got, &who); err != nil || who["role"] != "parent" {
		t.Fatalf("unexpected whoami reply %s err=%v", got, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run after close: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not return after close")
	}
}

func TestRunReturnsNilWhenParentCloses(t *testing.T) {
	p := startParent(t)
	c, err := Dial(testCtx(t), p.ep.Address(), zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(context.Background()) }()
	waitConnected(t, p.ep)

	// Pings are answered while Run reads.
	if err := p.ep.Ping(testCtx(t)); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := p.ep.Close(); err != nil {
		t.Fatalf("close endpoint: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("expected clean return, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not return after parent closed")
	}
}

func TestPendingRequestFailsOnClose(t *testing.T) {
	p := startParent(t)
	c, err := Dial(testCtx(t), p.ep.Address(), zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	go func() { _ = c.Run(context.Background()) }()
	waitConnected(t, p.ep)

	reqErr := make(chan error, 1)
	ctx := testCtx(t)
	go func() {
		_, err := c.Request(ctx, "never-answered", nil)
		reqErr <- err
	}()
	time.Sleep(50 * time.Millisecond)
	_ = p.ep.Close()

	select {
	case err := <-reqErr:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("pending request not failed")
	}
}

func TestHookFromEnv(t *testing.T) {
	dir := t.TempDir()
	loader := filepath.Join(dir, "loader.js")
	if err := os.WriteFile(loader, []byte("export {}"), 0o644); err != nil {
		t.Fatalf("write loader: %v", err)
	}
	store := registry.NewStore()
	if err := store.Publish("m-1", registry.FileURL(loader)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	snap := filepath.Join(dir, "registry.cbor")
	if err := store.WriteSnapshot(snap); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	t.Setenv(SnapshotEnv, snap)
	t.Setenv(ManagerIDEnv, "m-1")
	h, err := HookFromEnv(nil)
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	u, src, err := h.ResolveAndLoad(testCtx(t), "custom:thing")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u.Scheme != "file" || string(src) != "export {}" {
		t.Fatalf("unexpected resolution %s %q", u, src)
	}

	t.Setenv(SnapshotEnv, "")
	h, err = HookFromEnv(func(string) (*url.URL, error) { return nil, registry.ErrUnresolvable })
	if err != nil {
		t.Fatalf("hook without snapshot: %v", err)
	}
	if _, err := h.Resolve("custom:thing"); !errors.Is(err, registry.ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
}
