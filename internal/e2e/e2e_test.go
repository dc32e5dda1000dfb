//go:build !windows

package e2e

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"childctl/internal/process"
	"childctl/pkg/types"
)

// TestE2E_ChildSession runs a real child through connect, request/reply in
// both directions, liveness, loader resolution and close.
func TestE2E_ChildSession(t *testing.T) {
	t.Setenv("NODE_OPTIONS", "--no-deprecation")
	p := newParent(t, &types.ManagerContext{TelemetryConfig: &types.TelemetryConfig{ServiceName: "e2e"}})
	child := p.spawn(t, "session")

	if v := os.Getenv("NODE_OPTIONS"); v != "--no-deprecation" {
		t.Fatalf("parent environment not restored after spawn: %q", v)
	}

	select {
	case payload := <-p.ready:
		if !strings.Contains(string(payload), `"pid"`) {
			t.Fatalf("unexpected ready payload %s", payload)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("child never reported ready")
	}

	got, err := p.m.Request(testCtx(t), "", "echo", map[string]any{"hello": "child"})
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if string(got) != `{"hello":"child"}` {
		t.Fatalf("echo payload = %s", got)
	}

	got, err = p.m.Request(testCtx(t), "", "env", nil)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	var env map[string]string
	if err := json.Unmarshal(got, &env); err != nil {
		t.Fatalf("decode env: %v", err)
	}
	want := "--no-deprecation --require childctl/register --require childctl/telemetry"
	if env["NODE_OPTIONS"] != want {
		t.Fatalf("child NODE_OPTIONS = %q, want %q", env["NODE_OPTIONS"], want)
	}
	if env["manager_id"] != p.m.ID() {
		t.Fatalf("child saw manager id %q, want %q", env["manager_id"], p.m.ID())
	}

	got, err = p.m.Request(testCtx(t), "", "resolve", "virtual:loader")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var src string
	if err := json.Unmarshal(got, &src); err != nil || src != "export async function resolve() {}\n" {
		t.Fatalf("resolved source %q err=%v", src, err)
	}

	if err := p.m.KeepAlive(testCtx(t)); err != nil {
		t.Fatalf("keepalive: %v", err)
	}

	path := p.m.SocketPath()
	if err := p.m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	exited, err := child.wait(10 * time.Second)
	if !exited {
		t.Fatalf("child did not exit after close")
	}
	if err != nil {
		t.Fatalf("child exited with %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("socket file left behind: %v", err)
	}
	select {
	case err := <-p.fatal:
		t.Fatalf("unexpected fatal error: %v", err)
	default:
	}
}

// TestE2E_MalformedChildIsFatal has the child write a non-JSON frame.
func TestE2E_MalformedChildIsFatal(t *testing.T) {
	p := newParent(t, nil)
	p.spawn(t, "garbage")

	select {
	case err := <-p.fatal:
		if code := process.Code(err); code != process.ExitMessageHandlingFailed {
			t.Fatalf("exit code = %d, want %d (err=%v)", code, process.ExitMessageHandlingFailed, err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("malformed frame did not trigger the fatal path")
	}
	select {
	case <-p.m.Fatal():
	default:
		t.Fatalf("Fatal() channel empty")
	}
}
