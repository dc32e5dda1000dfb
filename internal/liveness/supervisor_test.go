package liveness

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"childctl/internal/process"
)

func TestTickWithoutChildIsSilentNoop(t *testing.T) {
	var buf bytes.Buffer
	probed := false
	s := New(Config{
		Probe:  func(context.Context) error { probed = true; return nil },
		Logger: zerolog.New(&buf),
	})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick without child: %v", err)
	}
	if probed {
		t.Fatalf("probe must not run without a child")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %q", buf.String())
	}
}

func TestTickSuccess(t *testing.T) {
	s := New(Config{
		Probe:     func(context.Context) error { return nil },
		Connected: func() bool { return true },
		OnUnreachable: func(error) {
			t.Fatalf("OnUnreachable must not fire on success")
		},
	})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}

func TestFirstMissRetriesOnce(t *testing.T) {
	var calls, misses int
	s := New(Config{
		Probe: func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("timeout")
			}
			return nil
		},
		Connected: func() bool { return true },
		OnMiss:    func(int, error) { misses++ },
	})
	before := testutil.ToFloat64(missesTotal)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("a single miss must not fail the tick: %v", err)
	}
	if calls != 2 || misses != 1 {
		t.Fatalf("expected 2 probes and 1 miss, got %d/%d", calls, misses)
	}
	if testutil.ToFloat64(missesTotal)-before != 1 {
		t.Fatalf("miss counter not incremented")
	}
}

func TestSustainedMissIsUnreachable(t *testing.T) {
	var reported error
	s := New(Config{
		Probe:         func(context.Context) error { return context.DeadlineExceeded },
		Connected:     func() bool { return true },
		OnUnreachable: func(err error) { reported = err },
	})
	err := s.Tick(context.Background())
	var uerr *UnreachableError
	if !errors.As(err, &uerr) || uerr.Attempts != probeAttempts {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
	if !errors.Is(err, ErrChildUnreachable) || process.Code(err) != process.ExitChildUnreachable {
		t.Fatalf("unreachable must map to its own exit code, got %d", process.Code(err))
	}
	if process.Code(err) == process.ExitMessageHandlingFailed {
		t.Fatalf("liveness failure must not share the protocol corruption code")
	}
	if reported != err {
		t.Fatalf("OnUnreachable not called with the tick error")
	}
}

func TestDisconnectMidProbeIsNotUnreachable(t *testing.T) {
	var connected atomic.Bool
	connected.Store(true)
	s := New(Config{
		Probe: func(context.Context) error {
			connected.Store(false)
			return errors.New("closed")
		},
		Connected:     connected.Load,
		OnUnreachable: func(error) { t.Fatalf("disconnect must not be escalated") },
	})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}

func TestProbeHonoursTimeout(t *testing.T) {
	s := New(Config{
		Probe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Connected: func() bool { return true },
	})
	s.timeout = 10 * time.Millisecond
	start := time.Now()
	if err := s.Tick(context.Background()); err == nil {
		t.Fatalf("expected unreachable")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("probe timeout not applied")
	}
}

func TestStartTicksAndStopReleasesGoroutine(t *testing.T) {
	before := runtime.NumGoroutine()
	var ticks atomic.Int32
	s := New(Config{
		Probe:     func(context.Context) error { ticks.Add(1); return nil },
		Connected: func() bool { return true },
	})
	s.interval = 5 * time.Millisecond
	s.Start()
	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("ticker did not run")
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatalf("supervisor still running after Stop")
	}
	n := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != n {
		t.Fatalf("ticks continued after Stop")
	}
	// Give the runtime a moment to reap the exited goroutine.
	deadline = time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("goroutine leak: before=%d after=%d", before, runtime.NumGoroutine())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := New(Config{})
	s.Stop()
	if s.Running() {
		t.Fatalf("unexpected running state")
	}
}
