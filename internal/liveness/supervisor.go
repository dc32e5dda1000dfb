package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"childctl/internal/process"
)

const (
	keepAliveInterval = 5 * time.Second
	probeTimeout      = 2 * time.Second
	probeAttempts     = 2
)

// ErrChildUnreachable is matched by every *UnreachableError.
var ErrChildUnreachable = fmt.Errorf("child unreachable: %w", process.ErrChildUnreachable)

// UnreachableError reports a tick in which every probe missed.
type UnreachableError struct {
	Attempts int
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("child unreachable after %d probes: %v", e.Attempts, e.Err)
}

func (e *UnreachableError) Unwrap() []error { return []error{ErrChildUnreachable, e.Err} }

var missesTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "childctl",
	Subsystem: "liveness",
	Name:      "misses_total",
	Help:      "Liveness probes that failed or timed out",
})

func init() {
	prometheus.MustRegister(missesTotal)
}

// Config wires a Supervisor to the channel it watches.
type Config struct {
	// Probe sends one liveness probe and waits for the acknowledgment.
	Probe func(ctx context.Context) error
	// Connected reports whether a child is attached.
	Connected func() bool
	// OnMiss is called for every failed probe. Optional.
	OnMiss func(attempt int, err error)
	// OnUnreachable is called once when a tick gives up on the child.
	OnUnreachable func(err error)
	Logger        zerolog.Logger
}

// Supervisor runs liveness ticks on a fixed interval.
type Supervisor struct {
	cfg      Config
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped Supervisor.
func New(cfg Config) *Supervisor {
	if cfg.Connected == nil {
		cfg.Connected = func() bool { return false }
	}
	if cfg.OnMiss == nil {
		cfg.OnMiss = func(int, error) {}
	}
	if cfg.OnUnreachable == nil {
		cfg.OnUnreachable = func(error) {}
	}
	return &Supervisor{cfg: cfg, interval: keepAliveInterval, timeout: probeTimeout}
}

// Tick runs one supervisory round. It returns nil when no child is attached,
// when a probe succeeds, or when the child went away mid-probe; it returns an
// *UnreachableError after probeAttempts consecutive misses.
func (s *Supervisor) Tick(ctx context.Context) error {
	if !s.cfg.Connected() || s.cfg.Probe == nil {
		return nil
	}
	var err error
	for attempt := 1; attempt <= probeAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.cfg.Probe(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.cfg.Connected() {
			// Disconnects are reported by the endpoint, not here.
			return nil
		}
		missesTotal.Inc()
		s.cfg.Logger.Error().Err(err).Int("attempt", attempt).Msg("liveness probe missed")
		s.cfg.OnMiss(attempt, err)
	}
	uerr := &UnreachableError{Attempts: probeAttempts, Err: err}
	s.cfg.Logger.Error().Err(uerr).Msg("child unresponsive")
	s.cfg.OnUnreachable(uerr)
	return uerr
}

// Start launches the ticker. Calling Start on a running Supervisor is a no-op.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var uerr *UnreachableError
				if err := s.Tick(ctx); errors.As(err, &uerr) {
					return
				}
			}
		}
	}()
}

// Stop cancels the ticker and waits for it to exit. Safe to call repeatedly
// and on a Supervisor that was never started.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the ticker goroutine is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
