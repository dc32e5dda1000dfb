package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"childctl/internal/endpoint"
	"childctl/internal/inject"
	"childctl/internal/liveness"
	"childctl/internal/router"
)

type Manager struct {
	id        string
	opts      Options
	log       zerolog.Logger
	publisher EventPublisher

	ep       *endpoint.Endpoint
	rt       *router.Router
	sup      *liveness.Supervisor
	injector *inject.Injector

	mu         sync.Mutex
	state      State
	injection  *inject.Injection
	registered bool

	fatalCh   chan error
	fatalOnce sync.Once
}

// New builds a manager that is not yet listening. Every field of opts is
// optional; see Options for the defaults.
func New(opts Options) *Manager {
	opts = opts.withDefaults()
	id := uuid.NewString()
	m := &Manager{
		id:        id,
		opts:      opts,
		log:       opts.Logger.With().Str("manager_id", id).Logger(),
		publisher: opts.Publisher,
		state:     StateIdle,
		fatalCh:   make(chan error, 1),
	}

	m.ep = endpoint.New(endpoint.Config{
		Dir:          opts.SocketDir,
		Seed:         id,
		Logger:       m.log,
		OnFrame:      m.onFrame,
		OnConnect:    m.onConnect,
		OnDisconnect: m.onDisconnect,
		OnFatal:      m.onProtocolError,
	})
	m.rt = router.New(m.ep.Send, m.log)
	m.sup = liveness.New(liveness.Config{
		Probe:         m.ep.Ping,
		Connected:     m.ep.Connected,
		OnMiss:        m.onLivenessMiss,
		OnUnreachable: m.onUnreachable,
		Logger:        m.log,
	})
	m.injector = &inject.Injector{
		Var:           opts.EnvVar,
		BootstrapHook: opts.BootstrapHook,
		TelemetryHook: opts.TelemetryHook,
		Telemetry:     opts.Context.Telemetry(),
		Env:           opts.Env,
	}
	return m
}

// ID returns the manager identity. It keys the extension registry.
func (m *Manager) ID() string { return m.id }

// SocketPath returns the bound socket path, or "" when not listening.
func (m *Manager) SocketPath() string { return m.ep.SocketPath() }

// Address returns the address a child dials, or "" when not listening.
func (m *Manager) Address() string { return m.ep.Address() }

// Connected reports whether a child is attached.
func (m *Manager) Connected() bool { return m.ep.Connected() }

// Listen binds a fresh control socket and starts the liveness ticker.
// Calling Listen again replaces the socket with one at a new path.
func (m *Manager) Listen() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.mu.Unlock()

	if err := m.ep.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	m.sup.Start()

	m.mu.Lock()
	if m.state != StateClosed {
		m.state = StateListening
	}
	m.mu.Unlock()
	m.publish("listen", map[string]any{"path": m.ep.SocketPath()})
	return nil
}

// Close stops the liveness ticker, fails pending requests, closes the
// endpoint and releases an outstanding injection. Only the first call acts.
// Close must not be called from a handler or from OnFatal.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	inj := m.injection
	m.injection = nil
	m.mu.Unlock()

	m.sup.Stop()
	failed := m.rt.FailAll(ErrManagerClosed)

	var errs []error
	if err := m.ep.Close(); err != nil {
		errs = append(errs, err)
	}
	if inj != nil {
		if err := inj.Release(); err != nil {
			errs = append(errs, err)
		}
	}

	m.log.Info().Int("failed_requests", failed).Msg("manager closed")
	m.publish("close", map[string]any{"failed_requests": failed})
	return errors.Join(errs...)
}

// Snapshot returns a read-only view of the manager.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ID:         m.id,
		State:      m.state,
		SocketPath: m.ep.SocketPath(),
		Address:    m.ep.Address(),
		Pending:    m.rt.Pending(),
		Registered: m.registered,
		Injected:   m.injection != nil,
	}
}

func (m *Manager) onConnect() {
	m.mu.Lock()
	if m.state != StateClosed {
		m.state = StateConnected
	}
	m.mu.Unlock()
	m.publish("child_connected", nil)
}

func (m *Manager) onDisconnect(err error) {
	failed := m.rt.FailAll(ErrChildDisconnected)
	m.mu.Lock()
	if m.state == StateConnected {
		m.state = StateListening
	}
	m.mu.Unlock()
	fields := map[string]any{"failed_requests": failed}
	if err != nil {
		fields["reason"] = err.Error()
	}
	m.publish("child_disconnected", fields)
}
