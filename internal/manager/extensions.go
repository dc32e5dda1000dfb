package manager

import (
	"fmt"

	"childctl/internal/inject"
	"childctl/internal/registry"
)

// Register publishes the configured loader under ID() and, when configured,
// rewrites the registry snapshot. Without a loader it does nothing.
func (m *Manager) Register() error {
	if m.opts.Loader == nil {
		return nil
	}
	u, err := registry.Canonical(m.opts.Loader.String())
	if err != nil {
		return fmt.Errorf("register loader: %w", err)
	}
	if err := m.opts.Registry.Publish(m.id, u); err != nil {
		return fmt.Errorf("register loader: %w", err)
	}
	if m.opts.RegistrySnapshot != "" {
		if err := m.opts.Registry.WriteSnapshot(m.opts.RegistrySnapshot); err != nil {
			return fmt.Errorf("write registry snapshot: %w", err)
		}
	}

	m.mu.Lock()
	m.registered = true
	m.mu.Unlock()
	m.log.Info().Str("loader", u.String()).Msg("loader registered")
	m.publish("register", map[string]any{"loader": u.String()})
	return nil
}

// Inject writes the instrumentation hooks into the environment variable and
// returns the handle that restores it. Eject or Close releases the most
// recent injection. Injecting twice without an Eject captures the first
// injected value as the prior value of the second.
func (m *Manager) Inject() (*inject.Injection, error) {
	if m.closed() {
		return nil, ErrManagerClosed
	}
	inj, err := m.injector.Inject()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.injection = inj
	m.mu.Unlock()
	m.log.Debug().Str("var", inj.Var()).Str("value", inj.Value()).Msg("environment injected")
	m.publish("inject", map[string]any{"var": inj.Var()})
	return inj, nil
}

// Eject releases the most recent injection. It is a no-op without one.
func (m *Manager) Eject() error {
	m.mu.Lock()
	inj := m.injection
	m.injection = nil
	m.mu.Unlock()
	if inj == nil {
		return nil
	}
	if err := inj.Release(); err != nil {
		return err
	}
	m.publish("eject", map[string]any{"var": inj.Var()})
	return nil
}
