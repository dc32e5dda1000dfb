package config

import (
	"fmt"

	"childctl/internal/common/fsutil"
	"childctl/internal/manager"
	"childctl/internal/registry"
	"childctl/pkg/types"
)

// Options converts the file values into manager options. Paths have a
// leading '~' expanded and the loader is canonicalised to a URL. Logger,
// Publisher and OnFatal are left for the caller.
func (c Config) Options() (manager.Options, error) {
	var opts manager.Options

	dir, err := fsutil.ExpandHome(c.SocketDir)
	if err != nil {
		return opts, fmt.Errorf("socket_dir: %w", err)
	}
	opts.SocketDir = dir

	snap, err := fsutil.ExpandHome(c.RegistrySnapshot)
	if err != nil {
		return opts, fmt.Errorf("registry_snapshot: %w", err)
	}
	opts.RegistrySnapshot = snap

	if c.Loader != "" {
		u, err := registry.Canonical(c.Loader)
		if err != nil {
			return opts, fmt.Errorf("loader: %w", err)
		}
		opts.Loader = u
	}

	opts.EnvVar = c.EnvVar
	opts.BootstrapHook = c.BootstrapHook
	if c.Telemetry != nil {
		opts.TelemetryHook = c.Telemetry.Hook
		opts.Context = &types.ManagerContext{TelemetryConfig: &types.TelemetryConfig{
			Enabled:     c.Telemetry.Enabled,
			ServiceName: c.Telemetry.ServiceName,
		}}
	}
	return opts, nil
}
