package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"childctl/internal/bootstrap"
	"childctl/internal/common/fsutil"
	"childctl/internal/config"
	"childctl/internal/manager"
)

type runFlags struct {
	ConfigPath       string
	Loader           string
	SocketDir        string
	RegistrySnapshot string
	TelemetryService string
	NoTelemetry      bool
}

func newRunCmd(cfg *rootConfig) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:     "run [flags] -- <command> [args...]",
		Short:   "Start a child process with the control channel injected",
		Example: "  childctl run --loader ./loader.mjs -- node server.js\n  childctl run --config childctl.yaml --no-telemetry -- node worker.js",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fileCfg, err := f.config()
			if err != nil {
				return err
			}
			if err := cfg.useConfigLogLevel(cmd, fileCfg.LogLevel); err != nil {
				return err
			}
			opts, err := fileCfg.Options()
			if err != nil {
				return err
			}
			return runChild(ctx, cfg, opts, childCmd{
				Path:   args[0],
				Args:   args[1:],
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}
	cmd.Flags().StringVar(&f.ConfigPath, "config", "", "Config file (.yaml, .yml, .json, .jsonc, .toml)")
	cmd.Flags().StringVar(&f.Loader, "loader", "", "Custom module loader path or URL to register for the child")
	cmd.Flags().StringVar(&f.SocketDir, "socket-dir", "", "Directory for the control socket (defaults to the temp dir)")
	cmd.Flags().StringVar(&f.RegistrySnapshot, "registry-snapshot", "", "Write the loader registry snapshot to this path")
	cmd.Flags().StringVar(&f.TelemetryService, "telemetry-service", "", "Enable the telemetry hook with this service name")
	cmd.Flags().BoolVar(&f.NoTelemetry, "no-telemetry", false, "Never inject the telemetry hook")
	return cmd
}

// options merges the config file with flag overrides.
func (f runFlags) options() (manager.Options, error) {
	fileCfg, err := f.config()
	if err != nil {
		return manager.Options{}, err
	}
	return fileCfg.Options()
}

// config loads the config file, if any, and applies flag overrides to it.
func (f runFlags) config() (config.Config, error) {
	var fileCfg config.Config
	if f.ConfigPath != "" {
		c, err := config.Load(f.ConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		fileCfg = c
	}
	if f.Loader != "" {
		fileCfg.Loader = f.Loader
	}
	if f.SocketDir != "" {
		fileCfg.SocketDir = f.SocketDir
	}
	if f.RegistrySnapshot != "" {
		fileCfg.RegistrySnapshot = f.RegistrySnapshot
	}
	if f.TelemetryService != "" {
		if fileCfg.Telemetry == nil {
			fileCfg.Telemetry = &config.Telemetry{}
		}
		fileCfg.Telemetry.ServiceName = f.TelemetryService
		on := true
		fileCfg.Telemetry.Enabled = &on
	}
	if f.NoTelemetry && fileCfg.Telemetry != nil {
		off := false
		fileCfg.Telemetry.Enabled = &off
	}
	return fileCfg, nil
}

// runChild supervises one child until it exits, the manager reports a fatal
// condition or ctx is cancelled. A fatal condition kills the child and is
// returned so main exits with its mapped code.
func runChild(ctx context.Context, cfg *rootConfig, opts manager.Options, child childCmd) error {
	log := cfg.logger
	opts.Logger = &log
	// Fatal conditions are taken from m.Fatal() below.
	opts.OnFatal = func(error) {}

	if opts.SocketDir != "" {
		dir, err := fsutil.EnsureDir(opts.SocketDir)
		if err != nil {
			return fmt.Errorf("socket dir: %w", err)
		}
		opts.SocketDir = dir
	}

	m := manager.New(opts)
	defer func() {
		if err := m.Close(); err != nil {
			log.Error().Err(err).Msg("closing manager")
		}
	}()
	if err := m.Listen(); err != nil {
		return err
	}
	if err := m.Register(); err != nil {
		return err
	}

	child.Env = map[string]string{
		bootstrap.AddressEnv:   m.Address(),
		bootstrap.ManagerIDEnv: m.ID(),
	}
	if opts.RegistrySnapshot != "" {
		child.Env[bootstrap.SnapshotEnv] = opts.RegistrySnapshot
	}

	if _, err := m.Inject(); err != nil {
		return err
	}
	proc, done, startErr := child.start()
	if err := m.Eject(); err != nil {
		log.Error().Err(err).Msg("restoring environment")
	}
	if startErr != nil {
		return startErr
	}
	log.Info().Int("pid", proc.Process.Pid).Str("command", child.Path).Msg("child started")

	select {
	case err := <-done:
		log.Info().Int("exit_code", proc.ProcessState.ExitCode()).Msg("child exited")
		return exitError(err)
	case ferr := <-m.Fatal():
		log.Warn().Int("pid", proc.Process.Pid).Msg("killing child after fatal control channel error")
		_ = proc.Process.Kill()
		<-done
		return ferr
	case <-ctx.Done():
		if err := proc.Process.Signal(os.Interrupt); err != nil {
			_ = proc.Process.Kill()
		}
		return exitError(<-done)
	}
}
