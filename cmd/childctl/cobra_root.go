package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootConfig holds persistent flag values shared by all subcommands.
type rootConfig struct {
	LogLevel  string
	LogFormat string

	logger zerolog.Logger
	logOut io.Writer
}

// useConfigLogLevel rebuilds the logger from a config file level unless
// --log-level was given on the command line.
func (cfg *rootConfig) useConfigLogLevel(cmd *cobra.Command, level string) error {
	if level == "" {
		return nil
	}
	if fl := cmd.Flag("log-level"); fl != nil && fl.Changed {
		return nil
	}
	logger, err := newLogger(cfg.logOut, level, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("config log_level: %w", err)
	}
	cfg.LogLevel = level
	cfg.logger = logger
	return nil
}

// buildRootCmdWith constructs the command tree. Output goes to stdout and
// logs to stderr.
func buildRootCmdWith(cfg *rootConfig, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "childctl",
		Short:         "Run a child process behind a supervised control channel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error (defaults CHILDCTL_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console|json (defaults CHILDCTL_LOG_FORMAT or console)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		cfg.logger = logger
		cfg.logOut = stderr
		return nil
	}

	root.AddCommand(newRunCmd(cfg), newResolveCmd(cfg))

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout()) }})
	root.AddCommand(completionCmd)

	return root
}
