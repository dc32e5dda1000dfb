package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"childctl/internal/registry"
)

func newResolveCmd(cfg *rootConfig) *cobra.Command {
	var snapshot, key, dir string
	cmd := &cobra.Command{
		Use:     "resolve <specifier>",
		Short:   "Resolve a module specifier through a registry snapshot and print the module",
		Example: "  childctl resolve --snapshot /run/childctl/registry.cbor --key 5f0c... ./worker.js",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshot == "" || key == "" {
				return errors.New("resolve requires --snapshot and --key")
			}
			store, err := registry.ReadSnapshot(snapshot)
			if err != nil {
				return err
			}
			if dir == "" {
				if dir, err = os.Getwd(); err != nil {
					return err
				}
			}
			hook := &registry.Hook{Store: store, Key: key, Native: registry.NativeFiles(dir)}
			u, src, err := hook.ResolveAndLoad(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cfg.logger.Debug().Str("specifier", args[0]).Str("url", u.String()).Msg("resolved")
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(src))
			return err
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Registry snapshot written by 'childctl run'")
	cmd.Flags().StringVar(&key, "key", "", "Manager id the loader was registered under")
	cmd.Flags().StringVar(&dir, "dir", "", "Base directory for native file resolution (defaults to cwd)")
	return cmd
}
