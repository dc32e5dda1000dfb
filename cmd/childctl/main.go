package main

import (
	"os"

	"childctl/internal/process"
	"childctl/internal/registry"
)

func main() {
	cfg := &rootConfig{LogLevel: envStr("CHILDCTL_LOG_LEVEL", "info"), LogFormat: envStr("CHILDCTL_LOG_FORMAT", "console")}
	err := buildRootCmdWith(cfg, os.Stdout, os.Stderr).Execute()
	registry.Default().Clear()
	if err != nil {
		process.Fatal(err)
	}
}
