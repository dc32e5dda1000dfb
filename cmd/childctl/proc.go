package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"childctl/internal/process"
)

// childCmd describes the supervised child.
type childCmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars
	Dir    string            // working directory
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// start launches c with the current environment plus c.Env. The returned
// channel yields the result of Wait exactly once.
func (c childCmd) start() (*exec.Cmd, <-chan error, error) {
	cmd := exec.Command(c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = c.Stdin, c.Stdout, c.Stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", c.Path, err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return cmd, done, nil
}

// exitError turns a Wait result into an error carrying the child's status.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() > 0 {
		return &process.ExitCodeError{Code: ee.ExitCode(), Err: fmt.Errorf("child %w", err)}
	}
	return fmt.Errorf("child: %w", err)
}
