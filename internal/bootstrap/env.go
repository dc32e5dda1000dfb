package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"childctl/internal/registry"
)

const (
	// AddressEnv carries the control endpoint address to the child.
	AddressEnv = "CHILDCTL_ADDRESS"
	// ManagerIDEnv carries the manager id that keys the loader registration.
	ManagerIDEnv = "CHILDCTL_MANAGER_ID"
	// SnapshotEnv carries the path of the registry snapshot, when one is written.
	SnapshotEnv = "CHILDCTL_REGISTRY_SNAPSHOT"
)

// ErrNoAddress is returned when the child was not started by a manager.
var ErrNoAddress = errors.New("bootstrap: " + AddressEnv + " is not set")

// AddressFromEnv returns the control address the parent injected.
func AddressFromEnv() (string, error) {
	addr, ok := os.LookupEnv(AddressEnv)
	if !ok || addr == "" {
		return "", ErrNoAddress
	}
	return addr, nil
}

// HookFromEnv builds the module resolution hook from the registry snapshot
// and manager id the parent injected. Without a snapshot the hook resolves
// through native only.
func HookFromEnv(native func(string) (*url.URL, error)) (*registry.Hook, error) {
	h := &registry.Hook{Native: native, Key: os.Getenv(ManagerIDEnv)}
	path := os.Getenv(SnapshotEnv)
	if path == "" {
		h.Store = registry.NewStore()
		return h, nil
	}
	store, err := registry.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("load registry snapshot: %w", err)
	}
	h.Store = store
	return h, nil
}
