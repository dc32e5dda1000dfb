package registry

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Store maps manager ids to loader URLs.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*url.URL
}

var (
	defaultStore *Store
	defaultOnce  sync.Once
)

// Default returns the process-wide store.
func Default() *Store {
	defaultOnce.Do(func() { defaultStore = NewStore() })
	return defaultStore
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*url.URL)}
}

// Publish maps key to u, replacing any previous entry.
func (s *Store) Publish(key string, u *url.URL) error {
	if key == "" {
		return errors.New("registry: empty key")
	}
	if u == nil {
		return errors.New("registry: nil loader url")
	}
	cp := *u
	s.mu.Lock()
	s.entries[key] = &cp
	s.mu.Unlock()
	return nil
}

// Lookup returns a copy of the URL registered under key.
func (s *Store) Lookup(key string) (*url.URL, bool) {
	s.mu.RLock()
	u, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// Remove drops the entry for key.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*url.URL)
	s.mu.Unlock()
}

// Keys returns the registered ids in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

const snapshotVersion = 1

type snapshot struct {
	Version int               `cbor:"version"`
	Entries map[string]string `cbor:"entries"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("registry: CBOR encoder initialization failed: " + err.Error())
	}
	return em
}()

// WriteSnapshot writes the store to path atomically so a reader never sees
// a partial file.
func (s *Store) WriteSnapshot(path string) error {
	snap := snapshot{Version: snapshotVersion, Entries: make(map[string]string)}
	s.mu.RLock()
	for k, u := range s.entries {
		snap.Entries[k] = u.String()
	}
	s.mu.RUnlock()

	data, err := encMode.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode registry snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*")
	if err != nil {
		return fmt.Errorf("create registry snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write registry snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync registry snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close registry snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install registry snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a store written by WriteSnapshot.
func ReadSnapshot(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode registry snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported registry snapshot version %d", snap.Version)
	}
	s := NewStore()
	for k, raw := range snap.Entries {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("registry entry %q: %w", k, err)
		}
		s.entries[k] = u
	}
	return s, nil
}
