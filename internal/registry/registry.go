package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tutorchat-ai/tutorchat/internal/logging"
	"github.com/tutorchat-ai/tutorchat/internal/storage"
)

// storageKey is the document the registry persists under.
const storageKey = "servers"

// fileVersion is the persisted document version.
const fileVersion = 1

// Tester performs a lightweight per-transport handshake against one server
// without registering it as an active connection. Implemented by
// internal/mcp.
type Tester interface {
	Test(ctx context.Context, cfg ServerConfig) (time.Duration, error)
}

// persistedFile is the durable form of the registry. The in-memory registry
// is a cache over this document; every mutation rewrites it wholly before
// the mutating call returns.
type persistedFile struct {
	Version int                     `json:"version"`
	Servers map[string]ServerConfig `json:"servers"`
	Order   []string                `json:"order"`
}

// Registry owns the set of named tool-server configurations.
type Registry struct {
	mu      sync.Mutex
	store   *storage.Storage
	tester  Tester
	servers map[string]ServerConfig
	order   []string
}

// Load reads the persisted registry from storage. Malformed or unreadable
// storage is treated as an empty registry with a surfaced warning, never a
// startup failure.
func Load(store *storage.Storage, tester Tester) *Registry {
	r := &Registry{
		store:   store,
		tester:  tester,
		servers: make(map[string]ServerConfig),
	}

	var file persistedFile
	err := store.Get(storageKey, &file)
	switch {
	case err == storage.ErrNotFound:
		return r
	case err != nil:
		logging.Warn().Err(err).Msg("tool server storage unreadable, starting with empty registry")
		return r
	}

	for _, name := range file.Order {
		cfg, ok := file.Servers[name]
		if !ok {
			continue
		}
		cfg.Name = name
		if err := cfg.Validate(); err != nil {
			logging.Warn().Str("server", name).Err(err).Msg("skipping invalid persisted server")
			continue
		}
		r.servers[name] = cfg
		r.order = append(r.order, name)
	}

	// Entries missing from the order list (hand-edited files) still load.
	for name, cfg := range file.Servers {
		if _, ok := r.servers[name]; ok {
			continue
		}
		cfg.Name = name
		if err := cfg.Validate(); err != nil {
			logging.Warn().Str("server", name).Err(err).Msg("skipping invalid persisted server")
			continue
		}
		r.servers[name] = cfg
		r.order = append(r.order, name)
	}

	return r
}

// List returns all configured servers in insertion order.
func (r *Registry) List() []ServerConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ServerConfig, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.servers[name])
	}
	return out
}

// Enabled returns the enabled servers in insertion order.
func (r *Registry) Enabled() []ServerConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ServerConfig
	for _, name := range r.order {
		if cfg := r.servers[name]; cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}

// Get returns one server by name.
func (r *Registry) Get(name string) (ServerConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.servers[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return cfg, nil
}

// Len returns the number of configured servers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.servers)
}

// Add validates and stores a new server, persisting before returning.
// The stored config is returned.
func (r *Registry) Add(cfg ServerConfig) (ServerConfig, error) {
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[cfg.Name]; ok {
		return ServerConfig{}, fmt.Errorf("%w: %s", ErrDuplicateName, cfg.Name)
	}

	r.servers[cfg.Name] = cfg
	r.order = append(r.order, cfg.Name)

	if err := r.persist(); err != nil {
		// Roll back the cache so memory matches disk.
		delete(r.servers, cfg.Name)
		r.order = r.order[:len(r.order)-1]
		return ServerConfig{}, err
	}

	logging.Info().Str("server", cfg.Name).Str("transport", string(cfg.Transport)).Msg("tool server added")
	return cfg, nil
}

// Remove deletes a server and persists. Repeated removal fails with
// ErrNotFound.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.servers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.servers, name)
	idx := -1
	for i, n := range r.order {
		if n == name {
			idx = i
			break
		}
	}
	if idx >= 0 {
		r.order = append(r.order[:idx], r.order[idx+1:]...)
	}

	if err := r.persist(); err != nil {
		r.servers[name] = cfg
		if idx >= 0 {
			r.order = append(r.order[:idx], append([]string{name}, r.order[idx:]...)...)
		}
		return err
	}

	logging.Info().Str("server", name).Msg("tool server removed")
	return nil
}

// SetEnabled flips a server's enabled flag and persists. Setting the flag
// to its current value still succeeds without rewriting storage.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.servers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if cfg.Enabled == enabled {
		return nil
	}

	cfg.Enabled = enabled
	r.servers[name] = cfg

	if err := r.persist(); err != nil {
		cfg.Enabled = !enabled
		r.servers[name] = cfg
		return err
	}

	return nil
}

// Test performs a handshake against the named server, or against every
// enabled server when name is empty. One server's failure never aborts
// testing the rest, and registry state is never mutated.
func (r *Registry) Test(ctx context.Context, name string) ([]TestResult, error) {
	if r.tester == nil {
		return nil, fmt.Errorf("no connection tester configured")
	}

	var targets []ServerConfig
	if name != "" {
		cfg, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		targets = []ServerConfig{cfg}
	} else {
		targets = r.Enabled()
	}

	results := make([]TestResult, 0, len(targets))
	for _, cfg := range targets {
		latency, err := r.tester.Test(ctx, cfg)
		res := TestResult{Name: cfg.Name, OK: err == nil, Latency: latency}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	return results, nil
}

// StoragePath returns the on-disk path of the persisted registry.
func (r *Registry) StoragePath() string {
	return r.store.Path(storageKey)
}

// Reload replaces the in-memory cache with the persisted document. Used
// when the storage file changes underneath the process.
func (r *Registry) Reload() {
	fresh := Load(r.store, r.tester)

	r.mu.Lock()
	r.servers = fresh.servers
	r.order = fresh.order
	r.mu.Unlock()
}

// persist writes the full registry to storage. Caller holds r.mu.
func (r *Registry) persist() error {
	file := persistedFile{
		Version: fileVersion,
		Servers: make(map[string]ServerConfig, len(r.servers)),
		Order:   append([]string(nil), r.order...),
	}
	for name, cfg := range r.servers {
		file.Servers[name] = cfg
	}

	if err := r.store.Put(storageKey, file); err != nil {
		return fmt.Errorf("failed to persist registry: %w", err)
	}
	return nil
}
