// Package casregistry lets storage backends register themselves by name so
// that configuration can select one at run time. A backend registers in
// init(); a binary enables it by importing the backend package.
package casregistry

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"xdao.co/keysig/storage"
)

type Backend struct {
	Name        string
	Description string

	// Open constructs the CAS rooted at dir. It returns an optional close function.
	Open func(dir string) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("casregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("casregistry: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// Names returns the registered backend names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open opens the named backend. The returned close function is never nil.
func Open(name, dir string) (storage.CAS, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("casregistry: unknown backend %q (have %v)", name, Names())
	}
	cas, closeFn, err := b.Open(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("casregistry: open %s: %w", name, err)
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, nil
}

// OpenReplicated opens each named backend under dir/<name> and returns a
// storage.ReplicatingCAS over them, in order.
func OpenReplicated(names []string, dir string) (storage.CAS, func() error, error) {
	var (
		named   []storage.NamedCAS
		closers []func() error
	)
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	for _, name := range names {
		cas, closeFn, err := Open(name, filepath.Join(dir, name))
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		named = append(named, storage.NamedCAS{Name: name, CAS: cas})
		closers = append(closers, closeFn)
	}
	if len(named) == 0 {
		return nil, nil, storage.ErrNoBackends
	}
	return storage.ReplicatingCAS{Backends: named}, closeAll, nil
}
