package backend

import (
	"sort"
	"sync"
)

// Factory creates a new backend instance.
type Factory func() Backend

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// A real GPU beats the host-executing fallback.
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available backend based on priority.
// Priority order: wgpu > software
// Returns nil if no backends are registered.
func Default() Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if b := factory(); b != nil {
				return b
			}
		}
	}

	// Fallback: first available in name order, so the choice is stable.
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if b := backends[name](); b != nil {
			return b
		}
	}

	return nil
}

// MustDefault returns the default backend or panics.
func MustDefault() Backend {
	b := Default()
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// InitDefault initializes the best backend that initializes successfully.
// A registered wgpu backend that finds no usable GPU falls through to the
// next backend in priority order.
func InitDefault() (Backend, error) {
	registryMu.RLock()
	var candidates []Factory
	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			candidates = append(candidates, factory)
		}
	}
	registryMu.RUnlock()

	if len(candidates) == 0 {
		b := Default()
		if b == nil {
			return nil, ErrBackendNotAvailable
		}
		if err := b.Init(); err != nil {
			return nil, err
		}
		return b, nil
	}

	var lastErr error
	for _, factory := range candidates {
		b := factory()
		if b == nil {
			continue
		}
		if err := b.Init(); err != nil {
			lastErr = err
			continue
		}
		return b, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrBackendNotAvailable
}
