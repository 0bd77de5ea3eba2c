package device

import (
	"fmt"
	"slices"
	"sync"
)

// Registered backend names.
const (
	BackendWGPU     = "wgpu"
	BackendGL       = "gl"
	BackendHeadless = "headless"
)

// BackendFactory creates a new, uninitialized backend instance.
type BackendFactory func() GraphicsBackend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
	// Priority order for Default: explicit API first, headless last.
	backendPriority = []string{BackendWGPU, BackendGL, BackendHeadless}
)

// Register registers a backend factory under a name, replacing any previous registration.
// Backend packages call this from init().
//
// Parameters:
//   - name: the backend name
//   - factory: the constructor
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
//
// Parameters:
//   - name: the backend name
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
//
// Returns:
//   - []string: the backend names
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get creates the backend registered under name.
//
// Parameters:
//   - name: the backend name
//
// Returns:
//   - GraphicsBackend: a new backend instance
//   - error: ErrBackendNotAvailable if nothing is registered under name
func Get(name string) (GraphicsBackend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	return factory(), nil
}

// Default creates the highest priority registered backend.
//
// Returns:
//   - GraphicsBackend: a new backend instance
//   - error: ErrBackendNotAvailable if no backend is registered
func Default() (GraphicsBackend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if b := factory(); b != nil {
				return b, nil
			}
		}
	}
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if b := backends[name](); b != nil {
			return b, nil
		}
	}
	return nil, ErrBackendNotAvailable
}
