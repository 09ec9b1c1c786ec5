package solver

import (
	"fmt"
	"slices"
	"sync"
)

var (
	mu       sync.RWMutex
	backends = make(map[string]func() Solver)
)

// Register registers a backend factory under name. It panics if the name is
// taken.
func Register(name string, f func() Solver) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := backends[name]; ok {
		panic("solver: backend already registered: " + name)
	}
	backends[name] = f
}

// New creates a solver from the backend registered under name.
func New(name string) (Solver, error) {
	mu.RLock()
	f, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("solver: unsupported backend %q (available: %v)", name, Names())
	}
	return f(), nil
}

// Names lists the registered backends in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
