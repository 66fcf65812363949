package addons

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps addon names to addons.
type Registry struct {
	mu     sync.RWMutex
	addons map[string]Addon
}

// NewRegistry returns a registry holding addons.
func NewRegistry(addons ...Addon) *Registry {
	r := &Registry{addons: make(map[string]Addon)}
	for _, a := range addons {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing an addon of the same name.
func (r *Registry) Register(a Addon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addons[a.Name()] = a
}

// Get returns the addon called name.
func (r *Registry) Get(name string) (Addon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.addons[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAddonNotFound, name)
	}
	return a, nil
}

// List returns the registered addons ordered by name.
func (r *Registry) List() []Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.SortedFunc(maps.Values(r.addons), func(a, b Addon) int {
		return cmp.Compare(a.Name(), b.Name())
	})
}
