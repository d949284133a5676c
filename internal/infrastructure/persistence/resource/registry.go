package resource

import (
	"context"
	"sort"
)

// Resource is the type-erased view of a registered engine. The audit
// side-channel uses it to fetch pre-images without knowing model types.
type Resource interface {
	Name() string
	SoftDelete() bool
	Fetch(ctx context.Context, id string) (any, error)
}

// Registry holds every registered resource by name. Registration happens
// once during wiring; lookups afterwards are read-only, so no locking is
// needed.
type Registry struct {
	resources map[string]Resource
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]Resource)}
}

// Register adds a resource. Registering the same name twice panics: that is
// a wiring bug, not a runtime condition.
func (r *Registry) Register(res Resource) {
	if _, exists := r.resources[res.Name()]; exists {
		panic("resource registered twice: " + res.Name())
	}
	r.resources[res.Name()] = res
}

// Lookup returns the resource registered under name.
func (r *Registry) Lookup(name string) (Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Names returns the registered resource names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
