package compose

import (
	"fmt"
	"sort"

	"github.com/souissim/gridpath/internal/module"
)

// Factory creates a fresh module value.
type Factory func() module.Module

// Registry maps module names to factories.
//
// Thread-safety: register everything before use; lookups are read-only.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. The factory's module must report the same name.
func (r *Registry) Register(name string, f Factory) error {
	if _, ok := r.factories[name]; ok {
		return &CompositionError{Code: ErrCodeDuplicateModule, Module: name}
	}
	if got := f().Name(); got != name {
		return fmt.Errorf("register %s: factory builds module named %q", name, got)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register that panics on error, for static module tables.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Names returns every registered module name, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New instantiates one module.
func (r *Registry) New(name string) (module.Module, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, &CompositionError{Code: ErrCodeUnknownModule, Module: name}
	}
	return f(), nil
}

// Resolve instantiates the requested modules and orders them so every
// module comes after its dependencies.
func (r *Registry) Resolve(names []string) ([]module.Module, error) {
	seen := make(map[string]bool, len(names))
	mods := make([]module.Module, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, &CompositionError{Code: ErrCodeDuplicateModule, Module: name}
		}
		seen[name] = true
		m, err := r.New(name)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return order(mods)
}
