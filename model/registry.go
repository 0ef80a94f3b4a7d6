package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Sentinel errors for registry operations.
var (
	// ErrUnknownModel indicates the requested model is not registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrDuplicateModel indicates a spec with the same name already exists.
	ErrDuplicateModel = errors.New("model already registered")
)

// Registry maps model names to immutable Specs.
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a spec to the registry. Specs are immutable once
// registered: re-registering the same name returns ErrDuplicateModel.
func (r *Registry) Register(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

// MustRegister adds a spec, panicking on error.
// Use for startup-time registration where failure is a programming error.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(fmt.Sprintf("model.MustRegister(%q): %v", spec.Name, err))
	}
}

// Lookup returns the spec for the given name. If the exact name is not
// registered, the normalized family alias is tried (so a caller asking
// for "openrouter/anthropic/claude-sonnet-4.5" can hit a spec registered
// as "sonnet"). Returns ErrUnknownModel when neither matches.
func (r *Registry) Lookup(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if spec, ok := r.specs[name]; ok {
		return spec, nil
	}
	if spec, ok := r.specs[Normalize(name)]; ok {
		return spec, nil
	}
	return Spec{}, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

// MustLookup returns the spec for the given name, panicking if missing.
func (r *Registry) MustLookup(name string) Spec {
	spec, err := r.Lookup(name)
	if err != nil {
		panic(fmt.Sprintf("model.MustLookup(%q): %v", name, err))
	}
	return spec
}

// Has reports whether a name (or its family alias) is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Names returns all registered names, sorted for consistent ordering.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered specs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// Default is the process-wide registry built at startup.
var Default = NewRegistry()

// Register adds a spec to the default registry.
func Register(spec Spec) error { return Default.Register(spec) }

// MustRegister adds a spec to the default registry, panicking on error.
func MustRegister(spec Spec) { Default.MustRegister(spec) }

// Lookup returns a spec from the default registry.
func Lookup(name string) (Spec, error) { return Default.Lookup(name) }
