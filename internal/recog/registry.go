package recog

import (
	"fmt"
)

// Registry is the fixed set of engines a Dispatcher calls. It never changes
// after construction, so concurrent readers need no locking.
type Registry struct {
	engines []Engine
}

// NewRegistry builds a registry. Engine names must be unique.
func NewRegistry(engines ...Engine) (*Registry, error) {
	seen := make(map[string]struct{}, len(engines))
	list := make([]Engine, 0, len(engines))

	for _, e := range engines {
		if e == nil {
			continue
		}
		if _, dup := seen[e.Name()]; dup {
			return nil, fmt.Errorf("engine %q registered twice", e.Name())
		}
		seen[e.Name()] = struct{}{}
		list = append(list, e)
	}

	return &Registry{engines: list}, nil
}

// Len returns the number of engines.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.engines)
}

// Empty reports whether no engine is registered.
func (r *Registry) Empty() bool { return r.Len() == 0 }

// Engines returns a copy of the engine list in registration order.
func (r *Registry) Engines() []Engine {
	if r == nil {
		return nil
	}
	out := make([]Engine, len(r.engines))
	copy(out, r.engines)
	return out
}

// Names returns the engine names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.Len())
	for _, e := range r.Engines() {
		names = append(names, e.Name())
	}
	return names
}
