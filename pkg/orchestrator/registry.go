package orchestrator

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry holds the enabled workflow definitions. Immutable after
// construction; workflows are looked up on every request.
type Registry struct {
	workflows map[string]*Workflow
	names     []string
}

// NewRegistry builds the registry over the built-in catalog. enabled filters
// by name; empty keeps the whole catalog. Unknown names are rejected so a
// config typo fails loudly at startup.
func NewRegistry(enabled []string) (*Registry, error) {
	return NewRegistryFrom(Catalog(), enabled)
}

// NewRegistryFrom builds a registry over an explicit catalog.
func NewRegistryFrom(catalog []*Workflow, enabled []string) (*Registry, error) {
	byName := make(map[string]*Workflow, len(catalog))
	for _, wf := range catalog {
		if err := wf.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[wf.Name]; dup {
			return nil, fmt.Errorf("duplicate workflow %q", wf.Name)
		}
		byName[wf.Name] = wf
	}

	keep := byName
	if len(enabled) > 0 {
		keep = make(map[string]*Workflow, len(enabled))
		for _, name := range enabled {
			wf, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("unknown workflow %q in enabled set", name)
			}
			keep[name] = wf
		}
	}

	names := make([]string, 0, len(keep))
	for name := range keep {
		names = append(names, name)
	}
	sort.Strings(names)

	slog.Info("Workflow registry initialized", "workflows", names)
	return &Registry{workflows: keep, names: names}, nil
}

// Get returns the workflow registered under name.
func (r *Registry) Get(name string) (*Workflow, bool) {
	wf, ok := r.workflows[name]
	return wf, ok
}

// Names returns the enabled workflow names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
