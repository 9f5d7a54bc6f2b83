// Package blueprint provides stack blueprints: deployments defined in Go that
// can be added to a stack from configuration with a blueprint block.
package blueprint

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/stackgraph/stackgraph/stack"
	"github.com/stackgraph/stackgraph/suggest"
)

// A Blueprint adds a predefined set of units to a stack.
type Blueprint interface {
	// Name is the name used to refer to the blueprint in configuration.
	Name() string

	// Build adds the blueprint's units to the builder. The body contains the
	// parameters of the blueprint block and may be nil, in which case the
	// defaults are used.
	Build(b *stack.Builder, params hcl.Body) hcl.Diagnostics
}

// NotFoundError is returned when a blueprint is not registered.
type NotFoundError struct {
	Name       string
	Suggestion string
}

// Error implements error.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("blueprint %q not found%s", e.Name, suggest.Hint(e.Suggestion))
}

// A Registry maintains a list of registered blueprints.
//
// The zero value is an empty registry ready to use.
type Registry struct {
	blueprints map[string]Blueprint
}

// FromBlueprints creates a new registry from a predefined list of blueprints.
func FromBlueprints(bps ...Blueprint) *Registry {
	r := &Registry{}
	for _, bp := range bps {
		r.Register(bp)
	}
	return r
}

// Register adds a blueprint. If another blueprint with the same name is
// already registered, it is overwritten.
//
// Not safe for concurrent access.
func (r *Registry) Register(bp Blueprint) {
	if r.blueprints == nil {
		r.blueprints = make(map[string]Blueprint)
	}
	r.blueprints[bp.Name()] = bp
}

// Get returns a blueprint by name. Returns a *NotFoundError with a suggestion
// if no such blueprint is registered.
func (r *Registry) Get(name string) (Blueprint, error) {
	bp, ok := r.blueprints[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Suggestion: suggest.String(name, r.Names())}
	}
	return bp, nil
}

// Names returns the names of all registered blueprints, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.blueprints))
	for name := range r.blueprints {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
