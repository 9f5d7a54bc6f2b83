package graph

import (
	"fmt"
	"strings"

	"github.com/stackgraph/stackgraph/suggest"
)

// DuplicateNodeError is returned when adding a node with a name that is
// already used in the graph.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node %q", e.Name)
}

// UnknownNodeError is returned when referring to a node that does not exist.
type UnknownNodeError struct {
	Name       string
	Suggestion string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %q does not exist%s", e.Name, suggest.Hint(e.Suggestion))
}

// UnknownKindError is returned when adding a node with an unknown kind.
type UnknownKindError struct {
	Node       string
	Kind       Kind
	Suggestion string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("node %q: unknown kind %q%s", e.Node, e.Kind, suggest.Hint(e.Suggestion))
}

// CycleError is returned when adding an edge would create a cycle.
type CycleError struct {
	From, To string

	// Path is the cycle that the edge would have closed, starting and ending
	// with From.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge %s -> %s creates a cycle: %s", e.From, e.To, strings.Join(e.Path, " -> "))
}

// GateExistsError is returned when attaching a second gate to a node.
type GateExistsError struct {
	Node string
}

func (e *GateExistsError) Error() string {
	return fmt.Sprintf("node %q already has a gate", e.Node)
}

// NoGateError is returned when changing the gate status of a node that has no
// gate.
type NoGateError struct {
	Node string
}

func (e *NoGateError) Error() string {
	return fmt.Sprintf("node %q has no gate", e.Node)
}
