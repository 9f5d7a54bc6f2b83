package synth

import (
	"fmt"
	"strings"

	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/suggest"
)

// BlockedNodeError is returned when nodes cannot start because a gate they
// wait for failed or is not ready. Every blocked node is listed.
type BlockedNodeError struct {
	Blocked []graph.Blocked
}

func (e *BlockedNodeError) Error() string {
	parts := make([]string, len(e.Blocked))
	for i, b := range e.Blocked {
		s := fmt.Sprintf("%s waits for %s (%s", b.Node, b.Gate, b.Status)
		if b.Reason != "" {
			s += ": " + b.Reason
		}
		s += ")"
		if b.Via != b.Gate {
			s += " via " + b.Via
		}
		parts[i] = s
	}
	noun := "nodes"
	if len(e.Blocked) == 1 {
		noun = "node"
	}
	return fmt.Sprintf("%d %s blocked: %s", len(e.Blocked), noun, strings.Join(parts, "; "))
}

// Nodes returns the names of the blocked nodes.
func (e *BlockedNodeError) Nodes() []string {
	out := make([]string, len(e.Blocked))
	for i, b := range e.Blocked {
		out[i] = b.Node
	}
	return out
}

// UnresolvedReferenceError is returned when a node attribute references a
// configuration key that was never set.
type UnresolvedReferenceError struct {
	Node       string
	Attribute  string
	Key        string
	Suggestion string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf(
		"%s.%s: unresolved reference env.%s%s",
		e.Node, e.Attribute, e.Key, suggest.Hint(e.Suggestion),
	)
}
