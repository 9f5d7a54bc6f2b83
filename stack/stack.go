package stack

import (
	"github.com/stackgraph/stackgraph/envmap"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/synth"
)

// A Stack is the result of a construction pass.
type Stack struct {
	Name  string
	Graph *graph.Graph

	// Env is the merged configuration of every unit.
	Env envmap.Snapshot

	Units []UnitInfo
}

// UnitInfo describes a deployment unit of a finished stack.
type UnitInfo struct {
	Name  string
	Nodes []string
	After []string
}

// Synthesize synthesizes the stack. The stack name is set on the document.
func (s *Stack) Synthesize(opts ...synth.Option) (*synth.Document, error) {
	opts = append([]synth.Option{synth.WithStack(s.Name)}, opts...)
	return synth.Synthesize(s.Graph, s.Env, opts...)
}
