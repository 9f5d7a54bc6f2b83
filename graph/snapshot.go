package graph

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/expr"
)

// A Snap is a snapshot of the contents of a graph.
//
// Snapshots can be used for building graphs in tests, or asserting the state
// of them. Attributes are stored in expression syntax.
type Snap struct {
	Nodes []SnapNode      `json:"nodes" yaml:"nodes"`
	Edges []Edge          `json:"edges,omitempty" yaml:"edges,omitempty"`
	Gates map[string]Gate `json:"gates,omitempty" yaml:"gates,omitempty"`
}

// A SnapNode is a node in a snapshot.
type SnapNode struct {
	Name  string            `json:"name" yaml:"name"`
	Kind  Kind              `json:"kind" yaml:"kind"`
	Unit  string            `json:"unit,omitempty" yaml:"unit,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Snapshot takes a snapshot of the graph.
func (g *Graph) Snapshot() Snap {
	var s Snap
	for _, n := range g.nodes {
		sn := SnapNode{Name: n.Name, Kind: n.Kind, Unit: n.Unit}
		if len(n.Attrs) > 0 {
			sn.Attrs = make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				sn.Attrs[k] = v.Text()
			}
		}
		s.Nodes = append(s.Nodes, sn)
	}
	s.Edges = g.Edges()
	for id, gate := range g.gates {
		if s.Gates == nil {
			s.Gates = make(map[string]Gate)
		}
		s.Gates[g.nodes[id].Name] = *gate
	}
	return s
}

// FromSnapshot creates a new graph from a snapshot. Nodes are added in the
// order they appear in the snapshot.
func FromSnapshot(s Snap) (*Graph, error) {
	g := New()
	for _, sn := range s.Nodes {
		attrs := make(map[string]expr.Expression, len(sn.Attrs))
		for k, src := range sn.Attrs {
			e, err := expr.Parse(src)
			if err != nil {
				return nil, errors.Wrapf(err, "node %s: attribute %s", sn.Name, k)
			}
			attrs[k] = e
		}
		n, err := g.AddNode(sn.Name, sn.Kind, attrs)
		if err != nil {
			return nil, err
		}
		n.Unit = sn.Unit
	}
	for _, e := range s.Edges {
		if err := g.AddEdge(e.From, e.To, e.Qualifier); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(s.Gates))
	for name := range s.Gates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		gate := s.Gates[name]
		if err := g.AttachGate(name, gate.Predicate); err != nil {
			return nil, err
		}
		stored := g.gates[g.byName[name].id]
		stored.Status = gate.Status
		stored.Reason = gate.Reason
	}
	return g, nil
}

// Diff returns a human readable diff between two snapshots. Returns an empty
// string if the snapshots are equal.
func (s Snap) Diff(other Snap) string {
	return cmp.Diff(s, other, cmpopts.EquateEmpty())
}
