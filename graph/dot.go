package graph

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// MarshalDOT returns the graph in graphviz dot format. Nodes are labelled with
// their kind and name. ExistsBefore edges are dashed.
func (g *Graph) MarshalDOT(name string) ([]byte, error) {
	b, err := dot.Marshal(g.dg, name, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal dot")
	}
	return b, nil
}
