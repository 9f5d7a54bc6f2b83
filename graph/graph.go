package graph

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/suggest"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// A Graph holds resource nodes, the edges between them and their gates.
//
// The Graph should be created with New(). It is not safe for concurrent use.
type Graph struct {
	dg     *simple.DirectedGraph
	nodes  []*Node
	byName map[string]*Node
	gates  map[int64]*Gate
}

// New creates a new empty graph.
func New() *Graph {
	return &Graph{
		dg:     simple.NewDirectedGraph(),
		byName: make(map[string]*Node),
		gates:  make(map[int64]*Gate),
	}
}

// AddNode adds a new node to the graph.
//
// A *DuplicateNodeError is returned if a node with the same name already
// exists, and an *UnknownKindError if the kind is not known. The attribute map
// is copied.
func (g *Graph) AddNode(name string, kind Kind, attrs map[string]expr.Expression) (*Node, error) {
	if name == "" {
		return nil, errors.New("node name is empty")
	}
	if _, ok := g.byName[name]; ok {
		return nil, &DuplicateNodeError{Name: name}
	}
	if !kind.Valid() {
		return nil, &UnknownKindError{
			Node:       name,
			Kind:       kind,
			Suggestion: suggest.String(string(kind), kindNames()),
		}
	}

	n := &Node{
		id:    int64(len(g.nodes)),
		Name:  name,
		Kind:  kind,
		Attrs: make(map[string]expr.Expression, len(attrs)),
	}
	for k, v := range attrs {
		n.Attrs[k] = v
	}
	g.dg.AddNode(n)
	g.nodes = append(g.nodes, n)
	g.byName[name] = n
	return n, nil
}

// Node returns a node by name. Returns nil if the node does not exist.
func (g *Graph) Node(name string) *Node {
	return g.byName[name]
}

// Nodes returns all nodes in the order they were added.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) lookup(name string) (*Node, error) {
	n, ok := g.byName[name]
	if !ok {
		names := make([]string, len(g.nodes))
		for i, n := range g.nodes {
			names[i] = n.Name
		}
		return nil, &UnknownNodeError{Name: name, Suggestion: suggest.String(name, names)}
	}
	return n, nil
}

// AddEdge adds an edge requiring from to exist (or be ready) before to.
//
// If an edge between the two nodes already exists, the stronger of the two
// qualifiers is kept.
//
// A *CycleError is returned if the edge would create a cycle. In that case, as
// with any other error, the graph is not modified.
func (g *Graph) AddEdge(from, to string, q Qualifier) error {
	if !q.Valid() {
		return errors.Errorf("add edge %s -> %s: invalid qualifier %d", from, to, int(q))
	}
	f, err := g.lookup(from)
	if err != nil {
		return errors.Wrap(err, "add edge")
	}
	t, err := g.lookup(to)
	if err != nil {
		return errors.Wrap(err, "add edge")
	}

	if f == t {
		return &CycleError{From: from, To: to, Path: []string{from, from}}
	}

	if existing, ok := g.dg.Edge(f.id, t.id).(*line); ok {
		if q > existing.q {
			existing.q = q
		}
		return nil
	}

	if topo.PathExistsIn(g.dg, t, f) {
		return &CycleError{From: from, To: to, Path: g.cyclePath(f, t)}
	}

	g.dg.SetEdge(&line{from: f, to: t, q: q})
	return nil
}

// cyclePath returns the cycle that would be closed by adding from -> to. A
// path from to to from must exist.
func (g *Graph) cyclePath(from, to *Node) []string {
	nodes, _ := path.DijkstraFrom(to, g.dg).To(from.ID())
	out := make([]string, 0, len(nodes)+1)
	out = append(out, from.Name)
	for _, n := range nodes {
		out = append(out, n.(*Node).Name)
	}
	return out
}

// Edges returns all edges, ordered by the insertion order of their source and
// then target nodes.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		out = append(out, g.successors(n)...)
	}
	return out
}

// Predecessors returns the edges into the named node, ordered by the
// insertion order of the source nodes. Returns nil if the node does not exist.
func (g *Graph) Predecessors(name string) []Edge {
	n, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.predecessors(n)
}

// Successors returns the edges out of the named node, ordered by the insertion
// order of the target nodes. Returns nil if the node does not exist.
func (g *Graph) Successors(name string) []Edge {
	n, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.successors(n)
}

func (g *Graph) predecessors(n *Node) []Edge { return edges(g.predecessorLines(n)) }
func (g *Graph) successors(n *Node) []Edge   { return edges(g.successorLines(n)) }

// predecessorLines returns the edges into n, sorted by source node.
func (g *Graph) predecessorLines(n *Node) []*line {
	var lines []*line
	it := g.dg.To(n.id)
	for it.Next() {
		lines = append(lines, g.dg.Edge(it.Node().ID(), n.id).(*line))
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].from.id < lines[j].from.id })
	return lines
}

// successorLines returns the edges out of n, sorted by target node.
func (g *Graph) successorLines(n *Node) []*line {
	var lines []*line
	it := g.dg.From(n.id)
	for it.Next() {
		lines = append(lines, g.dg.Edge(n.id, it.Node().ID()).(*line))
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].to.id < lines[j].to.id })
	return lines
}

func edges(lines []*line) []Edge {
	if len(lines) == 0 {
		return nil
	}
	out := make([]Edge, len(lines))
	for i, l := range lines {
		out[i] = l.edge()
	}
	return out
}

// compile-time check that nodes can be stored in gonum graphs.
var _ graph.Node = (*Node)(nil)
