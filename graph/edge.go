package graph

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
)

// A Qualifier sets the strength of an edge.
type Qualifier int

// Edge qualifiers. ReadyBefore is stronger than ExistsBefore.
const (
	ExistsBefore Qualifier = iota + 1
	ReadyBefore
)

func (q Qualifier) String() string {
	switch q {
	case ExistsBefore:
		return "exists-before"
	case ReadyBefore:
		return "ready-before"
	}
	return fmt.Sprintf("Qualifier(%d)", int(q))
}

// Valid returns true for the known qualifiers.
func (q Qualifier) Valid() bool { return q == ExistsBefore || q == ReadyBefore }

// ParseQualifier parses the string form of a qualifier.
func ParseQualifier(s string) (Qualifier, error) {
	switch s {
	case "exists-before":
		return ExistsBefore, nil
	case "ready-before":
		return ReadyBefore, nil
	}
	return 0, errors.Errorf("unknown qualifier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (q Qualifier) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, errors.Errorf("invalid qualifier %d", int(q))
	}
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Qualifier) UnmarshalText(b []byte) error {
	v, err := ParseQualifier(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// An Edge is an ordering constraint: From must exist (or be ready) before To.
type Edge struct {
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	Qualifier Qualifier `json:"qualifier" yaml:"qualifier"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", e.From, e.Qualifier, e.To)
}

// line is the edge stored in the underlying gonum graph.
type line struct {
	from, to *Node
	q        Qualifier
}

func (l *line) From() graph.Node { return l.from }
func (l *line) To() graph.Node   { return l.to }

func (l *line) ReversedEdge() graph.Edge {
	return &line{from: l.to, to: l.from, q: l.q}
}

// Attributes returns attributes for the edge when the graph is marshalled to
// graphviz dot format.
func (l *line) Attributes() []encoding.Attribute {
	if l.q == ExistsBefore {
		return []encoding.Attribute{{Key: "style", Value: "dashed"}}
	}
	return nil
}

func (l *line) edge() Edge {
	return Edge{From: l.from.Name, To: l.to.Name, Qualifier: l.q}
}
