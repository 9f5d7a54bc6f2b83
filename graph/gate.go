package graph

import (
	"github.com/pkg/errors"
)

// Status is the status of a readiness gate.
type Status int

// Gate statuses. A new gate is pending.
const (
	Pending Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ParseStatus parses the string form of a status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return Pending, nil
	case "ready":
		return Ready, nil
	case "failed":
		return Failed, nil
	}
	return 0, errors.Errorf("unknown gate status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// A Gate is a readiness predicate attached to a node. Dependents connected
// with a ReadyBefore edge may only start once the gate is ready.
//
// The graph only records the status. Evaluating the predicate is up to
// whoever applies the synthesized output.
type Gate struct {
	Predicate string `json:"predicate" yaml:"predicate"`
	Status    Status `json:"status" yaml:"status"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// AttachGate attaches a pending gate to a node. A node has at most one gate.
func (g *Graph) AttachGate(name, predicate string) error {
	n, err := g.lookup(name)
	if err != nil {
		return errors.Wrap(err, "attach gate")
	}
	if _, ok := g.gates[n.id]; ok {
		return &GateExistsError{Node: name}
	}
	g.gates[n.id] = &Gate{Predicate: predicate, Status: Pending}
	return nil
}

// MarkReady marks the gate of a node as ready.
func (g *Graph) MarkReady(name string) error {
	gate, err := g.gate(name)
	if err != nil {
		return errors.Wrap(err, "mark ready")
	}
	gate.Status = Ready
	gate.Reason = ""
	return nil
}

// MarkFailed marks the gate of a node as failed.
func (g *Graph) MarkFailed(name, reason string) error {
	gate, err := g.gate(name)
	if err != nil {
		return errors.Wrap(err, "mark failed")
	}
	gate.Status = Failed
	gate.Reason = reason
	return nil
}

func (g *Graph) gate(name string) (*Gate, error) {
	n, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	gate, ok := g.gates[n.id]
	if !ok {
		return nil, &NoGateError{Node: name}
	}
	return gate, nil
}

// IsSatisfied returns true if the node is ready. A node without a gate is
// ready once it exists. Returns false for unknown nodes.
func (g *Graph) IsSatisfied(name string) bool {
	n, ok := g.byName[name]
	if !ok {
		return false
	}
	gate, ok := g.gates[n.id]
	return !ok || gate.Status == Ready
}

// Gate returns a copy of the gate attached to a node.
func (g *Graph) Gate(name string) (Gate, bool) {
	n, ok := g.byName[name]
	if !ok {
		return Gate{}, false
	}
	gate, ok := g.gates[n.id]
	if !ok {
		return Gate{}, false
	}
	return *gate, true
}

// Status returns the readiness of a node. Nodes without a gate are ready,
// unknown nodes are pending.
func (g *Graph) Status(name string) Status {
	n, ok := g.byName[name]
	if !ok {
		return Pending
	}
	gate, ok := g.gates[n.id]
	if !ok {
		return Ready
	}
	return gate.Status
}

// A Blocked node cannot start because a gate it waits for, directly or
// through other blocked nodes, is not ready.
type Blocked struct {
	// Node is the blocked node.
	Node string `json:"node" yaml:"node"`

	// Gate is the gated node the block originates from.
	Gate string `json:"gate" yaml:"gate"`

	// Via is the predecessor of Node that blocks it. Via equals Gate when
	// Node waits on the gate directly.
	Via string `json:"via" yaml:"via"`

	// Status and Reason are copied from the gate.
	Status Status `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Blocked returns every blocked node, in topological order.
//
// A node is blocked if it has a ReadyBefore edge from a node whose gate failed
// or, unless deferPending is set, is still pending. Any node that comes after
// a blocked node is blocked too, regardless of the edge qualifier. When
// several predecessors block a node, the first one in insertion order is
// reported.
func (g *Graph) Blocked(deferPending bool) []Blocked {
	var out []Blocked
	blocked := make(map[int64]Blocked)
	for _, n := range g.TopologicalOrder() {
		for _, l := range g.predecessorLines(n) {
			if b, ok := blocked[l.from.id]; ok {
				b.Node = n.Name
				b.Via = l.from.Name
				blocked[n.id] = b
				out = append(out, b)
				break
			}
			if l.q != ReadyBefore {
				continue
			}
			gate, ok := g.gates[l.from.id]
			if !ok || gate.Status == Ready || (gate.Status == Pending && deferPending) {
				continue
			}
			b := Blocked{
				Node:   n.Name,
				Gate:   l.from.Name,
				Via:    l.from.Name,
				Status: gate.Status,
				Reason: gate.Reason,
			}
			blocked[n.id] = b
			out = append(out, b)
			break
		}
	}
	return out
}

// WaitFor returns the gated nodes that name must wait for: every ReadyBefore
// predecessor whose gate is not ready. Returns nil for unknown nodes.
func (g *Graph) WaitFor(name string) []string {
	n, ok := g.byName[name]
	if !ok {
		return nil
	}
	var out []string
	for _, l := range g.predecessorLines(n) {
		if l.q != ReadyBefore {
			continue
		}
		if gate, ok := g.gates[l.from.id]; ok && gate.Status != Ready {
			out = append(out, l.from.Name)
		}
	}
	return out
}
