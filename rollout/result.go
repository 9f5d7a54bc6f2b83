package rollout

import (
	"fmt"
	"strings"

	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/synth"
	"go.uber.org/multierr"
)

// An Outcome is the result of rolling out a single resource.
type Outcome int

// Outcomes.
const (
	// Ready means the resource was provisioned and its gate, if any, is
	// ready.
	Ready Outcome = iota

	// GateFailed means the resource was provisioned but its gate did not
	// become ready.
	GateFailed

	// ProvisionFailed means the resource could not be provisioned.
	ProvisionFailed

	// Blocked means the resource was not provisioned because a dependency
	// was not satisfied.
	Blocked
)

var outcomeNames = [...]string{"ready", "gate-failed", "provision-failed", "blocked"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Exists reports whether the resource was provisioned.
func (o Outcome) Exists() bool {
	return o == Ready || o == GateFailed
}

// A NodeResult is the outcome for a single resource.
type NodeResult struct {
	Name    string
	Outcome Outcome

	// Via is the dependency that blocked the resource.
	Via string

	Reason string
}

// A Result is the outcome of a rollout.
type Result struct {
	JobID string
	Stack string

	// Nodes are in document order.
	Nodes []NodeResult
}

// Node returns the result for a resource.
func (r *Result) Node(name string) (NodeResult, bool) {
	for _, n := range r.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeResult{}, false
}

// Count returns the number of resources with the given outcome.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, nr := range r.Nodes {
		if nr.Outcome == o {
			n++
		}
	}
	return n
}

// Complete reports whether every resource is ready.
func (r *Result) Complete() bool {
	return r.Count(Ready) == len(r.Nodes)
}

func (r *Result) String() string {
	parts := make([]string, 0, 4)
	for o := Ready; o <= Blocked; o++ {
		if n := r.Count(o); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, ", ")
}

// Apply records gate outcomes on a graph. Gates of ready resources are marked
// ready and gates that did not become ready are marked failed. Resources that
// were not provisioned, or that have no gate in g, are left unchanged.
func (r *Result) Apply(g *graph.Graph) error {
	var errs error
	for _, n := range r.Nodes {
		if _, ok := g.Gate(n.Name); !ok {
			continue
		}
		switch n.Outcome {
		case Ready:
			errs = multierr.Append(errs, g.MarkReady(n.Name))
		case GateFailed:
			errs = multierr.Append(errs, g.MarkFailed(n.Name, n.Reason))
		}
	}
	return errs
}

// Record returns a copy of doc with the gate outcomes of the run. Ready gates
// are removed from the WaitFor lists of their dependents and the digest is
// recomputed. Resources that were blocked or not provisioned keep their gate.
func (r *Result) Record(doc *synth.Document) (*synth.Document, error) {
	ready := make(map[string]bool)
	out := *doc
	out.Resources = make([]synth.Resource, len(doc.Resources))
	for i, res := range doc.Resources {
		if res.Gate != nil {
			gate := *res.Gate
			if n, ok := r.Node(res.Name); ok {
				switch n.Outcome {
				case Ready:
					gate.Status, gate.Reason = graph.Ready, ""
					ready[res.Name] = true
				case GateFailed:
					gate.Status, gate.Reason = graph.Failed, n.Reason
				}
			}
			res.Gate = &gate
		}
		out.Resources[i] = res
	}
	for i := range out.Resources {
		res := &out.Resources[i]
		if len(res.WaitFor) == 0 {
			continue
		}
		var waitFor []string
		for _, name := range res.WaitFor {
			if !ready[name] {
				waitFor = append(waitFor, name)
			}
		}
		res.WaitFor = waitFor
	}
	digest, err := out.ComputeDigest()
	if err != nil {
		return nil, err
	}
	out.Digest = digest
	return &out, nil
}
