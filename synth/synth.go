package synth

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/envmap"
	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/suggest"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// An Option configures synthesis.
type Option func(*options)

type options struct {
	stack        string
	deferPending bool
	logger       *zap.Logger
}

// WithStack sets the stack name of the document.
func WithStack(name string) Option {
	return func(o *options) { o.stack = name }
}

// DeferGates allows pending gates. Instead of blocking its dependents, a
// pending gate is listed in the WaitFor field of each resource that must wait
// for it, leaving the check to whoever applies the document. Failed gates
// still block.
func DeferGates() Option {
	return func(o *options) { o.deferPending = true }
}

// WithLogger sets the logger to use. By default nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Synthesize walks the graph in topological order and returns the output
// document.
//
// A *BlockedNodeError is returned if any node is blocked by a gate. Otherwise,
// if attributes reference configuration keys that are not in env, every
// missing reference is returned as an *UnresolvedReferenceError, combined with
// multierr. Use multierr.Errors to get the individual errors.
func Synthesize(g *graph.Graph, env envmap.Snapshot, opts ...Option) (*Document, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(zap.String("stack", o.stack))

	if blocked := g.Blocked(o.deferPending); len(blocked) > 0 {
		logger.Debug("Blocked nodes", zap.Int("count", len(blocked)))
		return nil, &BlockedNodeError{Blocked: blocked}
	}

	order := g.TopologicalOrder()
	if err := checkReferences(g, order, env); err != nil {
		return nil, err
	}

	ctx := &expr.EvalContext{
		Env:   env.Map(),
		Nodes: make(map[string]expr.NodeInfo, len(order)),
	}
	for _, n := range order {
		ctx.Nodes[n.Name] = expr.NodeInfo{Name: n.Name, Kind: string(n.Kind), Unit: n.Unit}
	}

	doc := &Document{
		Stack:     o.stack,
		Resources: make([]Resource, 0, len(order)),
		Edges:     g.Edges(),
		Config:    env.Pairs(),
	}
	var errs error
	for _, n := range order {
		res, err := resource(g, n, ctx, o.deferPending)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		logger.Debug("Resource",
			zap.String("name", res.Name),
			zap.String("kind", string(res.Kind)),
			zap.Strings("wait_for", res.WaitFor),
		)
		doc.Resources = append(doc.Resources, res)
	}
	if errs != nil {
		return nil, errs
	}

	sum, err := doc.ComputeDigest()
	if err != nil {
		return nil, errors.Wrap(err, "compute digest")
	}
	doc.Digest = sum
	logger.Debug("Synthesized", zap.Int("resources", len(doc.Resources)), zap.String("digest", sum))
	return doc, nil
}

// checkReferences returns an error for every env reference that is missing
// from env and for every node reference to a node that does not exist.
func checkReferences(g *graph.Graph, order []*graph.Node, env envmap.Snapshot) error {
	var errs error
	for _, n := range order {
		for _, name := range sortedAttrs(n) {
			e := n.Attrs[name]
			for _, key := range e.EnvKeys() {
				if _, ok := env.Lookup(key); ok {
					continue
				}
				errs = multierr.Append(errs, &UnresolvedReferenceError{
					Node:       n.Name,
					Attribute:  name,
					Key:        key,
					Suggestion: suggest.String(key, env.Keys()),
				})
			}
			for _, ref := range e.Nodes() {
				if g.Node(ref) != nil {
					continue
				}
				errs = multierr.Append(errs, errors.Errorf(
					"%s.%s: reference to unknown node %q%s",
					n.Name, name, ref, suggest.Hint(suggest.String(ref, nodeNames(order))),
				))
			}
		}
	}
	return errs
}

func resource(g *graph.Graph, n *graph.Node, ctx *expr.EvalContext, deferPending bool) (Resource, error) {
	res := Resource{
		Name: n.Name,
		Kind: n.Kind,
		Unit: n.Unit,
	}

	if len(n.Attrs) > 0 {
		res.Attributes = make(map[string]json.RawMessage, len(n.Attrs))
	}
	for _, name := range sortedAttrs(n) {
		v, err := n.Attrs[name].Value(ctx)
		if err != nil {
			return Resource{}, errors.Wrapf(err, "%s.%s", n.Name, name)
		}
		if v.IsNull() {
			res.Attributes[name] = json.RawMessage("null")
			continue
		}
		b, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return Resource{}, errors.Wrapf(err, "%s.%s: encode", n.Name, name)
		}
		res.Attributes[name] = b
	}

	for _, e := range g.Predecessors(n.Name) {
		switch e.Qualifier {
		case graph.ExistsBefore:
			res.DependsOn = append(res.DependsOn, e.From)
		case graph.ReadyBefore:
			res.ReadyAfter = append(res.ReadyAfter, e.From)
		}
	}

	if gate, ok := g.Gate(n.Name); ok {
		res.Gate = &gate
	}
	if deferPending {
		res.WaitFor = g.WaitFor(n.Name)
	}
	return res, nil
}

func sortedAttrs(n *graph.Node) []string {
	out := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nodeNames(nodes []*graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}
