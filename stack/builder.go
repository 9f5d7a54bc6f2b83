// Package stack builds a dependency graph from deployment units.
//
// A Builder records nodes, edges, gates and configuration in a single
// sequential pass. Errors are collected along the way and returned together
// from Finish, so a stack description with several mistakes reports all of
// them at once.
//
//	b := stack.NewBuilder("demo")
//	base := b.Unit("base")
//	vpc := base.Add("vpc", graph.KindNetwork, nil)
//	base.Env("BASE_").Set("DOMAIN", "example")
//
//	svc := b.Unit("services")
//	svc.After(base)
//	api := svc.Add("api", graph.KindService, map[string]expr.Expression{
//		"domain": expr.MustParse("env.BASE_DOMAIN"),
//	})
//	b.DependsOn(api, vpc)
//
//	s, err := b.Finish()
package stack

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/envmap"
	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/graph"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// A Builder constructs a Stack.
//
// A Builder is not safe for concurrent use. It must not be used after Finish.
type Builder struct {
	name   string
	logger *zap.Logger

	g          *graph.Graph
	units      []*Unit
	byName     map[string]*Unit
	namespaces []*envmap.Namespace
	errs       error
	finished   bool
}

// An Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used during construction.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates a new builder for a stack.
func NewBuilder(name string, opts ...Option) *Builder {
	b := &Builder{
		name:   name,
		logger: zap.NewNop(),
		g:      graph.New(),
		byName: make(map[string]*Unit),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("stack", name))
	return b
}

func (b *Builder) fail(err error) {
	b.errs = multierr.Append(b.errs, err)
}

// Unit returns the deployment unit with the given name, creating it if it
// does not exist yet.
func (b *Builder) Unit(name string) *Unit {
	if u, ok := b.byName[name]; ok {
		return u
	}
	u := &Unit{name: name, b: b, env: make(map[string]*envmap.Namespace)}
	b.units = append(b.units, u)
	b.byName[name] = u
	b.logger.Debug("Add unit", zap.String("unit", name))
	return u
}

// UnitNames returns the names of all units, in the order they were created.
func (b *Builder) UnitNames() []string {
	out := make([]string, len(b.units))
	for i, u := range b.units {
		out[i] = u.name
	}
	return out
}

// Env returns a namespace owned by the stack itself rather than a unit. It is
// used for values that are shared by every unit, such as blueprint
// parameters.
func (b *Builder) Env(owner, prefix string) *envmap.Namespace {
	ns := envmap.NewNamespace(owner, prefix)
	b.namespaces = append(b.namespaces, ns)
	return ns
}

// DependsOn records that node requires each of deps to exist before it is
// created.
func (b *Builder) DependsOn(node string, deps ...string) {
	for _, dep := range deps {
		if err := b.g.AddEdge(dep, node, graph.ExistsBefore); err != nil {
			b.fail(errors.Wrapf(err, "%s depends on %s", node, dep))
		}
	}
}

// ReadyAfter records that node must not start until each of deps is ready.
func (b *Builder) ReadyAfter(node string, deps ...string) {
	for _, dep := range deps {
		if err := b.g.AddEdge(dep, node, graph.ReadyBefore); err != nil {
			b.fail(errors.Wrapf(err, "%s ready after %s", node, dep))
		}
	}
}

// Gate attaches a readiness gate to a node.
func (b *Builder) Gate(node, predicate string) {
	if err := b.g.AttachGate(node, predicate); err != nil {
		b.fail(err)
	}
}

// Finish completes construction.
//
// Unit namespaces are merged, edges are added for node references in
// attributes and unit ordering is expanded to edges. The configuration is
// frozen into the stack's snapshot. All errors recorded during construction
// are returned together, combined with multierr. On error, the stack is nil.
func (b *Builder) Finish() (*Stack, error) {
	if b.finished {
		return nil, errors.New("stack already finished")
	}
	b.finished = true

	env, err := envmap.Merge(b.allNamespaces()...)
	if err != nil {
		b.fail(err)
	}
	b.addReferenceEdges()
	b.addUnitEdges()

	if b.errs != nil {
		b.logger.Debug("Construction failed", zap.Int("errors", len(multierr.Errors(b.errs))))
		return nil, b.errs
	}

	s := &Stack{
		Name:  b.name,
		Graph: b.g,
		Env:   env.Snapshot(),
	}
	for _, u := range b.units {
		info := UnitInfo{Name: u.name, Nodes: u.Nodes()}
		for _, a := range u.after {
			info.After = append(info.After, a.name)
		}
		s.Units = append(s.Units, info)
	}
	b.logger.Debug("Finished",
		zap.Int("nodes", b.g.Len()),
		zap.Int("edges", len(b.g.Edges())),
		zap.Int("env", s.Env.Len()),
	)
	return s, nil
}

// allNamespaces returns the stack namespaces followed by the unit namespaces
// in unit order.
func (b *Builder) allNamespaces() []*envmap.Namespace {
	out := append([]*envmap.Namespace(nil), b.namespaces...)
	for _, u := range b.units {
		out = append(out, u.namespaces...)
	}
	return out
}

// addReferenceEdges adds an ExistsBefore edge for each node.<name> reference
// in an attribute.
func (b *Builder) addReferenceEdges() {
	for _, n := range b.g.Nodes() {
		attrs := make([]string, 0, len(n.Attrs))
		for k := range n.Attrs {
			attrs = append(attrs, k)
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			for _, ref := range n.Attrs[attr].Nodes() {
				if err := b.g.AddEdge(ref, n.Name, graph.ExistsBefore); err != nil {
					b.fail(errors.Wrapf(err, "%s.%s references %s", n.Name, attr, ref))
				}
			}
		}
	}
}

// addUnitEdges expands unit ordering: every node of a prerequisite unit must
// be ready before the root nodes of the dependent unit. Root nodes are the
// nodes without predecessors in their own unit.
func (b *Builder) addUnitEdges() {
	roots := make(map[*Unit][]string, len(b.units))
	for _, u := range b.units {
		roots[u] = b.roots(u)
	}
	for _, u := range b.units {
		for _, a := range u.after {
			if len(a.nodes) == 0 {
				b.fail(errors.Errorf("unit %s runs after %s, which has no nodes", u.name, a.name))
				continue
			}
		pair:
			for _, from := range a.nodes {
				for _, to := range roots[u] {
					if err := b.g.AddEdge(from, to, graph.ReadyBefore); err != nil {
						b.fail(errors.Wrapf(err, "unit %s after %s", u.name, a.name))
						break pair
					}
				}
			}
		}
	}
}

func (b *Builder) roots(u *Unit) []string {
	var out []string
	for _, name := range u.nodes {
		root := true
		for _, e := range b.g.Predecessors(name) {
			if b.g.Node(e.From).Unit == u.name {
				root = false
				break
			}
		}
		if root {
			out = append(out, name)
		}
	}
	return out
}

// A Unit is a deployment unit: a group of nodes that is created and made
// ready together.
type Unit struct {
	name       string
	b          *Builder
	nodes      []string
	after      []*Unit
	env        map[string]*envmap.Namespace
	namespaces []*envmap.Namespace
}

// Name returns the unit name.
func (u *Unit) Name() string { return u.name }

// Nodes returns the names of the nodes in the unit, in the order they were
// added.
func (u *Unit) Nodes() []string {
	out := make([]string, len(u.nodes))
	copy(out, u.nodes)
	return out
}

// Add adds a node to the unit and returns its name. Errors are recorded in
// the builder.
func (u *Unit) Add(name string, kind graph.Kind, attrs map[string]expr.Expression) string {
	n, err := u.b.g.AddNode(name, kind, attrs)
	if err != nil {
		u.b.fail(errors.Wrapf(err, "unit %s", u.name))
		return name
	}
	n.Unit = u.name
	u.nodes = append(u.nodes, name)
	u.b.logger.Debug("Add node",
		zap.String("unit", u.name),
		zap.String("name", name),
		zap.String("kind", string(kind)),
	)
	return name
}

// Env returns the unit's configuration namespace for a key prefix. Calling
// Env again with the same prefix returns the same namespace.
func (u *Unit) Env(prefix string) *envmap.Namespace {
	if ns, ok := u.env[prefix]; ok {
		return ns
	}
	owner := u.name
	if prefix != "" {
		owner = fmt.Sprintf("%s (%s*)", u.name, prefix)
	}
	ns := envmap.NewNamespace(owner, prefix)
	u.env[prefix] = ns
	u.namespaces = append(u.namespaces, ns)
	return ns
}

// After declares that the unit starts after every node of the given units is
// ready.
func (u *Unit) After(units ...*Unit) {
	for _, a := range units {
		if a == u {
			u.b.fail(errors.Errorf("unit %s cannot run after itself", u.name))
			continue
		}
		u.after = append(u.after, a)
	}
}
