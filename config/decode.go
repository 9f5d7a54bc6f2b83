package config

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/stackgraph/stackgraph/blueprint"
	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/stack"
	"github.com/stackgraph/stackgraph/suggest"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"go.uber.org/multierr"
)

// Decode decodes a body returned from Load into a stack.
//
// Blueprints are added first, in the order they are declared, followed by
// the units. Units may refer to units created by blueprints in their after
// list, and resources may depend on resources created by blueprints.
func (l *Loader) Decode(body hcl.Body, reg *blueprint.Registry, opts ...stack.Option) (*stack.Stack, hcl.Diagnostics) {
	var root Root
	diags := gohcl.DecodeBody(body, nil, &root)
	if diags.HasErrors() {
		return nil, diags
	}

	var name string
	switch len(root.Stacks) {
	case 0:
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing stack block",
			Detail:   `A stack block is required: stack "name" {}.`,
			Subject:  body.MissingItemRange().Ptr(),
		})
	case 1:
		name = root.Stacks[0].Name
	default:
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Duplicate stack block",
			Detail:   fmt.Sprintf("Only one stack block is allowed, got %d.", len(root.Stacks)),
			Subject:  root.Stacks[1].Remain.MissingItemRange().Ptr(),
		})
	}

	b := stack.NewBuilder(name, opts...)

	for _, bp := range root.Blueprints {
		diags = append(diags, Validate(bp, bp.Params.MissingItemRange())...)
		if reg == nil {
			reg = &blueprint.Registry{}
		}
		impl, err := reg.Get(bp.Name)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown blueprint",
				Detail:   err.Error(),
				Subject:  bp.Params.MissingItemRange().Ptr(),
			})
			continue
		}
		diags = append(diags, impl.Build(b, bp.Params)...)
	}

	// Nodes are added before edges, so resources may refer to resources
	// declared later or in other files.
	var added []Resource
	for _, u := range root.Units {
		unit := b.Unit(u.Name)
		diags = append(diags, Validate(u, unitRange(u))...)
		for _, env := range u.Env {
			diags = append(diags, l.decodeEnv(unit, env)...)
		}
		for _, res := range u.Resources {
			dd := l.decodeResource(unit, res)
			diags = append(diags, dd...)
			if !dd.HasErrors() {
				added = append(added, res)
			}
		}
	}
	var gates []Resource
	for _, res := range added {
		b.DependsOn(res.Name, res.DependsOn...)
		b.ReadyAfter(res.Name, res.ReadyAfter...)
		if res.Gate != nil {
			b.Gate(res.Name, res.Gate.Predicate)
			if res.Gate.Status != "" {
				gates = append(gates, res)
			}
		}
	}

	known := make(map[string]bool)
	for _, name := range b.UnitNames() {
		known[name] = true
	}
	for _, u := range root.Units {
		for _, after := range u.After {
			if !known[after] {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unknown unit",
					Detail: fmt.Sprintf(
						"Unit %q runs after %q, which is not declared%s",
						u.Name, after, suggest.Hint(suggest.String(after, b.UnitNames())),
					),
					Subject: unitRange(u).Ptr(),
				})
				continue
			}
			b.Unit(u.Name).After(b.Unit(after))
		}
	}

	if diags.HasErrors() {
		return nil, diags
	}

	s, err := b.Finish()
	if err != nil {
		for _, e := range multierr.Errors(err) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid stack",
				Detail:   e.Error(),
			})
		}
		return nil, diags
	}

	for _, res := range gates {
		var err error
		switch res.Gate.Status {
		case graph.Ready.String():
			err = s.Graph.MarkReady(res.Name)
		case graph.Failed.String():
			err = s.Graph.MarkFailed(res.Name, res.Gate.Reason)
		}
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid gate",
				Detail:   err.Error(),
				Subject:  res.Attributes.MissingItemRange().Ptr(),
			})
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return s, diags
}

func unitRange(u Unit) hcl.Range {
	if len(u.Resources) > 0 {
		return u.Resources[0].Attributes.MissingItemRange()
	}
	if len(u.Env) > 0 {
		return u.Env[0].Body.MissingItemRange()
	}
	return hcl.Range{}
}

// decodeEnv sets the values of an env block in the unit's namespace. Values
// must be constant strings.
func (l *Loader) decodeEnv(unit *stack.Unit, env Env) hcl.Diagnostics {
	diags := Validate(env, env.Body.MissingItemRange())
	attrs, dd := env.Body.JustAttributes()
	diags = append(diags, dd...)
	if dd.HasErrors() {
		return diags
	}

	ns := unit.Env(env.Prefix)
	for _, attr := range sortAttributes(attrs) {
		v, dd := attr.Expr.Value(nil)
		diags = append(diags, dd...)
		if dd.HasErrors() {
			continue
		}
		if v.IsNull() || !v.Type().Equals(cty.String) && !v.Type().Equals(cty.Number) && !v.Type().Equals(cty.Bool) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid configuration value",
				Detail:   fmt.Sprintf("The value of %s%s must be a string, number or bool.", env.Prefix, attr.Name),
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid configuration value",
				Detail:   err.Error(),
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		ns.Set(attr.Name, s.AsString())
	}
	return diags
}

// decodeResource adds the resource to the unit.
func (l *Loader) decodeResource(unit *stack.Unit, res Resource) hcl.Diagnostics {
	rng := res.Attributes.MissingItemRange()
	diags := Validate(res, rng)

	kind := graph.Kind(res.Kind)
	if !kind.Valid() {
		kinds := make([]string, 0, len(graph.Kinds()))
		for _, k := range graph.Kinds() {
			kinds = append(kinds, string(k))
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown resource kind",
			Detail:   fmt.Sprintf("Kind %q is not supported%s", res.Kind, suggest.Hint(suggest.String(res.Kind, kinds))),
			Subject:  rng.Ptr(),
		})
	}

	attrs, dd := res.Attributes.JustAttributes()
	diags = append(diags, dd...)
	if diags.HasErrors() {
		return diags
	}

	exprs := make(map[string]expr.Expression, len(attrs))
	for name, attr := range attrs {
		e, dd := expr.FromHCL(attr.Expr)
		diags = append(diags, dd...)
		if dd.HasErrors() {
			continue
		}
		exprs[name] = e.WithSource(l.source(attr.Expr.Range()))
	}
	if diags.HasErrors() {
		return diags
	}

	unit.Add(res.Name, kind, exprs)
	return diags
}

// sortAttributes returns attributes in source order.
func sortAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Range, out[j].Range
		if ri.Filename != rj.Filename {
			return ri.Filename < rj.Filename
		}
		return ri.Start.Byte < rj.Start.Byte
	})
	return out
}
