// Package expr implements the attribute expressions of resource nodes.
//
// Expressions use HCL native syntax. Besides literals, an expression may
// reference the shared configuration and other nodes in the graph:
//
//	env.NMOS_TEST_APPLICATION      a single configuration key
//	env["EASY_NMOS_CONFIG"]        the same, with index syntax
//	env                            every configuration key, as an object
//	node.app.name                  the name of node "app"
//
// A small set of functions is available (merge, upper, lower, format, join,
// concat, jsonencode, convert). References are checked when the expression is
// created, so only the two roots above are accepted. The type argument of
// convert, as in convert([], list(string)), is not a reference.
package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Reference roots.
const (
	RootEnv  = "env"
	RootNode = "node"
)

// An Expression describes the value of a single node attribute.
//
// The zero value evaluates to a null value.
type Expression struct {
	expr hcl.Expression
	src  string
	tmpl bool
}

// A Reference is a variable referenced from an expression.
type Reference struct {
	// Root is either RootEnv or RootNode.
	Root string

	// Name is the configuration key or node name. Name is empty for a
	// reference to the whole configuration map.
	Name string

	Range hcl.Range
}

func (r Reference) String() string {
	if r.Name == "" {
		return r.Root
	}
	return r.Root + "." + r.Name
}

// Parse parses an expression from HCL native syntax.
func Parse(src string) (Expression, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), "<expr>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return Expression{}, errors.Wrapf(diags, "parse %q", src)
	}
	out, diags := FromHCL(e)
	if diags.HasErrors() {
		return Expression{}, diags
	}
	out.src = src
	return out, nil
}

// MustParse is like Parse but panics on error. It is intended for expressions
// that are constant in code.
func MustParse(src string) Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Template parses a string template, such as a configuration file body with
// ${...} interpolations.
func Template(src string) (Expression, error) {
	e, diags := hclsyntax.ParseTemplate([]byte(src), "<template>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return Expression{}, errors.Wrap(diags, "parse template")
	}
	out, diags := FromHCL(e)
	if diags.HasErrors() {
		return Expression{}, diags
	}
	out.src = src
	out.tmpl = true
	return out, nil
}

// MustTemplate is like Template but panics on error.
func MustTemplate(src string) Expression {
	e, err := Template(src)
	if err != nil {
		panic(err)
	}
	return e
}

// FromHCL wraps an already parsed HCL expression. The referenced variables
// are validated.
func FromHCL(e hcl.Expression) (Expression, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	for _, t := range variables(e) {
		_, dd := traversalRef(t)
		diags = append(diags, dd...)
	}
	if diags.HasErrors() {
		return Expression{}, diags
	}
	return Expression{expr: e}, nil
}

// Literal returns an expression for a static value.
func Literal(v cty.Value) Expression {
	return Expression{expr: &hclsyntax.LiteralValueExpr{Val: v}}
}

// String returns a literal string expression.
func String(s string) Expression { return Literal(cty.StringVal(s)) }

// Number returns a literal number expression.
func Number(n int64) Expression { return Literal(cty.NumberIntVal(n)) }

// Bool returns a literal bool expression.
func Bool(b bool) Expression { return Literal(cty.BoolVal(b)) }

// Strings returns a literal list of strings.
func Strings(ss ...string) Expression {
	if len(ss) == 0 {
		return Literal(cty.ListValEmpty(cty.String))
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return Literal(cty.ListVal(vals))
}

// Source returns the source the expression was parsed from. Literals and
// expressions created with FromHCL return an empty string.
func (e Expression) Source() string { return e.src }

// WithSource returns a copy of the expression that reports src as its
// source. It is used for expressions created with FromHCL, where the source
// file is known to the caller.
func (e Expression) WithSource(src string) Expression {
	e.src = src
	e.tmpl = false
	return e
}

// Text returns the expression in a form accepted by Parse. Returns an empty
// string if the expression has no known source.
func (e Expression) Text() string {
	switch {
	case e.tmpl:
		return quoteTemplate(e.src)
	case e.src != "":
		return e.src
	}
	if lit, ok := e.expr.(*hclsyntax.LiteralValueExpr); ok {
		return literalText(lit.Val)
	}
	return ""
}

// literalText writes a value as HCL. Collection literals would parse back as
// tuples and objects, so lists, sets and maps are wrapped in a conversion to
// their type.
func literalText(v cty.Value) string {
	text := string(hclwrite.TokensForValue(v).Bytes())
	ty := v.Type()
	if ty.IsListType() || ty.IsSetType() || ty.IsMapType() {
		return fmt.Sprintf("convert(%s, %s)", text, typeexpr.TypeString(ty))
	}
	return text
}

var templateEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// quoteTemplate turns a bare template into a quoted template expression.
// Interpolation sequences are kept.
func quoteTemplate(src string) string {
	return `"` + templateEscaper.Replace(src) + `"`
}

// Range returns the source range of the expression.
func (e Expression) Range() hcl.Range {
	if e.expr == nil {
		return hcl.Range{}
	}
	return e.expr.Range()
}

// References returns all references in the expression, in source order.
func (e Expression) References() []Reference {
	if e.expr == nil {
		return nil
	}
	vars := variables(e.expr)
	refs := make([]Reference, 0, len(vars))
	for _, t := range vars {
		// Validated when the expression was created.
		r, _ := traversalRef(t)
		refs = append(refs, r)
	}
	return refs
}

// EnvKeys returns the configuration keys referenced by name. A reference to
// the whole configuration map is not included. The result is sorted and
// contains no duplicates.
func (e Expression) EnvKeys() []string { return e.names(RootEnv) }

// Nodes returns the names of referenced nodes, sorted and without duplicates.
func (e Expression) Nodes() []string { return e.names(RootNode) }

func (e Expression) names(root string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range e.References() {
		if r.Root != root || r.Name == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r.Name)
	}
	sort.Strings(out)
	return out
}

// A NodeInfo describes a node that can be referenced with node.<name>.
type NodeInfo struct {
	Name string
	Kind string
	Unit string
}

// An EvalContext provides the values for evaluating an expression.
type EvalContext struct {
	// Env contains the configuration keys. Keys are exposed as attributes of
	// the env object.
	Env map[string]string

	// Nodes contains the nodes that may be referenced.
	Nodes map[string]NodeInfo
}

// Functions returns the functions available to expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"concat":     stdlib.ConcatFunc,
		"convert":    typeexpr.ConvertFunc,
		"format":     stdlib.FormatFunc,
		"join":       stdlib.JoinFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"lower":      stdlib.LowerFunc,
		"merge":      stdlib.MergeFunc,
		"upper":      stdlib.UpperFunc,
	}
}

// Value evaluates the expression.
//
// A nil ctx is equivalent to an empty EvalContext, meaning only expressions
// without references can be evaluated.
func (e Expression) Value(ctx *EvalContext) (cty.Value, error) {
	if e.expr == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	if ctx == nil {
		ctx = &EvalContext{}
	}

	env := make(map[string]cty.Value, len(ctx.Env))
	for k, v := range ctx.Env {
		env[k] = cty.StringVal(v)
	}
	nodes := make(map[string]cty.Value, len(ctx.Nodes))
	for name, n := range ctx.Nodes {
		nodes[name] = cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal(n.Name),
			"kind": cty.StringVal(n.Kind),
			"unit": cty.StringVal(n.Unit),
		})
	}

	hctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			RootEnv:  objectVal(env),
			RootNode: objectVal(nodes),
		},
		Functions: Functions(),
	}
	v, diags := e.expr.Value(hctx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return v, nil
}

func objectVal(m map[string]cty.Value) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(m)
}

// variables returns the traversals in e, leaving out type constraints passed
// to convert.
func variables(e hcl.Expression) []hcl.Traversal {
	vars := e.Variables()
	node, ok := e.(hclsyntax.Node)
	if !ok {
		return vars
	}
	var types []hcl.Range
	hclsyntax.VisitAll(node, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok && call.Name == "convert" && len(call.Args) == 2 {
			types = append(types, call.Args[1].Range())
		}
		return nil
	})
	if len(types) == 0 {
		return vars
	}
	out := vars[:0:0]
	for _, t := range vars {
		if !inRanges(t.SourceRange(), types) {
			out = append(out, t)
		}
	}
	return out
}

func inRanges(r hcl.Range, rngs []hcl.Range) bool {
	for _, rng := range rngs {
		if r.Filename == rng.Filename && rng.ContainsOffset(r.Start.Byte) {
			return true
		}
	}
	return false
}

// traversalRef converts a variable traversal to a reference.
func traversalRef(t hcl.Traversal) (Reference, hcl.Diagnostics) {
	root := t.RootName()
	ref := Reference{Root: root, Range: t.SourceRange()}

	switch root {
	case RootEnv, RootNode:
	default:
		return ref, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown reference",
			Detail:   fmt.Sprintf("References must start with %q or %q, got %q.", RootEnv, RootNode, root),
			Subject:  t.SourceRange().Ptr(),
		}}
	}

	if len(t) < 2 {
		if root == RootNode {
			return ref, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid node reference",
				Detail:   "A node reference must name the node: node.<name>.",
				Subject:  t.SourceRange().Ptr(),
			}}
		}
		// Whole env object.
		return ref, nil
	}

	switch step := t[1].(type) {
	case hcl.TraverseAttr:
		ref.Name = step.Name
	case hcl.TraverseIndex:
		if step.Key.Type() != cty.String || !step.Key.IsKnown() || step.Key.IsNull() {
			return ref, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid reference key",
				Detail:   "The key must be a string.",
				Subject:  step.SrcRange.Ptr(),
			}}
		}
		ref.Name = step.Key.AsString()
	default:
		return ref, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid reference",
			Subject:  t.SourceRange().Ptr(),
		}}
	}
	return ref, nil
}
