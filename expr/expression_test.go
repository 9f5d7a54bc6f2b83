package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stackgraph/stackgraph/expr"
	"github.com/zclconf/go-cty/cty"
)

func TestParse_references(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Literal", `"hello"`, nil},
		{"EnvAttr", `env.NMOS_TEST_ENV`, []string{"env.NMOS_TEST_ENV"}},
		{"EnvIndex", `env["EASY_NMOS_CONFIG"]`, []string{"env.EASY_NMOS_CONFIG"}},
		{"WholeEnv", `merge(env, { SIDECAR_ACTION = "test-config" })`, []string{"env"}},
		{"Node", `node.app.name`, []string{"node.app"}},
		{"Template", `"${env.A}-${node.b.name}"`, []string{"env.A", "node.b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := expr.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() err = %v", err)
			}
			var got []string
			for _, r := range e.References() {
				got = append(got, r.String())
			}
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("References() (-got, +want)\n%s", diff)
			}
		})
	}
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Syntax", `"unterminated`},
		{"UnknownRoot", `var.foo`},
		{"BareNode", `node`},
		{"NumberKey", `env[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := expr.Parse(tt.input); err == nil {
				t.Errorf("Parse(%s) err = nil, want error", tt.input)
			}
		})
	}
}

func TestExpression_EnvKeys(t *testing.T) {
	e := expr.MustParse(`"${env.B}/${env.A}/${env.B}/${node.x.name}"`)
	if diff := cmp.Diff(e.EnvKeys(), []string{"A", "B"}); diff != "" {
		t.Errorf("EnvKeys() (-got, +want)\n%s", diff)
	}
	if diff := cmp.Diff(e.Nodes(), []string{"x"}); diff != "" {
		t.Errorf("Nodes() (-got, +want)\n%s", diff)
	}
}

func TestExpression_Value(t *testing.T) {
	ctx := &expr.EvalContext{
		Env: map[string]string{
			"DOMAIN": "nmos-test",
			"PORT":   "4000",
		},
		Nodes: map[string]expr.NodeInfo{
			"app": {Name: "app", Kind: "config-application", Unit: "appconfig"},
		},
	}

	tests := []struct {
		name string
		expr expr.Expression
		want cty.Value
	}{
		{"Zero", expr.Expression{}, cty.NullVal(cty.DynamicPseudoType)},
		{"String", expr.String("x"), cty.StringVal("x")},
		{"Number", expr.Number(8010), cty.NumberIntVal(8010)},
		{"Bool", expr.Bool(true), cty.True},
		{"Strings", expr.Strings("a", "b"), cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})},
		{"NoStrings", expr.Strings(), cty.ListValEmpty(cty.String)},
		{"Env", expr.MustParse(`env.DOMAIN`), cty.StringVal("nmos-test")},
		{"Node", expr.MustParse(`node.app.kind`), cty.StringVal("config-application")},
		{"Upper", expr.MustParse(`upper(env.DOMAIN)`), cty.StringVal("NMOS-TEST")},
		{
			"Template",
			expr.MustTemplate("CONFIG.DNS_DOMAIN = \"${env.DOMAIN}\"\nCONFIG.PORT_BASE = ${env.PORT}"),
			cty.StringVal("CONFIG.DNS_DOMAIN = \"nmos-test\"\nCONFIG.PORT_BASE = 4000"),
		},
		{
			"Merge",
			expr.MustParse(`merge(env, { SIDECAR_ACTION = "test-config" })`),
			cty.ObjectVal(map[string]cty.Value{
				"DOMAIN":         cty.StringVal("nmos-test"),
				"PORT":           cty.StringVal("4000"),
				"SIDECAR_ACTION": cty.StringVal("test-config"),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.expr.Value(ctx)
			if err != nil {
				t.Fatalf("Value() err = %v", err)
			}
			if !got.RawEquals(tt.want) {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExpression_Value_missing(t *testing.T) {
	e := expr.MustParse(`env.MISSING`)
	if _, err := e.Value(nil); err == nil {
		t.Error("Value() err = nil, want error")
	}
}

func TestExpression_Source(t *testing.T) {
	src := `upper(env.A)`
	if got := expr.MustParse(src).Source(); got != src {
		t.Errorf("Source() = %q, want %q", got, src)
	}
	if got := expr.String("a").Source(); got != "" {
		t.Errorf("literal Source() = %q, want empty", got)
	}
}

func TestExpression_Text(t *testing.T) {
	ctx := &expr.EvalContext{Env: map[string]string{"DOMAIN": "nmos-test"}}
	tests := []struct {
		name string
		expr expr.Expression
	}{
		{"String", expr.String(`say "hi"`)},
		{"Number", expr.Number(8010)},
		{"Strings", expr.Strings("a", "b")},
		{"NoStrings", expr.Strings()},
		{"Set", expr.Literal(cty.SetVal([]cty.Value{cty.StringVal("x"), cty.StringVal("y")}))},
		{"Map", expr.Literal(cty.MapVal(map[string]cty.Value{"RUN_NODE": cty.StringVal("TRUE")}))},
		{"NestedList", expr.Literal(cty.ListVal([]cty.Value{cty.ListVal([]cty.Value{cty.NumberIntVal(1)})}))},
		{"Parsed", expr.MustParse(`upper(env.DOMAIN)`)},
		{"Template", expr.MustTemplate("DOMAIN = \"${env.DOMAIN}\"\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := tt.expr.Text()
			parsed, err := expr.Parse(text)
			if err != nil {
				t.Fatalf("Parse(%q) err = %v", text, err)
			}
			want, err := tt.expr.Value(ctx)
			if err != nil {
				t.Fatal(err)
			}
			got, err := parsed.Value(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equals(want).True() {
				t.Errorf("Text() = %q evaluates to %#v, want %#v", text, got, want)
			}
		})
	}
}
