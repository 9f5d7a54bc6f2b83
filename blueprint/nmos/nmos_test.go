package nmos_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stackgraph/stackgraph/blueprint"
	"github.com/stackgraph/stackgraph/blueprint/nmos"
	"github.com/stackgraph/stackgraph/stack"
	"github.com/stackgraph/stackgraph/synth"
)

func parse(t *testing.T, src string) hcl.Body {
	t.Helper()
	f, diags := hclsyntax.ParseConfig([]byte(src), "params.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		t.Fatal(diags)
	}
	return f.Body
}

func TestDecodeParams_defaults(t *testing.T) {
	p, diags := nmos.DecodeParams(nil)
	if diags.HasErrors() {
		t.Fatal(diags)
	}
	if diff := cmp.Diff(p, nmos.Defaults()); diff != "" {
		t.Errorf("DecodeParams() (-got, +want)\n%s", diff)
	}
}

func TestDecodeParams_override(t *testing.T) {
	body := parse(t, `
domain    = "lab.example"
test_port = 5000
`)
	got, diags := nmos.DecodeParams(body)
	if diags.HasErrors() {
		t.Fatal(diags)
	}
	want := nmos.Defaults()
	want.Domain = "lab.example"
	want.TestPort = 5000
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("DecodeParams() (-got, +want)\n%s", diff)
	}
}

func TestDecodeParams_invalid(t *testing.T) {
	tests := []struct {
		name, src, summary string
	}{
		{"Port", `node_port = 70000`, "Invalid NodePort"},
		{"Domain", `domain = "not a domain"`, "Invalid Domain"},
		{"Unknown", `colour = "blue"`, "Unsupported argument"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, diags := nmos.DecodeParams(parse(t, tc.src))
			if !diags.HasErrors() {
				t.Fatal("DecodeParams() did not return errors")
			}
			if got := diags[0].Summary; got != tc.summary {
				t.Errorf("Summary = %q, want %q", got, tc.summary)
			}
		})
	}
}

func build(t *testing.T) *stack.Stack {
	t.Helper()
	b := stack.NewBuilder("nmos")
	nmos.Build(b, nmos.Defaults())
	s, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish() err = %v", err)
	}
	return s
}

func TestBuild_units(t *testing.T) {
	s := build(t)

	var names []string
	after := make(map[string][]string)
	for _, u := range s.Units {
		names = append(names, u.Name)
		after[u.Name] = u.After
	}
	if diff := cmp.Diff(names, []string{"base", "appconfig", "containers"}); diff != "" {
		t.Errorf("Units (-got, +want)\n%s", diff)
	}
	if diff := cmp.Diff(after["containers"], []string{"base", "appconfig"}); diff != "" {
		t.Errorf("containers after (-got, +want)\n%s", diff)
	}
	if got, want := s.Env.Len(), 12; got != want {
		t.Errorf("Env.Len() = %d, want %d", got, want)
	}
	if got, _ := s.Env.Lookup("EASY_NMOS_NODE_CONFIG"); got != "easy-nmos-node-config" {
		t.Errorf("EASY_NMOS_NODE_CONFIG = %q", got)
	}
}

func TestBuild_blocked(t *testing.T) {
	s := build(t)

	_, err := s.Synthesize()
	var berr *synth.BlockedNodeError
	if !errors.As(err, &berr) {
		t.Fatalf("Synthesize() err = %v, want BlockedNodeError", err)
	}
	blocked := make(map[string]bool)
	for _, n := range berr.Nodes() {
		blocked[n] = true
	}
	for _, n := range []string{
		"nmos-registry-appconfig-deployment",
		"nmos-node-appconfig-deployment",
		"sidecar-log-group",
		"testingContainer",
		"registryService",
		"nodeSidecarTarget",
	} {
		if !blocked[n] {
			t.Errorf("%s is not blocked", n)
		}
	}
	for _, n := range []string{"nmos-test-vpc", "nmos-test-appconfig-deployment", "nmos-test-config-profile-version"} {
		if blocked[n] {
			t.Errorf("%s is blocked", n)
		}
	}
}

func TestBuild_failedSidecar(t *testing.T) {
	s := build(t)
	for _, n := range []string{
		"nmos-test-appconfig-deployment",
		"nmos-registry-appconfig-deployment",
		"nmos-node-appconfig-deployment",
		"registrySidecarContainer",
		"nodeSidecarContainer",
	} {
		if err := s.Graph.MarkReady(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Graph.MarkFailed("sidecarContainer", "health check timed out"); err != nil {
		t.Fatal(err)
	}

	_, err := s.Synthesize(synth.DeferGates())
	var berr *synth.BlockedNodeError
	if !errors.As(err, &berr) {
		t.Fatalf("Synthesize() err = %v, want BlockedNodeError", err)
	}
	want := []string{"testingContainer", "testingService", "testingTarget", "sidecarTarget"}
	if diff := cmp.Diff(berr.Nodes(), want); diff != "" {
		t.Errorf("Nodes() (-got, +want)\n%s", diff)
	}
}

func TestBuild_synthesize(t *testing.T) {
	s := build(t)

	doc, err := s.Synthesize(synth.DeferGates())
	if err != nil {
		t.Fatalf("Synthesize() err = %v", err)
	}
	if got, want := len(doc.Resources), 52; got != want {
		t.Errorf("len(Resources) = %d, want %d", got, want)
	}

	pos := make(map[string]int)
	for i, name := range doc.Order() {
		pos[name] = i
	}
	before := [][2]string{
		{"nmos-test-vpc", "nmos-test-cluster"},
		{"nmos-test-appconfig-deployment", "nmos-registry-appconfig-deployment"},
		{"nmos-registry-appconfig-deployment", "nmos-node-appconfig-deployment"},
		{"nmos-node-appconfig-deployment", "testingTaskDefinition"},
		{"nmos-test-namespace", "nmos-testing"},
		{"sidecarContainer", "testingContainer"},
		{"registryContainer", "registryService"},
		{"nodeSidecarContainer", "nodeSidecarTarget"},
	}
	for _, b := range before {
		if pos[b[0]] >= pos[b[1]] {
			t.Errorf("%s is not ordered before %s", b[0], b[1])
		}
	}

	node, ok := doc.Resource("nodeContainer")
	if !ok {
		t.Fatal("nodeContainer not found")
	}
	if diff := cmp.Diff(node.WaitFor, []string{"nodeSidecarContainer"}); diff != "" {
		t.Errorf("WaitFor (-got, +want)\n%s", diff)
	}
	var env map[string]string
	if err := json.Unmarshal(node.Attributes["environment"], &env); err != nil {
		t.Fatal(err)
	}
	for k, v := range map[string]string{
		"SIDECAR_ACTION":        "node-config",
		"RUN_NODE":              "TRUE",
		"NMOS_TEST_APPLICATION": "nmos-test",
		"EASY_NMOS_CONFIG":      "easy-nmos-config",
	} {
		if env[k] != v {
			t.Errorf("environment[%s] = %q, want %q", k, env[k], v)
		}
	}

	version, _ := doc.Resource("nmos-test-config-profile-version")
	var content string
	if err := json.Unmarshal(version.Attributes["content"], &content); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, `CONFIG.PORT_BASE = 4000`) {
		t.Errorf("content does not set the port base:\n%s", content)
	}

	target, _ := doc.Resource("testingTarget")
	if got := string(target.Attributes["container_name"]); got != `"testingContainer"` {
		t.Errorf("container_name = %s", got)
	}
}

func TestBlueprint_registry(t *testing.T) {
	reg := blueprint.FromBlueprints(nmos.Blueprint{})
	bp, err := reg.Get("nmos-testing")
	if err != nil {
		t.Fatal(err)
	}
	b := stack.NewBuilder("nmos")
	if diags := bp.Build(b, parse(t, `domain = "nmos.lab"`)); diags.HasErrors() {
		t.Fatal(diags)
	}
	s, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	ns := s.Graph.Node("nmos-test-namespace")
	if ns == nil {
		t.Fatal("namespace not found")
	}
	if got := ns.Attrs["name"].Text(); got != `"nmos.lab"` {
		t.Errorf("namespace name = %s", got)
	}
}
