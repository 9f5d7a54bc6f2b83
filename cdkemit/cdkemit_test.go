package cdkemit_test

import (
	"os/exec"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stackgraph/stackgraph/blueprint/nmos"
	"github.com/stackgraph/stackgraph/cdkemit"
	"github.com/stackgraph/stackgraph/stack"
	"github.com/stackgraph/stackgraph/synth"
)

func nmosDocument(t *testing.T) *synth.Document {
	t.Helper()
	b := stack.NewBuilder("nmos")
	nmos.Build(b, nmos.Defaults())
	s, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := s.Synthesize(synth.DeferGates())
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestLogicalID(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"nmos-test-vpc", "NmosTestVpc"},
		{"testingContainer", "TestingContainer"},
		{"AccessPolicy", "AccessPolicy"},
		{"cluster-asg-capacity-provider", "ClusterAsgCapacityProvider"},
		{"a.b", "AB"},
	}
	for _, tc := range tests {
		if got := cdkemit.LogicalID(tc.name); got != tc.want {
			t.Errorf("LogicalID(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPlan(t *testing.T) {
	doc := nmosDocument(t)

	tmpl, err := cdkemit.Plan(doc)
	if err != nil {
		t.Fatalf("Plan() err = %v", err)
	}
	if got, want := len(tmpl.Resources), 41; got != want {
		t.Errorf("len(Resources) = %d, want %d", got, want)
	}
	if got, want := len(tmpl.Embedded), 11; got != want {
		t.Errorf("len(Embedded) = %d, want %d", got, want)
	}
	if got := tmpl.Embedded["nodeSidecarContainer"]; got != "nodeDefinition" {
		t.Errorf("nodeSidecarContainer embedded in %q", got)
	}

	byName := make(map[string]*cdkemit.Resource)
	for _, r := range tmpl.Resources {
		byName[r.Name] = r
	}

	vpc := byName["nmos-test-vpc"]
	if vpc.Type != "AWS::EC2::VPC" || vpc.LogicalID != "NmosTestVpc" {
		t.Errorf("vpc = %s %s", vpc.LogicalID, vpc.Type)
	}
	if diff := cmp.Diff(vpc.Properties, map[string]interface{}{"MaxAzs": float64(2)}); diff != "" {
		t.Errorf("vpc properties (-got, +want)\n%s", diff)
	}

	td := byName["testingTaskDefinition"]
	defs, _ := td.Properties["ContainerDefinitions"].([]interface{})
	if len(defs) != 2 {
		t.Fatalf("ContainerDefinitions = %v", td.Properties["ContainerDefinitions"])
	}
	primary := defs[0].(map[string]interface{})
	if primary["Name"] != "testingContainer" {
		t.Errorf("first container = %v", primary["Name"])
	}
	if _, ok := primary["TaskDefinition"]; ok {
		t.Error("container definition has a TaskDefinition property")
	}
	env, _ := primary["Environment"].(map[string]interface{})
	if env["SIDECAR_ACTION"] != "test-config" {
		t.Errorf("Environment = %v", primary["Environment"])
	}
	mounts, _ := primary["MountPoints"].([]interface{})
	if len(mounts) != 1 || mounts[0].(map[string]interface{})["ContainerPath"] != "/config" {
		t.Errorf("MountPoints = %v", primary["MountPoints"])
	}
	if vols, _ := td.Properties["Volumes"].([]interface{}); len(vols) != 1 {
		t.Errorf("Volumes = %v", td.Properties["Volumes"])
	}

	want := []string{"AccessPolicy", "nmos-test-cluster", "nmos-testing", "testingTaskDefinition"}
	if diff := cmp.Diff(byName["testingService"].DependsOn, want); diff != "" {
		t.Errorf("testingService DependsOn (-got, +want)\n%s", diff)
	}
	for _, dep := range td.DependsOn {
		if dep == td.Name {
			t.Error("task definition depends on itself")
		}
	}
}

func TestPlan_errors(t *testing.T) {
	tests := []struct {
		name string
		doc  *synth.Document
	}{
		{"Collision", &synth.Document{Resources: []synth.Resource{
			{Name: "a-b", Kind: "network"},
			{Name: "a_b", Kind: "network"},
		}}},
		{"NoTaskDefinition", &synth.Document{Resources: []synth.Resource{
			{Name: "c", Kind: "container-definition"},
		}}},
		{"UnknownKind", &synth.Document{Resources: []synth.Resource{
			{Name: "x", Kind: "mainframe"},
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := cdkemit.Plan(tc.doc); err == nil {
				t.Error("Plan() did not return an error")
			}
		})
	}
}

func TestEmit(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node is required to run the CDK")
	}
	defer jsii.Close()

	doc := nmosDocument(t)
	app := awscdk.NewApp(nil)
	st := awscdk.NewStack(app, jsii.String("Nmos"), nil)

	out, err := cdkemit.Emit(st, doc)
	if err != nil {
		t.Fatalf("Emit() err = %v", err)
	}
	if got, want := len(out), len(doc.Resources); got != want {
		t.Errorf("len(Emit()) = %d, want %d", got, want)
	}
	if got := *out["nmos-test-vpc"].CfnResourceType(); got != "AWS::EC2::VPC" {
		t.Errorf("CfnResourceType() = %s", got)
	}
	if out["testingContainer"] != out["testingTaskDefinition"] {
		t.Error("container was not folded into its task definition")
	}
	app.Synth(nil)
}
