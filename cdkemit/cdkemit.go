// Package cdkemit renders a synthesized document as CloudFormation resources
// in an AWS CDK app.
//
// Every document resource becomes an awscdk.CfnResource whose type is taken
// from the resource kind and whose properties are the evaluated attributes.
// Container definitions and volumes have no resource type of their own; they
// are folded into the task definition named by their task_definition
// attribute. Every document edge becomes a CloudFormation dependency.
//
// Attribute values are rendered as synthesized: references to other nodes are
// their names, not CloudFormation Ref or GetAtt expressions.
package cdkemit

import (
	"encoding/json"
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/synth"
)

var types = map[graph.Kind]string{
	graph.KindNetwork:            "AWS::EC2::VPC",
	graph.KindComputeCluster:     "AWS::ECS::Cluster",
	graph.KindAutoscalingGroup:   "AWS::AutoScaling::AutoScalingGroup",
	graph.KindCapacityProvider:   "AWS::ECS::CapacityProvider",
	graph.KindDNSNamespace:       "AWS::ServiceDiscovery::PrivateDnsNamespace",
	graph.KindDNSService:         "AWS::ServiceDiscovery::Service",
	graph.KindConfigApplication:  "AWS::AppConfig::Application",
	graph.KindConfigEnvironment:  "AWS::AppConfig::Environment",
	graph.KindConfigStrategy:     "AWS::AppConfig::DeploymentStrategy",
	graph.KindConfigProfile:      "AWS::AppConfig::ConfigurationProfile",
	graph.KindConfigVersion:      "AWS::AppConfig::HostedConfigurationVersion",
	graph.KindConfigDeployment:   "AWS::AppConfig::Deployment",
	graph.KindLogGroup:           "AWS::Logs::LogGroup",
	graph.KindAccessPolicy:       "AWS::IAM::ManagedPolicy",
	graph.KindTaskDefinition:     "AWS::ECS::TaskDefinition",
	graph.KindService:            "AWS::ECS::Service",
	graph.KindLoadBalancer:       "AWS::ElasticLoadBalancingV2::LoadBalancer",
	graph.KindListener:           "AWS::ElasticLoadBalancingV2::Listener",
	graph.KindLoadBalancerTarget: "AWS::ElasticLoadBalancingV2::TargetGroup",
}

// Kinds folded into their task definition, with the property they are listed
// in.
var embedded = map[graph.Kind]string{
	graph.KindContainer: "ContainerDefinitions",
	graph.KindVolume:    "Volumes",
}

// Type returns the CloudFormation type for a kind. Embedded kinds have no
// type.
func Type(kind graph.Kind) (string, bool) {
	t, ok := types[kind]
	return t, ok
}

// Emit declares the resources of doc in scope. It returns the declared
// resources by document resource name; embedded resources map to their task
// definition.
func Emit(scope constructs.Construct, doc *synth.Document) (map[string]awscdk.CfnResource, error) {
	t, err := Plan(doc)
	if err != nil {
		return nil, err
	}

	out := make(map[string]awscdk.CfnResource, len(doc.Resources))
	for _, r := range t.Resources {
		props := r.Properties
		out[r.Name] = awscdk.NewCfnResource(scope, jsii.String(r.LogicalID), &awscdk.CfnResourceProps{
			Type:       jsii.String(r.Type),
			Properties: &props,
		})
	}
	for name, owner := range t.Embedded {
		out[name] = out[owner]
	}
	for _, r := range t.Resources {
		for _, dep := range r.DependsOn {
			out[r.Name].AddDependency(out[dep])
		}
	}
	return out, nil
}

// A Template is the rendering plan for a document.
type Template struct {
	// Resources are in document order.
	Resources []*Resource

	// Embedded maps embedded resource names to the resource they are folded
	// into.
	Embedded map[string]string
}

// A Resource is a CloudFormation resource to declare.
type Resource struct {
	Name       string
	LogicalID  string
	Type       string
	Properties map[string]interface{}

	// DependsOn are the names of the resources this one depends on, sorted.
	DependsOn []string
}

// Plan computes the resources to declare for a document without creating any
// constructs.
func Plan(doc *synth.Document) (*Template, error) {
	t := &Template{Embedded: make(map[string]string)}
	byName := make(map[string]*Resource)
	ids := make(map[string]string)

	for _, res := range doc.Resources {
		if _, ok := embedded[res.Kind]; ok {
			continue
		}
		typ, ok := types[res.Kind]
		if !ok {
			return nil, errors.Errorf("%s: no resource type for kind %q", res.Name, res.Kind)
		}
		id := LogicalID(res.Name)
		if prev, ok := ids[id]; ok {
			return nil, errors.Errorf("%s and %s have the same logical id %s", prev, res.Name, id)
		}
		ids[id] = res.Name
		props, err := properties(res.Attributes)
		if err != nil {
			return nil, errors.Wrap(err, res.Name)
		}
		r := &Resource{Name: res.Name, LogicalID: id, Type: typ, Properties: props}
		byName[res.Name] = r
		t.Resources = append(t.Resources, r)
	}

	// Fold embedded resources in document order.
	for _, res := range doc.Resources {
		prop, ok := embedded[res.Kind]
		if !ok {
			continue
		}
		var owner string
		if raw, ok := res.Attributes["task_definition"]; ok {
			if err := json.Unmarshal(raw, &owner); err != nil {
				return nil, errors.Wrapf(err, "%s: task_definition", res.Name)
			}
		}
		td, ok := byName[owner]
		if !ok || td.Type != types[graph.KindTaskDefinition] {
			return nil, errors.Errorf("%s: task_definition %q is not a task definition in the document", res.Name, owner)
		}
		item, err := properties(res.Attributes)
		if err != nil {
			return nil, errors.Wrap(err, res.Name)
		}
		delete(item, "TaskDefinition")
		if _, ok := item["Name"]; !ok {
			item["Name"] = res.Name
		}
		list, _ := td.Properties[prop].([]interface{})
		td.Properties[prop] = append(list, item)
		t.Embedded[res.Name] = owner
	}

	resolve := func(name string) string {
		if owner, ok := t.Embedded[name]; ok {
			return owner
		}
		return name
	}
	for _, res := range doc.Resources {
		r := byName[resolve(res.Name)]
		seen := make(map[string]bool, len(r.DependsOn))
		for _, d := range r.DependsOn {
			seen[d] = true
		}
		for _, dep := range append(append([]string(nil), res.DependsOn...), res.ReadyAfter...) {
			dep = resolve(dep)
			if dep == r.Name || seen[dep] {
				continue
			}
			if _, ok := byName[dep]; !ok {
				return nil, errors.Errorf("%s depends on %s, which is not in the document", res.Name, dep)
			}
			seen[dep] = true
			r.DependsOn = append(r.DependsOn, dep)
		}
		sort.Strings(r.DependsOn)
	}
	return t, nil
}
