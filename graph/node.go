package graph

import (
	"fmt"

	"github.com/stackgraph/stackgraph/expr"
	"gonum.org/v1/gonum/graph/encoding"
)

// A Kind is the type of a resource node.
type Kind string

// Resource kinds.
const (
	KindNetwork            Kind = "network"
	KindComputeCluster     Kind = "compute-cluster"
	KindConfigApplication  Kind = "config-application"
	KindConfigProfile      Kind = "config-profile"
	KindConfigDeployment   Kind = "config-deployment"
	KindContainer          Kind = "container-definition"
	KindService            Kind = "service"
	KindLoadBalancerTarget Kind = "load-balancer-target"

	KindAutoscalingGroup  Kind = "autoscaling-group"
	KindCapacityProvider  Kind = "capacity-provider"
	KindDNSNamespace      Kind = "dns-namespace"
	KindConfigEnvironment Kind = "config-environment"
	KindConfigStrategy    Kind = "config-strategy"
	KindConfigVersion     Kind = "config-version"
	KindLogGroup          Kind = "log-group"
	KindAccessPolicy      Kind = "access-policy"
	KindTaskDefinition    Kind = "task-definition"
	KindVolume            Kind = "volume"
	KindLoadBalancer      Kind = "load-balancer"
	KindListener          Kind = "listener"
	KindDNSService        Kind = "dns-service"
)

var kinds = []Kind{
	KindNetwork,
	KindComputeCluster,
	KindConfigApplication,
	KindConfigProfile,
	KindConfigDeployment,
	KindContainer,
	KindService,
	KindLoadBalancerTarget,
	KindAutoscalingGroup,
	KindCapacityProvider,
	KindDNSNamespace,
	KindConfigEnvironment,
	KindConfigStrategy,
	KindConfigVersion,
	KindLogGroup,
	KindAccessPolicy,
	KindTaskDefinition,
	KindVolume,
	KindLoadBalancer,
	KindListener,
	KindDNSService,
}

// Kinds returns all known kinds.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Valid returns true if the kind is known.
func (k Kind) Valid() bool {
	for _, kk := range kinds {
		if k == kk {
			return true
		}
	}
	return false
}

func kindNames() []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// A Node is a single provisionable unit in the graph.
//
// Nodes are created with Graph.AddNode and are owned by the graph.
type Node struct {
	id int64

	// Name is unique within the graph.
	Name string
	Kind Kind

	// Unit is the name of the deployment unit the node belongs to. It may
	// be empty.
	Unit string

	// Attrs are the declared attributes of the node.
	Attrs map[string]expr.Expression
}

// ID returns the internal identifier of the node. Identifiers increase in
// the order nodes were added.
func (n *Node) ID() int64 { return n.id }

// DOTID returns the node name, used when the graph is marshalled to graphviz
// dot format.
func (n *Node) DOTID() string { return n.Name }

// Attributes returns attributes for the node when the graph is marshalled to
// graphviz dot format.
func (n *Node) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{
		{Key: "label", Value: fmt.Sprintf("%q", fmt.Sprintf("%s\n%s", n.Kind, n.Name))},
		{Key: "shape", Value: "box"},
	}
	return attrs
}

func (n *Node) String() string { return n.Name }
