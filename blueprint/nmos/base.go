package nmos

import (
	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/stack"
)

// Base unit nodes referenced by the other units.
const (
	nodeVPC       = "nmos-test-vpc"
	nodeCluster   = "nmos-test-cluster"
	nodeNamespace = "nmos-test-namespace"
)

func buildBase(b *stack.Builder, p Params) *stack.Unit {
	u := b.Unit(UnitBase)

	u.Add(nodeVPC, graph.KindNetwork, attrs{
		"max_azs": expr.Number(2),
	})
	u.Add(nodeCluster, graph.KindComputeCluster, attrs{
		"vpc": ref(nodeVPC),
	})

	// Host volumes need EC2 capacity in the cluster.
	asg := u.Add("cluster-asg", graph.KindAutoscalingGroup, attrs{
		"vpc":            ref(nodeVPC),
		"instance_type":  expr.String(p.InstanceType),
		"machine_image":  expr.String("ecs-optimized-amazon-linux-2"),
		"min_capacity":   expr.Number(1),
		"max_capacity":   expr.Number(1),
		"removal_policy": expr.String("destroy"),
	})
	u.Add("cluster-asg-capacity-provider", graph.KindCapacityProvider, attrs{
		"auto_scaling_group":                    ref(asg),
		"cluster":                               ref(nodeCluster),
		"enable_managed_termination_protection": expr.Bool(false),
	})

	u.Add(nodeNamespace, graph.KindDNSNamespace, attrs{
		"vpc":  ref(nodeVPC),
		"name": expr.String(p.Domain),
	})
	return u
}
