// Package nmos is a blueprint for an AMWA NMOS test deployment.
//
// The deployment consists of three units:
//
//	base        network, compute cluster with EC2 capacity, private DNS namespace
//	appconfig   remote configuration for the testing tool, registry and node
//	containers  testing tool, NMOS registry and virtual node services
//
// Each service runs a sidecar container that fetches the service's
// configuration into a shared volume. The sidecar has a health check gate,
// and the primary container may only start once the sidecar is healthy. The
// three configuration deployments run one after another, and the containers
// unit starts after the base and appconfig units.
package nmos

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/stackgraph/stackgraph/expr"
	"github.com/stackgraph/stackgraph/stack"
)

// Name is the blueprint name.
const Name = "nmos-testing"

// Unit names.
const (
	UnitBase       = "base"
	UnitAppConfig  = "appconfig"
	UnitContainers = "containers"
)

// Blueprint implements blueprint.Blueprint.
type Blueprint struct{}

// Name returns the blueprint name.
func (Blueprint) Name() string { return Name }

// Build decodes the parameters and adds the deployment to the builder.
func (Blueprint) Build(b *stack.Builder, params hcl.Body) hcl.Diagnostics {
	p, diags := DecodeParams(params)
	if diags.HasErrors() {
		return diags
	}
	Build(b, p)
	return diags
}

// Build adds the deployment to the builder. The parameters must be complete;
// use Defaults or DecodeParams.
func Build(b *stack.Builder, p Params) {
	base := buildBase(b, p)
	cfg, keys := buildAppConfig(b, p)
	containers := buildContainers(b, p, keys)
	containers.After(base, cfg)
}

type attrs = map[string]expr.Expression

// ref references the name of another node.
func ref(name string) expr.Expression {
	return expr.MustParse(fmt.Sprintf("node[%q].name", name))
}
