package config

import "github.com/hashicorp/hcl/v2"

// A Root is the root structure of a project's configuration.
type Root struct {
	Stacks     []Stack     `hcl:"stack,block"`
	Units      []Unit      `hcl:"unit,block"`
	Blueprints []Blueprint `hcl:"blueprint,block"`
}

// Stack names the stack. Exactly one stack block is required.
type Stack struct {
	Name   string   `hcl:"name,label" validate:"required"`
	Remain hcl.Body `hcl:",remain"`
}

// A Unit is a deployment unit.
type Unit struct {
	Name      string     `hcl:"name,label" validate:"required"`
	After     []string   `hcl:"after,optional"`
	Env       []Env      `hcl:"env,block"`
	Resources []Resource `hcl:"resource,block"`
}

// Env sets configuration values. The label is the key prefix; every
// attribute in the body is a key without the prefix.
type Env struct {
	Prefix string   `hcl:"prefix,label" validate:"envprefix"`
	Body   hcl.Body `hcl:",remain"`
}

// A Resource is a user specified resource node.
type Resource struct {
	// Kind is the node kind, such as "network" or "service".
	Kind string `hcl:"kind,label" validate:"required"`

	// Name is unique within the stack.
	Name string `hcl:"name,label" validate:"required"`

	DependsOn  []string `hcl:"depends_on,optional"`
	ReadyAfter []string `hcl:"ready_after,optional"`
	Gate       *Gate    `hcl:"gate,block"`

	// Attributes holds the remaining attributes of the resource.
	Attributes hcl.Body `hcl:",remain"`
}

// A Gate is a readiness gate on a resource.
type Gate struct {
	Predicate string `hcl:"predicate" validate:"required"`

	// Status can be set to record the outcome of a previous rollout.
	Status string `hcl:"status,optional" validate:"omitempty,oneof=pending ready failed"`
	Reason string `hcl:"reason,optional"`
}

// A Blueprint adds a registered blueprint to the stack. The body holds the
// blueprint parameters.
type Blueprint struct {
	Name   string   `hcl:"name,label" validate:"required"`
	Params hcl.Body `hcl:",remain"`
}
