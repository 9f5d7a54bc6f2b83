package nmos

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/imdario/mergo"
	"github.com/stackgraph/stackgraph/config"
)

// Params are the blueprint parameters. Zero fields are set from Defaults.
type Params struct {
	Domain string `hcl:"domain,optional" validate:"required,hostname_rfc1123"`

	TestPort     int `hcl:"test_port,optional" validate:"port"`
	RegistryPort int `hcl:"registry_port,optional" validate:"port"`
	NodePort     int `hcl:"node_port,optional" validate:"port"`
	SidecarPort  int `hcl:"sidecar_port,optional" validate:"port"`

	TestImage    string `hcl:"test_image,optional" validate:"required"`
	NMOSImage    string `hcl:"nmos_image,optional" validate:"required"`
	SidecarImage string `hcl:"sidecar_image,optional" validate:"required"`

	InstanceType string `hcl:"instance_type,optional" validate:"required"`
}

// Defaults returns the default parameters.
func Defaults() Params {
	return Params{
		Domain:       "nmos-test",
		TestPort:     4000,
		RegistryPort: 8010,
		NodePort:     11000,
		SidecarPort:  8080,
		TestImage:    "registry.hub.docker.com/amwa/nmos-testing",
		NMOSImage:    "registry.hub.docker.com/rhastie/nmos-cpp",
		SidecarImage: "registry.hub.docker.com/oroksoy/nmos-sidecar",
		InstanceType: "t3a.xlarge",
	}
}

// DecodeParams decodes parameters from a blueprint block body. The body may
// be nil.
func DecodeParams(body hcl.Body) (Params, hcl.Diagnostics) {
	var p Params
	var diags hcl.Diagnostics
	rng := hcl.Range{}
	if body != nil {
		diags = gohcl.DecodeBody(body, nil, &p)
		if diags.HasErrors() {
			return Params{}, diags
		}
		rng = body.MissingItemRange()
	}
	if err := mergo.Merge(&p, Defaults()); err != nil {
		return Params{}, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Could not apply default parameters",
			Detail:   err.Error(),
			Subject:  rng.Ptr(),
		})
	}
	diags = append(diags, config.Validate(p, rng)...)
	return p, diags
}
