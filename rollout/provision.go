package rollout

import (
	"context"
	"sort"

	"github.com/stackgraph/stackgraph/synth"
	"go.uber.org/zap"
)

// ProvisionerFunc adapts a function to a Provisioner.
type ProvisionerFunc func(ctx context.Context, res synth.Resource) error

// Provision calls f.
func (f ProvisionerFunc) Provision(ctx context.Context, res synth.Resource) error {
	return f(ctx, res)
}

// LogProvisioner is a dry run provisioner: it logs every resource and
// succeeds.
type LogProvisioner struct {
	Logger *zap.Logger
}

// Provision logs the resource.
func (p LogProvisioner) Provision(ctx context.Context, res synth.Resource) error {
	if p.Logger == nil {
		return nil
	}
	keys := make([]string, 0, len(res.Attributes))
	for k := range res.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p.Logger.Info("Provision",
		zap.String("name", res.Name),
		zap.String("kind", string(res.Kind)),
		zap.String("unit", res.Unit),
		zap.Strings("attributes", keys),
	)
	return nil
}
