// Package cmd implements the stackgraph command line interface.
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stackgraph/stackgraph/blueprint"
	"github.com/stackgraph/stackgraph/blueprint/nmos"
	"github.com/stackgraph/stackgraph/config"
	"github.com/stackgraph/stackgraph/stack"
	"github.com/stackgraph/stackgraph/synth"
	"go.uber.org/zap"
)

// Stackgraph is the root command.
var Stackgraph = &cobra.Command{
	Use:   "stackgraph",
	Short: "Synthesize ordered cloud deployments",
	Long: `stackgraph reads a stack description, resolves the ordering between its
resources and writes a document a provisioning engine can execute.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	Stackgraph.PersistentFlags().Bool("strict", false, "Fail on pending gates instead of deferring them to the provisioning engine")
}

// blueprints are the blueprints available to stack descriptions.
var blueprints = blueprint.FromBlueprints(
	nmos.Blueprint{},
)

var errInvalidConfig = errors.New("invalid configuration")

// project is a loaded stack description.
type project struct {
	settings Settings
	logger   *zap.Logger
	root     string
	stack    *stack.Stack
}

// loadProject loads the stack in the project containing dir. Diagnostics are
// written to stderr.
func loadProject(cmd *cobra.Command, args []string) (*project, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	settings, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	logger, err := settings.Logger()
	if err != nil {
		return nil, err
	}

	l := &config.Loader{}
	root, err := l.Root(dir)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return nil, errors.Errorf("no project found in %s or its parents", dir)
	}
	logger.Debug("Found project", zap.String("root", root))

	body, diags := l.Load(root)
	if diags.HasErrors() {
		l.WriteDiagnostics(os.Stderr, diags)
		return nil, errInvalidConfig
	}
	s, diags := l.Decode(body, blueprints, stack.WithLogger(logger))
	if len(diags) > 0 {
		l.WriteDiagnostics(os.Stderr, diags)
	}
	if diags.HasErrors() {
		return nil, errInvalidConfig
	}
	return &project{settings: settings, logger: logger, root: root, stack: s}, nil
}

// synthOptions returns the synthesis options for the command flags.
func (p *project) synthOptions(cmd *cobra.Command) ([]synth.Option, error) {
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return nil, err
	}
	opts := []synth.Option{synth.WithLogger(p.logger)}
	if !strict {
		opts = append(opts, synth.DeferGates())
	}
	return opts, nil
}

func (p *project) synthesize(cmd *cobra.Command) (*synth.Document, error) {
	opts, err := p.synthOptions(cmd)
	if err != nil {
		return nil, err
	}
	return p.stack.Synthesize(opts...)
}
