package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stackgraph/stackgraph/rollout"
)

var rolloutCommand = &cobra.Command{
	Use:   "rollout [dir]",
	Short: "Walk the stack in order and evaluate gates",
	Long: `Walk the stack in order and evaluate gates.

Resources are not created; provisioning is logged. Without --http every gate is
reported ready. With --http, gates whose predicate contains a URL are probed
over HTTP.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd, args)
		if err != nil {
			return err
		}
		doc, err := p.synthesize(cmd)
		if err != nil {
			return err
		}

		var prober rollout.Prober = rollout.StaticProber{}
		if useHTTP, _ := cmd.Flags().GetBool("http"); useHTTP {
			prober = &rollout.HTTPProber{}
		}
		r := &rollout.Runner{
			Provisioner: rollout.LogProvisioner{Logger: p.logger},
			Prober:      prober,
			Concurrency: p.settings.Concurrency,
			Logger:      p.logger,
		}

		ctx := signalContext(context.Background())
		res, err := r.Run(ctx, doc)
		if err != nil {
			return err
		}
		writeResult(res)

		if save, _ := cmd.Flags().GetBool("save"); save {
			recorded, err := res.Record(doc)
			if err != nil {
				return errors.Wrap(err, "record gate outcomes")
			}
			if err := saveDocument(ctx, p, recorded); err != nil {
				return err
			}
		}
		if !res.Complete() {
			return errors.Errorf("rollout incomplete: %s", res)
		}
		return nil
	},
}

func init() {
	rolloutCommand.Flags().Bool("http", false, "Probe gates over HTTP")
	rolloutCommand.Flags().Bool("save", false, "Store the document, with gate outcomes, in the history")
	Stackgraph.AddCommand(rolloutCommand)
}

func writeResult(res *rollout.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, n := range res.Nodes {
		switch n.Outcome {
		case rollout.Ready:
			fmt.Fprintf(os.Stdout, "%s %s\n", green("✓"), n.Name)
		case rollout.Blocked:
			fmt.Fprintf(os.Stdout, "%s %s %s\n", yellow("-"), n.Name, faint(n.Reason))
		default:
			fmt.Fprintf(os.Stdout, "%s %s %s: %s\n", red("✗"), n.Name, n.Outcome, n.Reason)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%s %s\n", faint("job "+res.JobID), res)
}
