package cmd

import (
	"fmt"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stackgraph/stackgraph/cdkemit"
)

var cdkCommand = &cobra.Command{
	Use:   "cdk [dir]",
	Short: "Synthesize a CloudFormation template with the AWS CDK",
	Long: `Synthesize a CloudFormation template with the AWS CDK.

The CDK runs on node, which must be installed.`,
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
		out, _ := cmd.Flags().GetString("out")

		defer jsii.Close()
		app := awscdk.NewApp(&awscdk.AppProps{Outdir: jsii.String(out)})
		st := awscdk.NewStack(app, jsii.String(cdkemit.LogicalID(doc.Stack)), nil)
		if _, err := cdkemit.Emit(st, doc); err != nil {
			return err
		}
		app.Synth(nil)
		fmt.Fprintf(os.Stderr, "Wrote %s\n", color.CyanString(out))
		return nil
	},
}

func init() {
	cdkCommand.Flags().String("out", "cdk.out", "Output directory")
	Stackgraph.AddCommand(cdkCommand)
}
