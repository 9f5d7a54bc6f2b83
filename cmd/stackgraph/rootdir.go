package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stackgraph/stackgraph/config"
)

var rootCommand = &cobra.Command{
	Use:   "root [dir]",
	Short: "Print the project directory containing dir",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		l := &config.Loader{}
		root, err := l.Root(dir)
		if err != nil {
			return err
		}
		if root == "" {
			return errors.Errorf("no project found in %s or its parents", dir)
		}
		fmt.Fprintln(cmd.OutOrStdout(), root)
		return nil
	},
}

func init() {
	Stackgraph.AddCommand(rootCommand)
}
