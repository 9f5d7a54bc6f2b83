package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCommand = &cobra.Command{
	Use:   "graph [dir]",
	Short: "Print the dependency graph in graphviz dot format",
	Long: `Print the dependency graph in graphviz dot format.

Exists-before edges are dashed, ready-before edges are solid.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd, args)
		if err != nil {
			return err
		}
		b, err := p.stack.Graph.MarshalDOT(p.stack.Name)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

func init() {
	Stackgraph.AddCommand(graphCommand)
}
