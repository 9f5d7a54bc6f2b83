package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set with
// -ldflags "-X github.com/stackgraph/stackgraph/cmd/stackgraph.Version=<value>".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "stackgraph %s (%s)\n", Version, Commit)
		fmt.Fprintf(w, "built %s with %s %s/%s\n", BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	Stackgraph.AddCommand(versionCommand)
}
