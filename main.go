package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	cmd "github.com/stackgraph/stackgraph/cmd/stackgraph"
)

func main() {
	err := cmd.Stackgraph.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
