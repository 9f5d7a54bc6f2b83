package cmd

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/stackgraph/stackgraph/synth"
)

var orderCommand = &cobra.Command{
	Use:   "order [dir]",
	Short: "Print the resource order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd, args)
		if err != nil {
			return err
		}
		doc, err := p.synthesize(cmd)
		if err != nil {
			return err
		}
		writeOrder(doc)
		return nil
	},
}

func init() {
	Stackgraph.AddCommand(orderCommand)
}

func writeOrder(doc *synth.Document) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Name", "Kind", "Unit", "Gate", "Waits for"})
	for i, r := range doc.Resources {
		gate := ""
		if r.Gate != nil {
			gate = gateColor(r.Gate.Status.String()).Sprint(r.Gate.Status)
		}
		t.AppendRow(table.Row{i + 1, r.Name, r.Kind, r.Unit, gate, strings.Join(r.WaitFor, ", ")})
	}
	t.Render()
}

func gateColor(status string) text.Colors {
	switch status {
	case "ready":
		return text.Colors{text.FgGreen}
	case "failed":
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgYellow}
	}
}
