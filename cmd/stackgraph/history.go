package cmd

import (
	"context"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyCommand = &cobra.Command{
	Use:   "history <stack> [id]",
	Short: "List stored documents, or print one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := LoadSettings()
		if err != nil {
			return err
		}
		docs, closeDB, err := settings.OpenHistory()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := signalContext(context.Background())
		if len(args) == 2 {
			e, err := docs.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return e.Document.EncodeJSON(os.Stdout)
		}

		list, err := docs.List(ctx, args[0])
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Created", "Resources", "Digest"})
		for _, e := range list {
			digest := e.Document.Digest
			if len(digest) > 12 {
				digest = digest[:12]
			}
			t.AppendRow(table.Row{e.ID, e.Created.Format("2006-01-02 15:04:05"), len(e.Document.Resources), digest})
		}
		t.Render()
		return nil
	},
}

func init() {
	Stackgraph.AddCommand(historyCommand)
}
