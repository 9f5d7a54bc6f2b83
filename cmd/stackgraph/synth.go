package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stackgraph/stackgraph/publish"
	"github.com/stackgraph/stackgraph/synth"
)

var synthCommand = &cobra.Command{
	Use:   "synth [dir]",
	Short: "Synthesize the stack document",
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

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			err = doc.EncodeJSON(os.Stdout)
		case "yaml":
			err = doc.EncodeYAML(os.Stdout)
		default:
			return errors.Errorf("unknown format %q, want json or yaml", format)
		}
		if err != nil {
			return errors.Wrap(err, "encode")
		}

		ctx := signalContext(context.Background())
		if save, _ := cmd.Flags().GetBool("save"); save {
			if err := saveDocument(ctx, p, doc); err != nil {
				return err
			}
		}
		if pub, _ := cmd.Flags().GetBool("publish"); pub {
			if p.settings.Bucket == "" {
				return errors.New("STACKGRAPH_BUCKET is not set")
			}
			up, err := publish.NewS3(ctx, p.settings.Bucket, p.settings.Prefix)
			if err != nil {
				return err
			}
			up.Logger = p.logger
			key, err := up.Publish(ctx, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Published %s\n", color.CyanString("s3://%s/%s", p.settings.Bucket, key))
		}
		return nil
	},
}

func init() {
	synthCommand.Flags().String("format", "json", "Output format: json or yaml")
	synthCommand.Flags().Bool("save", false, "Store the document in the history")
	synthCommand.Flags().Bool("publish", false, "Upload the document to STACKGRAPH_BUCKET")
	Stackgraph.AddCommand(synthCommand)
}

func saveDocument(ctx context.Context, p *project, doc *synth.Document) error {
	docs, closeDB, err := p.settings.OpenHistory()
	if err != nil {
		return err
	}
	defer closeDB()
	id, err := docs.Put(ctx, doc)
	if err != nil {
		return errors.Wrap(err, "save document")
	}
	fmt.Fprintf(os.Stderr, "Saved %s\n", color.CyanString(id))
	return nil
}
