package cmd

import (
	"fmt"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/intake"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/orchestrator"
	"github.com/spf13/cobra"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		prompt    string
		output    string
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "extract <image>...",
		Short: "Extract inventory data from label photos",
		Long: `Sends each label image to the configured model, one at a time, and collects
the returned fields into the inventory. An image that cannot be read is
reported and skipped; the others are still processed.

Images may be local files or http(s) URLs.`,
		Example: `  # Extract two labels into the default spreadsheet
  cheminv extract bottle1.jpg bottle2.jpg

  # Keep the records for later curation
  cheminv extract --state inventory.yaml shelf/*.png

  # Use a custom instruction
  cheminv extract --prompt "Return only the product name and lot as JSON" label.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") {
				output = opts.cfg.Output
			}

			sess, err := opts.newSession(statePath)
			if err != nil {
				return err
			}

			fetcher := intake.NewFetcher()
			fetcher.MaxBytes = opts.cfg.MaxUploadMB * 1024 * 1024
			payloads := make([]intake.Payload, 0, len(args))
			for _, source := range args {
				p, err := fetcher.Load(cmd.Context(), source)
				if err != nil {
					return err
				}
				payloads = append(payloads, p)
			}
			sess.AddImages(payloads...)

			out := cmd.ErrOrStderr()
			summary, err := sess.Extract(cmd.Context(), prompt, orchestrator.ObserverFuncs{
				Progress: func(current, total int, item models.ImageItem) {
					fmt.Fprintf(out, "Processing image %d of %d: %s\n", current, total, item.Filename)
				},
				Failure: func(f orchestrator.Failure) {
					fmt.Fprintf(out, "%s (%s: %v)\n", f.Message(), f.Filename, f.Err)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d of %d images (%d failed, %d skipped)\n",
				summary.Extracted, summary.Total, summary.Failed, summary.Skipped)

			return finish(sess.Store(), statePath, output)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Custom extraction instruction (default instruction when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Spreadsheet to write (.xlsx or .parquet)")
	cmd.Flags().StringVar(&statePath, "state", "", "YAML file holding the inventory between runs")

	return cmd
}
