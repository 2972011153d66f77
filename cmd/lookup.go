package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/lookup"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/spf13/cobra"
)

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var (
		by             string
		manualFallback bool
		statePath      string
		output         string
	)

	cmd := &cobra.Command{
		Use:   "lookup <query>",
		Short: "Add a chemical by CAS number or name",
		Long: `Asks the model for the name, CAS number, formula, molecular weight and
common uses of a chemical and adds the answer to the inventory.

When the chemical cannot be found nothing is added, unless --manual-fallback
is given, in which case a blank entry named after the query is added instead.`,
		Example: `  # Look up ethanol by CAS number and keep it in the state file
  cheminv lookup 64-17-5 --state inventory.yaml

  # Look up by name, falling back to a blank entry
  cheminv lookup "sodium chloride" --by name --manual-fallback --state inventory.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := lookup.ParseMode(by)
			if err != nil {
				return err
			}

			sess, err := opts.newSession(statePath)
			if err != nil {
				return err
			}

			record, err := sess.Lookup(cmd.Context(), args[0], mode)
			if errors.Is(err, lookup.ErrNotFound) {
				fmt.Fprintln(cmd.ErrOrStderr(), lookup.NotFoundMessage)
				if !manualFallback {
					return err
				}
				record, err = sess.AddManual()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Added %q manually\n", args[0])
			} else if err != nil {
				return err
			}

			if err := printRecord(cmd.OutOrStdout(), record); err != nil {
				return err
			}
			return finish(sess.Store(), statePath, output)
		},
	}

	cmd.Flags().StringVar(&by, "by", "cas", "Interpret the query as a CAS number (cas) or a chemical name (name)")
	cmd.Flags().BoolVar(&manualFallback, "manual-fallback", false, "Add a blank entry named after the query when the lookup fails")
	cmd.Flags().StringVar(&statePath, "state", "", "YAML file holding the inventory between runs")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Spreadsheet to write after the lookup (.xlsx or .parquet)")

	return cmd
}

func printRecord(w io.Writer, record models.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range record.Fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f.Name, f.Value)
	}
	return tw.Flush()
}
