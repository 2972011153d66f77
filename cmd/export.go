package cmd

import (
	"fmt"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/export"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		statePath string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the inventory in a state file to a spreadsheet",
		Example: `  cheminv export --state inventory.yaml
  cheminv export --state inventory.yaml --output inventory.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") {
				output = opts.cfg.Output
			}

			store := storage.New()
			if err := loadState(store, statePath); err != nil {
				return err
			}
			if err := export.WriteFile(output, store.Snapshot()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", store.Len(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&statePath, "state", "inventory.yaml", "YAML file holding the inventory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Spreadsheet to write (.xlsx or .parquet)")

	return cmd
}
