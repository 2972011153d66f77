package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
	"github.com/spf13/cobra"
)

func newRecordsCmd(opts *rootOptions) *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Curate the inventory kept in a state file",
		Long: `Lists, adds, removes and edits inventory records stored in a state file.
Records are addressed by their 0-based position as shown by "records list".`,
	}
	cmd.PersistentFlags().StringVar(&statePath, "state", "inventory.yaml", "YAML file holding the inventory")

	load := func() (*storage.RecordStore, error) {
		store := storage.New()
		if err := loadState(store, statePath); err != nil {
			return nil, err
		}
		return store, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the inventory as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := load()
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), store.Snapshot())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add-blank",
		Short: "Append an empty record with the standard fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := load()
			if err != nil {
				return err
			}
			store.AppendBlank()
			fmt.Fprintf(cmd.OutOrStdout(), "Added record %d\n", store.Len()-1)
			return saveState(store, statePath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <index>",
		Short: "Remove the record at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			store, err := load()
			if err != nil {
				return err
			}
			if !store.RemoveAt(index) {
				fmt.Fprintf(cmd.ErrOrStderr(), "No record at %d, nothing removed\n", index)
				return nil
			}
			return saveState(store, statePath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <index> <field>=<value>...",
		Short: "Change fields of the record at index",
		Example: `  cheminv records set 2 "Lot Number=A1234" "Concentration=70%"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			store, err := load()
			if err != nil {
				return err
			}
			if !store.BeginEdit(index) {
				return fmt.Errorf("no record at %d", index)
			}
			for _, assignment := range args[1:] {
				name, value, ok := strings.Cut(assignment, "=")
				if !ok || strings.TrimSpace(name) == "" {
					store.CancelEdit()
					return fmt.Errorf("invalid assignment %q (want field=value)", assignment)
				}
				store.UpdateEditField(strings.TrimSpace(name), value)
			}
			store.CommitEdit()
			return saveState(store, statePath)
		},
	})

	return cmd
}

func printTable(w io.Writer, snap storage.Snapshot) error {
	if len(snap.Records) == 0 {
		_, err := fmt.Fprintln(w, "No records")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\n", strings.Join(snap.Columns, "\t"))
	for i, row := range snap.Rows() {
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
