package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/evaluation"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var (
		reference string
		statePath string
		fields    string
		report    string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure extraction accuracy against a hand-checked inventory",
		Long: `Compares an extracted inventory with a reference inventory that was checked
by hand. Rows are paired by position, so extract the label photos in the same
order the reference lists them.

Every field is scored from 0 to 1: exact matches (ignoring case, punctuation
and spacing) score 1, partial matches score by edit distance, and fields
missing from the extraction score 0.`,
		Example: `  cheminv extract --state extracted.yaml shelf/*.jpg
  cheminv eval --reference checked.yaml --state extracted.yaml

  # Score only some columns and keep the per-field detail
  cheminv eval --reference checked.yaml --state extracted.yaml \
    --fields "Chemical Name,CAS Number" --report eval.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := storage.New()
			if err := loadState(ref, reference); err != nil {
				return err
			}
			if ref.Len() == 0 {
				return fmt.Errorf("reference inventory %s has no records", reference)
			}
			candidate := storage.New()
			if err := loadState(candidate, statePath); err != nil {
				return err
			}

			r := evaluation.Evaluate(ref.Records(), candidate.Records(), splitFields(fields))
			r.Reference = reference
			r.Candidate = statePath
			r.PrintSummary(cmd.OutOrStdout())

			if report == "" {
				return nil
			}
			f, err := os.Create(report)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			if err := r.SaveYAML(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write report file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", report)
			return nil
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "YAML inventory holding the correct values")
	cmd.Flags().StringVar(&statePath, "state", "inventory.yaml", "YAML inventory to score")
	cmd.Flags().StringVar(&fields, "fields", "", "Comma-separated columns to score (default: every reference column)")
	cmd.Flags().StringVar(&report, "report", "", "Write the detailed comparison to this YAML file")
	_ = cmd.MarkFlagRequired("reference")

	return cmd
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
