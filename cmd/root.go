package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions carries the flags shared by every subcommand
type rootOptions struct {
	configFile  string
	verbose     bool
	provider    string
	model       string
	concurrency int

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cheminv",
		Short: "Build a chemical inventory spreadsheet from photos of container labels",
		Long: `cheminv reads photographs of chemical and product labels with a vision-capable
LLM (Anthropic by default; OpenAI, Ollama and Gemini are also supported),
collects the fields found on each label into an inventory, and exports it
as a spreadsheet.

Chemicals without a label photo can be looked up by CAS number or name.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("provider") {
				cfg.Provider = opts.provider
			}
			if flags.Changed("model") {
				cfg.Model = opts.model
			}
			if flags.Changed("concurrency") {
				cfg.Concurrency = opts.concurrency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (default ./config.yaml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&opts.provider, "provider", "", "LLM provider: anthropic, openai, ollama or gemini")
	pf.StringVar(&opts.model, "model", "", "Model name (provider default when empty)")
	pf.IntVar(&opts.concurrency, "concurrency", 1, "Number of images sent to the model at once")

	// Add subcommands
	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newRecordsCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newEvalCmd())

	return cmd
}
