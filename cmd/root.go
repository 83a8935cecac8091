package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phieval",
		Short: "Scoring tool for clinical de-identification and severity classification",
		Long: `Phieval scores clinical NLP system output against gold standard annotations.

It measures span level PHI tagging (strict and relaxed matching, all tags and
the HIPAA subset) and document level positive valence severity classification.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newEvalCmd())

	return cmd
}
