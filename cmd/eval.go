package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/phieval/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "De-identification and severity evaluation tools",
		Long: `Evaluation tools for scoring system output against a gold standard.

Supports span level PHI scoring, document level severity scoring, corpus
inspection, and re-rendering saved run records.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewPHICmd())
	cmd.AddCommand(evalcmd.NewSeverityCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())

	return cmd
}
