package evalcmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
)

// Environment variables consulted when the matching flag is not set
const (
	envConcurrency = "PHIEVAL_CONCURRENCY"
	envOutputDir   = "PHIEVAL_OUTPUT_DIR"
)

// NewPHICmd creates the phi command for Track 1 span scoring
func NewPHICmd() *cobra.Command {
	var opts phiOptions

	cmd := &cobra.Command{
		Use:   "phi GOLD SYSTEM",
		Short: "Score PHI span annotations against a gold standard",
		Long: `Score de-identification output against gold standard PHI annotations.

GOLD and SYSTEM may be directories of standoff XML files (XXX-YY.xml), single
XML files, or .jsonl / .parquet annotation tables. A SYSTEM directory holding
the output of several systems (XXX-YY<system>.xml) is scored once per system.

Every run reports four regimes: Strict and Relaxed matching over all tags,
and the same two over the HIPAA subset. Relaxed matching accepts an end
offset that differs by up to two characters.`,
		Example: `  # Score a system directory against the gold standard
  phieval eval phi ./gold ./system

  # Only names and cities, with per-document detail
  phieval eval phi --filter NAME,LOCATION/CITY -v ./gold ./system

  # Everything except dates, saving a run record
  phieval eval phi --filter DATE --invert --output-dir ./evals ./gold ./system`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.verbose)

			if err := concurrencyFromEnv(cmd, &opts.concurrency); err != nil {
				return err
			}
			outputDirFromEnv(cmd, &opts.outputDir)

			opts.goldPath, opts.systemPath = args[0], args[1]
			opts.conjunctiveSet = cmd.Flags().Changed("conjunctive")
			opts.invertSet = cmd.Flags().Changed("invert")

			return executePHI(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.filter, "filter", "", "Comma separated tags, attribute values or TAG/ATTRIBUTE pairs to keep")
	cmd.Flags().StringVar(&opts.filterFile, "filter-file", "", "YAML filter spec (criteria, mode, invert)")
	cmd.Flags().BoolVar(&opts.conjunctive, "conjunctive", false, "Combine filters with AND instead of OR")
	cmd.Flags().BoolVar(&opts.invert, "invert", false, "Keep only annotations the filter rejects")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Per-document detail and debug logging")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", runtime.NumCPU(), "Number of documents matched in parallel")
	cmd.Flags().StringVar(&opts.outputJSON, "output-json", "", "Path to output JSON results file")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for the YAML run record")
	cmd.MarkFlagsMutuallyExclusive("filter", "filter-file")

	return cmd
}

// NewSeverityCmd creates the severity command for Track 2 classification scoring
func NewSeverityCmd() *cobra.Command {
	var opts severityOptions

	cmd := &cobra.Command{
		Use:   "severity GOLD SYSTEM",
		Short: "Score positive valence severity labels against a gold standard",
		Long: `Score document level severity classification (ABSENT, MILD, MODERATE, SEVERE).

Each class present in the gold standard is scored as 100 * (1 - MAE / 3) over
the documents gold labels with that class; the overall score is the mean of
the class scores. GOLD and SYSTEM are directories holding the same XML file
names, or .jsonl / .parquet tables of {doc_id, severity} rows.`,
		Example: `  # Score a run
  phieval eval severity ./gold ./system

  # Per-record errors and a Wilcoxon signed-rank p-value
  phieval eval severity -v ./gold ./system`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.verbose)
			outputDirFromEnv(cmd, &opts.outputDir)

			opts.goldPath, opts.systemPath = args[0], args[1]
			return executeSeverity(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Per-record table and debug logging")
	cmd.Flags().StringVar(&opts.outputJSON, "output-json", "", "Path to output JSON results file")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for the YAML run record")

	return cmd
}

// NewReportCmd creates the report command for rendering saved run records
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a saved run record",
		Long:  `Render a YAML run record written by --output-dir as text, JSON or CSV.`,
		Example: `  # Print the text report again
  phieval eval report --results ./evals/phi-2025-01-02_10-00-00.yaml

  # Export to CSV
  phieval eval report --results ./evals/severity-2025-01-02_10-00-00.yaml --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), resultsPath, format)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to a YAML run record (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")
	_ = cmd.MarkFlagRequired("results")

	return cmd
}

// setupLogging installs the default slog handler; verbose enables debug output
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func concurrencyFromEnv(cmd *cobra.Command, concurrency *int) error {
	if cmd.Flags().Changed("concurrency") {
		return nil
	}
	v := os.Getenv(envConcurrency)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid %s %q: must be a positive integer", envConcurrency, v)
	}
	*concurrency = n
	return nil
}

func outputDirFromEnv(cmd *cobra.Command, outputDir *string) {
	if cmd.Flags().Changed("output-dir") {
		return
	}
	if v := os.Getenv(envOutputDir); v != "" {
		*outputDir = v
	}
}
