package evalcmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/phieval/internal/eval/dataset"
	"github.com/lehigh-university-libraries/phieval/internal/eval/results"
	"github.com/lehigh-university-libraries/phieval/internal/eval/severity"
)

type severityOptions struct {
	goldPath   string
	systemPath string
	verbose    bool
	outputJSON string
	outputDir  string
}

func executeSeverity(w io.Writer, opts severityOptions) error {
	slog.Info("Starting severity evaluation", "gold", opts.goldPath, "system", opts.systemPath)

	gold, err := dataset.NewLoader(opts.goldPath).LoadSeverities()
	if err != nil {
		return fmt.Errorf("failed to load gold standard: %w", err)
	}
	system, err := dataset.NewLoader(opts.systemPath).LoadSeverities()
	if err != nil {
		return fmt.Errorf("failed to load system output: %w", err)
	}

	slog.Info("Labels loaded", "gold_documents", len(gold), "system_documents", len(system))

	report, err := severity.Score(gold, system, opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to score severity: %w", err)
	}

	if err := results.WriteSeverityText(w, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	record := results.NewSeverityRecord(results.RunConfig{
		GoldPath:   opts.goldPath,
		SystemPath: opts.systemPath,
		Verbose:    opts.verbose,
	}, report)

	return saveRecords([]*results.RunRecord{record}, opts.outputJSON, opts.outputDir)
}
