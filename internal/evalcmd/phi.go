package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
	"github.com/lehigh-university-libraries/phieval/internal/eval/dataset"
	"github.com/lehigh-university-libraries/phieval/internal/eval/filter"
	"github.com/lehigh-university-libraries/phieval/internal/eval/phi"
	"github.com/lehigh-university-libraries/phieval/internal/eval/results"
)

type phiOptions struct {
	goldPath   string
	systemPath string

	filter         string
	filterFile     string
	conjunctive    bool
	conjunctiveSet bool
	invert         bool
	invertSet      bool

	verbose     bool
	concurrency int
	outputJSON  string
	outputDir   string
}

func executePHI(ctx context.Context, w io.Writer, opts phiOptions) error {
	slog.Info("Starting PHI evaluation",
		"gold", opts.goldPath,
		"system", opts.systemPath,
		"concurrency", opts.concurrency)

	vocab := annotation.DefaultVocabulary()

	spec, err := buildFilterSpec(opts, vocab)
	if err != nil {
		return fmt.Errorf("failed to build filter: %w", err)
	}

	gold, systems, err := loadPHICorpora(opts.goldPath, opts.systemPath)
	if err != nil {
		return err
	}

	slog.Info("Corpora loaded", "gold_documents", len(gold), "systems", len(systems))

	scoreOpts := []phi.Option{
		phi.WithVerbose(opts.verbose),
		phi.WithConcurrency(opts.concurrency),
		phi.WithVocabulary(vocab),
		phi.WithLogger(slog.Default()),
	}
	if spec != nil {
		scoreOpts = append(scoreOpts, phi.WithFilter(*spec))
	}

	systemIDs := make([]string, 0, len(systems))
	for id := range systems {
		systemIDs = append(systemIDs, id)
	}
	sort.Strings(systemIDs)

	records := make([]*results.RunRecord, 0, len(systemIDs))
	for _, sysID := range systemIDs {
		slog.Info("Scoring system", "system_id", sysID, "documents", len(systems[sysID]))

		report, err := phi.Score(ctx, gold, systems[sysID], scoreOpts...)
		if err != nil {
			if sysID != "" {
				return fmt.Errorf("failed to score system %q: %w", sysID, err)
			}
			return fmt.Errorf("failed to score system: %w", err)
		}

		if err := results.WritePHIText(w, sysID, report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		records = append(records, results.NewPHIRecord(results.RunConfig{
			GoldPath:    opts.goldPath,
			SystemPath:  opts.systemPath,
			SystemID:    sysID,
			Filter:      spec,
			Verbose:     opts.verbose,
			Concurrency: opts.concurrency,
		}, report))
	}

	return saveRecords(records, opts.outputJSON, opts.outputDir)
}

// loadPHICorpora pairs two single XML files directly; otherwise the system
// side is grouped by system id
func loadPHICorpora(goldPath, systemPath string) (annotation.Corpus, map[string]annotation.Corpus, error) {
	if dataset.IsSingleFile(goldPath) && dataset.IsSingleFile(systemPath) {
		goldDocs, err := dataset.NewLoader(goldPath).Load()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load gold standard: %w", err)
		}
		systemDocs, err := dataset.NewLoader(systemPath).Load()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load system output: %w", err)
		}

		id := goldDocs[0].ID
		gold := annotation.Corpus{id: goldDocs[0].Annotations}
		system := annotation.Corpus{id: systemDocs[0].Annotations}
		return gold, map[string]annotation.Corpus{systemDocs[0].SystemID: system}, nil
	}

	gold, err := dataset.NewLoader(goldPath).LoadCorpus()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load gold standard: %w", err)
	}
	systems, err := dataset.NewLoader(systemPath).LoadSystems()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load system output: %w", err)
	}
	if len(systems) == 0 {
		systems = map[string]annotation.Corpus{"": {}}
	}
	return gold, systems, nil
}

// buildFilterSpec combines --filter or --filter-file with --conjunctive and
// --invert. It returns nil when no filter was requested.
func buildFilterSpec(opts phiOptions, vocab annotation.Vocabulary) (*filter.Spec, error) {
	var spec filter.Spec

	switch {
	case opts.filterFile != "":
		loaded, err := filter.LoadFromFile(opts.filterFile)
		if err != nil {
			return nil, err
		}
		spec = loaded
	case opts.filter != "":
		criteria, err := filter.ParseCriteria(opts.filter, vocab)
		if err != nil {
			return nil, err
		}
		spec.Criteria = criteria
	default:
		if opts.conjunctiveSet || opts.invertSet {
			return nil, fmt.Errorf("--conjunctive and --invert need --filter or --filter-file")
		}
		return nil, nil
	}

	if opts.conjunctiveSet {
		spec.Mode = filter.Or
		if opts.conjunctive {
			spec.Mode = filter.And
		}
	}
	if opts.invertSet {
		spec.Invert = opts.invert
	}

	// Compile once here so a bad spec fails before any corpus is loaded.
	if _, err := spec.Compile(vocab); err != nil {
		return nil, err
	}
	return &spec, nil
}

// saveRecords writes the JSON file and YAML run records that were asked for
func saveRecords(records []*results.RunRecord, outputJSON, outputDir string) error {
	if outputJSON != "" {
		var payload any = records
		if len(records) == 1 {
			payload = records[0]
		}
		if err := results.SaveJSON(outputJSON, payload); err != nil {
			return err
		}
		slog.Info("Results saved", "json", outputJSON)
	}

	if outputDir != "" {
		for _, record := range records {
			path, err := results.SaveToYAML(outputDir, record)
			if err != nil {
				return err
			}
			slog.Info("Run record saved", "path", path, "run_id", record.RunID)
		}
	}
	return nil
}
