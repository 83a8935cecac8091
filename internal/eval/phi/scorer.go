// Package phi scores span-level PHI tagging against a gold standard.
//
// Every gold document is matched in strict and relaxed mode, once over all
// tags (after the optional user filter) and once over the HIPAA subset.
// The four resulting partition sequences are aggregated independently.
package phi

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
	"github.com/lehigh-university-libraries/phieval/internal/eval/filter"
	"github.com/lehigh-university-libraries/phieval/internal/eval/match"
	"github.com/lehigh-university-libraries/phieval/internal/eval/metrics"
)

var (
	// ErrEmptyCorpus is returned when the gold corpus has no documents.
	ErrEmptyCorpus = errors.New("empty gold corpus")

	// ErrUnknownDocument is returned when the system corpus holds a document the gold corpus lacks.
	ErrUnknownDocument = errors.New("system document not in gold corpus")
)

// Regime names, in report order.
const (
	RegimeStrict       = "Strict"
	RegimeRelaxed      = "Relaxed"
	RegimeHIPAAStrict  = "HIPAA Strict"
	RegimeHIPAARelaxed = "HIPAA Relaxed"
)

type regimeDef struct {
	name  string
	mode  match.Mode
	hipaa bool
}

var regimes = []regimeDef{
	{RegimeStrict, match.Strict, false},
	{RegimeRelaxed, match.Relaxed, false},
	{RegimeHIPAAStrict, match.Strict, true},
	{RegimeHIPAARelaxed, match.Relaxed, true},
}

// RegimeNames returns the regime names in report order.
func RegimeNames() []string {
	names := make([]string, len(regimes))
	for i, r := range regimes {
		names[i] = r.name
	}
	return names
}

// Regime is the corpus-level result of one strictness/subset combination.
// Empty is set when no document kept an annotation, in which case Summary is zero.
type Regime struct {
	Name    string          `json:"name" yaml:"name"`
	Empty   bool            `json:"empty,omitempty" yaml:"empty,omitempty"`
	Summary metrics.Summary `json:"summary" yaml:"summary"`
}

// DocumentRegime is one document's outcome in one regime.
type DocumentRegime struct {
	Name      string          `json:"name" yaml:"name"`
	Counts    metrics.Counts  `json:"counts" yaml:"counts"`
	Record    metrics.Record  `json:"record" yaml:"record"`
	Partition match.Partition `json:"partition" yaml:"partition"`
}

// DocumentResult holds the per-regime breakdown of one document.
type DocumentResult struct {
	ID      string           `json:"id" yaml:"id"`
	Regimes []DocumentRegime `json:"regimes" yaml:"regimes"`
}

// Report is the Track 1 result.
type Report struct {
	GoldDocuments   int              `json:"gold_documents" yaml:"gold_documents"`
	SystemDocuments int              `json:"system_documents" yaml:"system_documents"`
	Filter          *filter.Spec     `json:"filter,omitempty" yaml:"filter,omitempty"`
	Regimes         []Regime         `json:"regimes" yaml:"regimes"`
	Documents       []DocumentResult `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// Regime returns the named regime.
func (r *Report) Regime(name string) (Regime, bool) {
	for _, reg := range r.Regimes {
		if reg.Name == name {
			return reg, true
		}
	}
	return Regime{}, false
}

// Score matches every gold document against its system counterpart and
// aggregates the four regimes. System documents missing from gold are an
// error; gold documents missing from the system corpus are scored against
// an empty system set.
func Score(ctx context.Context, gold, system annotation.Corpus, opts ...Option) (*Report, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(gold) == 0 {
		return nil, errors.WithHint(ErrEmptyCorpus, "check the gold standard path")
	}
	if err := checkDocuments(gold, system); err != nil {
		return nil, err
	}

	all, hipaa, err := predicates(cfg)
	if err != nil {
		return nil, err
	}

	ids := gold.DocumentIDs()
	outcomes := make([][]match.Partition, len(ids))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, cfg.concurrency)

schedule:
	for i, id := range ids {
		select {
		case <-ctx.Done():
			break schedule
		case semaphore <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(idx int, id string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			outcomes[idx] = scoreDocument(gold[id], system[id], all, hipaa)
			cfg.logger.Debug("Matched document",
				"id", id,
				"strict_tp", outcomes[idx][0].TP(),
				"relaxed_tp", outcomes[idx][1].TP())
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		GoldDocuments:   len(gold),
		SystemDocuments: len(system),
		Filter:          cfg.filter,
		Regimes:         make([]Regime, 0, len(regimes)),
	}

	for r, def := range regimes {
		partitions := make([]match.Partition, len(ids))
		for i := range ids {
			partitions[i] = outcomes[i][r]
		}

		summary, err := metrics.Aggregate(partitions)
		switch {
		case errors.Is(err, metrics.ErrEmptyCorpus):
			cfg.logger.Debug("Regime has no annotations", "regime", def.name)
			report.Regimes = append(report.Regimes, Regime{Name: def.name, Empty: true})
		case err != nil:
			return nil, errors.Wrapf(err, "aggregate %s", def.name)
		default:
			report.Regimes = append(report.Regimes, Regime{Name: def.name, Summary: summary})
		}
	}

	if cfg.verbose {
		report.Documents = make([]DocumentResult, len(ids))
		for i, id := range ids {
			doc := DocumentResult{ID: id, Regimes: make([]DocumentRegime, len(regimes))}
			for r, def := range regimes {
				counts := metrics.CountsOf(outcomes[i][r])
				doc.Regimes[r] = DocumentRegime{
					Name:      def.name,
					Counts:    counts,
					Record:    counts.Record(),
					Partition: outcomes[i][r],
				}
			}
			report.Documents[i] = doc
		}
	}

	return report, nil
}

func scoreDocument(gold, system annotation.DocumentSet, all, hipaa filter.Predicate) []match.Partition {
	goldAll, systemAll := filter.Apply(gold, all), filter.Apply(system, all)
	goldHIPAA, systemHIPAA := filter.Apply(gold, hipaa), filter.Apply(system, hipaa)

	out := make([]match.Partition, len(regimes))
	for r, def := range regimes {
		if def.hipaa {
			out[r] = match.Match(goldHIPAA, systemHIPAA, def.mode)
		} else {
			out[r] = match.Match(goldAll, systemAll, def.mode)
		}
	}
	return out
}

// predicates compiles the user filter and the HIPAA filter layered on top of it.
func predicates(cfg config) (all, hipaa filter.Predicate, err error) {
	hipaaOnly, err := filter.HIPAA().Compile(cfg.vocabulary)
	if err != nil {
		return nil, nil, errors.Wrap(err, "compile HIPAA filter")
	}
	if cfg.filter == nil {
		return filter.All{}, hipaaOnly, nil
	}

	all, err = cfg.filter.Compile(cfg.vocabulary)
	if err != nil {
		return nil, nil, err
	}
	return all, filter.AndGroup{all, hipaaOnly}, nil
}

func checkDocuments(gold, system annotation.Corpus) error {
	var unknown []string
	for _, id := range system.DocumentIDs() {
		if _, ok := gold[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return errors.WithHint(
			errors.Wrapf(ErrUnknownDocument, "%d document(s): %s", len(unknown), strings.Join(unknown, ", ")),
			"system and gold documents are paired by file name")
	}

	for _, id := range gold.DocumentIDs() {
		if err := gold[id].Validate(); err != nil {
			return errors.Wrapf(err, "gold document %s", id)
		}
	}
	for _, id := range system.DocumentIDs() {
		if err := system[id].Validate(); err != nil {
			return errors.Wrapf(err, "system document %s", id)
		}
	}
	return nil
}
