// Package severity scores document-level positive valence classification.
//
// Each gold class c is scored as 100 * (1 - MAE_c / 3), where MAE_c is the
// mean absolute ordinal error over documents whose gold label is c. The
// overall score is the unweighted mean over classes present in gold.
package severity

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

var (
	// ErrDocumentMismatch is returned when gold and system label different documents.
	ErrDocumentMismatch = errors.New("gold and system document sets differ")

	// ErrInvalidSeverity is returned for labels outside the ordinal scale.
	ErrInvalidSeverity = annotation.ErrInvalidSeverity

	// ErrEmptyCorpus is returned when there is nothing to score.
	ErrEmptyCorpus = errors.New("empty severity corpus")
)

// Class is the result for one ordinal label.
type Class struct {
	Severity      annotation.Severity `json:"severity" yaml:"severity"`
	Name          string              `json:"name" yaml:"name"`
	GoldSupport   int                 `json:"gold_support" yaml:"gold_support"`
	SystemSupport int                 `json:"system_support" yaml:"system_support"`
	Score         float64             `json:"score" yaml:"score"`
	Scored        bool                `json:"scored" yaml:"scored"`
}

// Document is one verbose record.
type Document struct {
	ID     string              `json:"id" yaml:"id"`
	Gold   annotation.Severity `json:"gold" yaml:"gold"`
	System annotation.Severity `json:"system" yaml:"system"`
	Marker string              `json:"marker" yaml:"marker"`
}

// Distance returns the absolute ordinal distance between the two labels.
func (d Document) Distance() int {
	return abs(int(d.Gold) - int(d.System))
}

// Report is the Track 2 result.
type Report struct {
	Classes         []Class    `json:"classes" yaml:"classes"`
	Overall         float64    `json:"overall" yaml:"overall"`
	GoldDocuments   int        `json:"gold_documents" yaml:"gold_documents"`
	SystemDocuments int        `json:"system_documents" yaml:"system_documents"`
	Documents       []Document `json:"documents,omitempty" yaml:"documents,omitempty"`

	// WilcoxonP is the two-sided signed-rank p-value; nil when every
	// prediction equals its gold label or the report is not verbose.
	WilcoxonP *float64 `json:"wilcoxon_p,omitempty" yaml:"wilcoxon_p,omitempty"`
}

// Score compares system labels to gold labels. Both maps must cover the
// same documents.
func Score(gold, system map[string]annotation.Severity, verbose bool) (*Report, error) {
	if len(gold) == 0 && len(system) == 0 {
		return nil, ErrEmptyCorpus
	}
	if err := checkDocuments(gold, system); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(gold))
	for id := range gold {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if g := gold[id]; !g.Valid() {
			return nil, errors.Wrapf(ErrInvalidSeverity, "gold document %s has label %d", id, int(g))
		}
		if s := system[id]; !s.Valid() {
			return nil, errors.Wrapf(ErrInvalidSeverity, "system document %s has label %d", id, int(s))
		}
	}

	errorSums := make(map[annotation.Severity]int)
	report := &Report{GoldDocuments: len(gold), SystemDocuments: len(system)}
	classes := make(map[annotation.Severity]*Class)
	for _, s := range annotation.Severities() {
		report.Classes = append(report.Classes, Class{Severity: s, Name: strings.ToLower(s.String())})
	}
	for i := range report.Classes {
		classes[report.Classes[i].Severity] = &report.Classes[i]
	}

	for _, id := range ids {
		g, s := gold[id], system[id]
		classes[g].GoldSupport++
		classes[s].SystemSupport++
		errorSums[g] += abs(int(g) - int(s))
	}

	var total float64
	var scored int
	for i := range report.Classes {
		c := &report.Classes[i]
		if c.GoldSupport == 0 {
			continue
		}
		mae := float64(errorSums[c.Severity]) / float64(c.GoldSupport)
		c.Score = 100 * (1 - mae/float64(annotation.MaxSeverityDistance))
		c.Scored = true
		total += c.Score
		scored++
	}
	report.Overall = total / float64(scored)

	if verbose {
		diffs := make([]float64, 0, len(ids))
		for _, id := range ids {
			d := Document{ID: id, Gold: gold[id], System: system[id]}
			d.Marker = strings.Repeat("*", d.Distance())
			report.Documents = append(report.Documents, d)
			diffs = append(diffs, float64(int(d.Gold)-int(d.System)))
		}
		if p, ok := WilcoxonSignedRank(diffs); ok {
			report.WilcoxonP = &p
		}
	}

	return report, nil
}

func checkDocuments(gold, system map[string]annotation.Severity) error {
	var onlyGold, onlySystem []string
	for id := range gold {
		if _, ok := system[id]; !ok {
			onlyGold = append(onlyGold, id)
		}
	}
	for id := range system {
		if _, ok := gold[id]; !ok {
			onlySystem = append(onlySystem, id)
		}
	}
	if len(onlyGold) == 0 && len(onlySystem) == 0 {
		return nil
	}

	sort.Strings(onlyGold)
	sort.Strings(onlySystem)
	return errors.WithHint(
		errors.Wrapf(ErrDocumentMismatch, "missing from system: [%s], missing from gold: [%s]",
			strings.Join(onlyGold, ", "), strings.Join(onlySystem, ", ")),
		"gold and system folders must contain the same XML files")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
