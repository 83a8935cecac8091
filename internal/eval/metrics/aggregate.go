package metrics

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/lehigh-university-libraries/phieval/internal/eval/match"
)

// ErrEmptyCorpus is returned when there are no documents to average over.
var ErrEmptyCorpus = errors.New("empty corpus")

// Counts holds true positive, false positive and false negative totals
type Counts struct {
	TP int `json:"tp" yaml:"tp"`
	FP int `json:"fp" yaml:"fp"`
	FN int `json:"fn" yaml:"fn"`
}

// CountsOf returns the counts of a single partition
func CountsOf(p match.Partition) Counts {
	return Counts{TP: p.TP(), FP: p.FP(), FN: p.FN()}
}

// Add returns the element-wise sum of c and o
func (c Counts) Add(o Counts) Counts {
	return Counts{TP: c.TP + o.TP, FP: c.FP + o.FP, FN: c.FN + o.FN}
}

// Record computes precision, recall and F1 from the counts.
// Zero denominators yield 0 rather than NaN.
func (c Counts) Record() Record {
	var r Record
	if c.TP+c.FP > 0 {
		r.Precision = float64(c.TP) / float64(c.TP+c.FP)
	}
	if c.TP+c.FN > 0 {
		r.Recall = float64(c.TP) / float64(c.TP+c.FN)
	}
	r.F1 = F1(r.Precision, r.Recall)
	return r
}

// Record is a precision/recall/F1 triple
type Record struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
}

// MacroStats holds per-document averages.
// F1 is the harmonic mean of the averaged precision and recall.
type MacroStats struct {
	Precision       float64 `json:"precision" yaml:"precision"`
	Recall          float64 `json:"recall" yaml:"recall"`
	F1              float64 `json:"f1" yaml:"f1"`
	PrecisionStdDev float64 `json:"precision_std_dev" yaml:"precision_std_dev"`
	RecallStdDev    float64 `json:"recall_std_dev" yaml:"recall_std_dev"`
}

// Summary is the aggregate over a corpus for one regime
type Summary struct {
	Macro       MacroStats `json:"macro" yaml:"macro"`
	Micro       Record     `json:"micro" yaml:"micro"`
	MicroCounts Counts     `json:"micro_counts" yaml:"micro_counts"`
	SupportDocs int        `json:"support_docs" yaml:"support_docs"`
}

// F1 returns the harmonic mean of p and r, or 0 when both are 0
func F1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Aggregate computes macro and micro statistics over per-document partitions.
// Documents with no gold and no system annotations are left out of the sample.
func Aggregate(partitions []match.Partition) (Summary, error) {
	macro, support, err := Macro(partitions)
	if err != nil {
		return Summary{}, err
	}

	micro, counts := Micro(partitions)

	return Summary{
		Macro:       macro,
		Micro:       micro,
		MicroCounts: counts,
		SupportDocs: support,
	}, nil
}

// Macro averages per-document precision and recall and reports the
// sample standard deviation of each. It also returns the sample size.
func Macro(partitions []match.Partition) (MacroStats, int, error) {
	precisions := make([]float64, 0, len(partitions))
	recalls := make([]float64, 0, len(partitions))

	for _, p := range partitions {
		if p.Empty() {
			continue
		}
		r := CountsOf(p).Record()
		precisions = append(precisions, r.Precision)
		recalls = append(recalls, r.Recall)
	}

	if len(precisions) == 0 {
		return MacroStats{}, 0, errors.WithHint(
			errors.Wrap(ErrEmptyCorpus, "cannot average over zero documents"),
			"no document has a gold or system annotation left after filtering")
	}

	stats := MacroStats{
		Precision: calculateAverage(precisions),
		Recall:    calculateAverage(recalls),
	}
	stats.F1 = F1(stats.Precision, stats.Recall)
	stats.PrecisionStdDev = sampleStdDev(precisions, stats.Precision)
	stats.RecallStdDev = sampleStdDev(recalls, stats.Recall)

	return stats, len(precisions), nil
}

// Micro pools counts across all documents before computing the metrics
func Micro(partitions []match.Partition) (Record, Counts) {
	var total Counts
	for _, p := range partitions {
		total = total.Add(CountsOf(p))
	}
	return total.Record(), total
}

// calculateAverage calculates the average of a slice of scores
func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}

	return sum / float64(len(scores))
}

// sampleStdDev is the n-1 standard deviation; a single sample has none
func sampleStdDev(scores []float64, mean float64) float64 {
	if len(scores) < 2 {
		return 0.0
	}

	var sumSquares float64
	for _, score := range scores {
		diff := score - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(scores)-1))
}
