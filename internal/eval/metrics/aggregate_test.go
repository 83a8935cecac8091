package metrics

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
	"github.com/lehigh-university-libraries/phieval/internal/eval/match"
)

// partition builds a partition with the given counts of placeholder annotations
func partition(tp, fp, fn int) match.Partition {
	var p match.Partition
	for i := 0; i < tp; i++ {
		a := annotation.Annotation{Tag: "NAME", Start: i, End: i + 1}
		p.TruePositives = append(p.TruePositives, match.Pair{Gold: a, System: a})
	}
	for i := 0; i < fp; i++ {
		p.FalsePositives = append(p.FalsePositives, annotation.Annotation{Tag: "DATE", Start: i, End: i + 1})
	}
	for i := 0; i < fn; i++ {
		p.FalseNegatives = append(p.FalseNegatives, annotation.Annotation{Tag: "AGE", Start: i, End: i + 1})
	}
	return p
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregate(t *testing.T) {
	partitions := []match.Partition{
		partition(2, 0, 0), // P=1.0 R=1.0
		partition(1, 1, 3), // P=0.5 R=0.25
		partition(0, 0, 0), // no annotations, left out of the macro sample
	}

	summary, err := Aggregate(partitions)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if summary.SupportDocs != 2 {
		t.Errorf("Expected SupportDocs=2, got %d", summary.SupportDocs)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"macro precision", summary.Macro.Precision, 0.75},
		{"macro recall", summary.Macro.Recall, 0.625},
		{"macro f1", summary.Macro.F1, 2 * 0.75 * 0.625 / (0.75 + 0.625)},
		{"macro precision std dev", summary.Macro.PrecisionStdDev, math.Sqrt(0.125)},
		{"macro recall std dev", summary.Macro.RecallStdDev, math.Sqrt(0.28125)},
		{"micro precision", summary.Micro.Precision, 0.75},
		{"micro recall", summary.Micro.Recall, 0.5},
		{"micro f1", summary.Micro.F1, 0.6},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("Expected %s=%.6f, got %.6f", c.name, c.want, c.got)
		}
	}

	if summary.MicroCounts != (Counts{TP: 3, FP: 1, FN: 3}) {
		t.Errorf("Unexpected micro counts: %+v", summary.MicroCounts)
	}
}

func TestAggregateSingleDocumentHasZeroStdDev(t *testing.T) {
	summary, err := Aggregate([]match.Partition{partition(1, 1, 1)})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if summary.Macro.Precision != 0.5 || summary.Macro.Recall != 0.5 {
		t.Errorf("Expected macro P=R=0.5, got P=%.3f R=%.3f", summary.Macro.Precision, summary.Macro.Recall)
	}
	if summary.Macro.PrecisionStdDev != 0 || summary.Macro.RecallStdDev != 0 {
		t.Errorf("Expected zero std dev for a single document, got %+v", summary.Macro)
	}
}

func TestAggregateEmptyCorpus(t *testing.T) {
	tests := []struct {
		name       string
		partitions []match.Partition
	}{
		{name: "no documents", partitions: nil},
		{name: "only empty documents", partitions: []match.Partition{partition(0, 0, 0), partition(0, 0, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.partitions)
			if !errors.Is(err, ErrEmptyCorpus) {
				t.Errorf("Expected ErrEmptyCorpus, got %v", err)
			}
		})
	}
}

func TestMicroIndependentOfMacro(t *testing.T) {
	// Micro pooling works on samples the macro average refuses.
	record, counts := Micro([]match.Partition{partition(0, 0, 0)})
	if record != (Record{}) || counts != (Counts{}) {
		t.Errorf("Expected zero micro record, got %+v %+v", record, counts)
	}

	partitions := []match.Partition{partition(3, 1, 0), partition(0, 2, 2)}
	record, _ = Micro(partitions)
	summary, err := Aggregate(partitions)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if record != summary.Micro {
		t.Errorf("Micro() = %+v, Aggregate().Micro = %+v", record, summary.Micro)
	}
}

func TestCountsRecord(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   Record
	}{
		{name: "no predictions", counts: Counts{FN: 4}, want: Record{}},
		{name: "no gold", counts: Counts{FP: 2}, want: Record{}},
		{name: "half right", counts: Counts{TP: 1, FP: 1, FN: 1}, want: Record{Precision: 0.5, Recall: 0.5, F1: 0.5}},
		{name: "perfect", counts: Counts{TP: 7}, want: Record{Precision: 1, Recall: 1, F1: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.counts.Record()
			if got != tt.want {
				t.Errorf("%+v.Record() = %+v, want %+v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestCalculateAverage(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		expected float64
	}{
		{
			name:     "normal scores",
			scores:   []float64{0.5, 1.0, 0.75},
			expected: 0.75,
		},
		{
			name:     "empty scores",
			scores:   []float64{},
			expected: 0.0,
		},
		{
			name:     "single score",
			scores:   []float64{0.75},
			expected: 0.75,
		},
		{
			name:     "zeros",
			scores:   []float64{0.0, 0.0, 0.0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateAverage(tt.scores)
			if result != tt.expected {
				t.Errorf("calculateAverage(%v) = %.2f, want %.2f",
					tt.scores, result, tt.expected)
			}
		})
	}
}

func TestSampleStdDev(t *testing.T) {
	scores := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := sampleStdDev(scores, calculateAverage(scores))
	want := math.Sqrt(32.0 / 7.0)
	if !almostEqual(got, want) {
		t.Errorf("sampleStdDev = %.6f, want %.6f", got, want)
	}
}
