package severity

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

func TestScore(t *testing.T) {
	gold := map[string]annotation.Severity{
		"A": annotation.Absent,
		"B": annotation.Mild,
		"C": annotation.Moderate,
		"D": annotation.Severe,
	}
	system := map[string]annotation.Severity{
		"A": annotation.Mild,
		"B": annotation.Mild,
		"C": annotation.Moderate,
		"D": annotation.Mild,
	}

	report, err := Score(gold, system, false)
	require.NoError(t, err)
	require.Len(t, report.Classes, 4)

	want := []struct {
		name          string
		goldSupport   int
		systemSupport int
		score         float64
	}{
		{"absent", 1, 0, 100 * (1 - 1.0/3)},
		{"mild", 1, 3, 100},
		{"moderate", 1, 1, 100},
		{"severe", 1, 0, 100 * (1 - 2.0/3)},
	}
	for i, w := range want {
		c := report.Classes[i]
		assert.Equal(t, w.name, c.Name)
		assert.Equal(t, w.goldSupport, c.GoldSupport, w.name)
		assert.Equal(t, w.systemSupport, c.SystemSupport, w.name)
		assert.InDelta(t, w.score, c.Score, 1e-9, w.name)
		assert.True(t, c.Scored, w.name)
	}

	assert.InDelta(t, 75.0, report.Overall, 1e-9)
	assert.Equal(t, 4, report.GoldDocuments)
	assert.Nil(t, report.Documents)
	assert.Nil(t, report.WilcoxonP)
}

func TestScoreExtremes(t *testing.T) {
	gold := map[string]annotation.Severity{"A": annotation.Absent, "B": annotation.Severe}

	perfect, err := Score(gold, gold, false)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, perfect.Overall, 1e-9)

	flipped := map[string]annotation.Severity{"A": annotation.Severe, "B": annotation.Absent}
	worst, err := Score(gold, flipped, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, worst.Overall, 1e-9)
}

func TestScoreUnsupportedClassesExcluded(t *testing.T) {
	gold := map[string]annotation.Severity{"A": annotation.Mild, "B": annotation.Mild}
	system := map[string]annotation.Severity{"A": annotation.Mild, "B": annotation.Severe}

	report, err := Score(gold, system, false)
	require.NoError(t, err)

	// Only MILD is present in gold: (0 + 2) / 2 = 1 → 100 * (1 - 1/3).
	assert.InDelta(t, 100*(1-1.0/3), report.Overall, 1e-9)
	assert.False(t, report.Classes[annotation.Absent].Scored)
	assert.False(t, report.Classes[annotation.Severe].Scored)
	assert.Equal(t, 1, report.Classes[annotation.Severe].SystemSupport)
}

func TestScoreVerbose(t *testing.T) {
	gold := map[string]annotation.Severity{"D": annotation.Severe, "A": annotation.Absent, "B": annotation.Mild, "C": annotation.Moderate}
	system := map[string]annotation.Severity{"A": annotation.Mild, "B": annotation.Mild, "C": annotation.Moderate, "D": annotation.Mild}

	report, err := Score(gold, system, true)
	require.NoError(t, err)
	require.Len(t, report.Documents, 4)

	ids := []string{}
	markers := []string{}
	for _, d := range report.Documents {
		ids = append(ids, d.ID)
		markers = append(markers, d.Marker)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids)
	assert.Equal(t, []string{"*", "", "", "**"}, markers)

	require.NotNil(t, report.WilcoxonP)
	assert.InDelta(t, 0.6547, *report.WilcoxonP, 1e-3)
}

func TestScoreVerboseAllCorrectHasNoPValue(t *testing.T) {
	gold := map[string]annotation.Severity{"A": annotation.Mild}
	report, err := Score(gold, gold, true)
	require.NoError(t, err)
	assert.Nil(t, report.WilcoxonP)
}

func TestScoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		gold    map[string]annotation.Severity
		system  map[string]annotation.Severity
		wantErr error
	}{
		{
			name:    "empty",
			wantErr: ErrEmptyCorpus,
		},
		{
			name:    "missing system document",
			gold:    map[string]annotation.Severity{"A": annotation.Mild, "B": annotation.Mild},
			system:  map[string]annotation.Severity{"A": annotation.Mild},
			wantErr: ErrDocumentMismatch,
		},
		{
			name:    "extra system document",
			gold:    map[string]annotation.Severity{"A": annotation.Mild},
			system:  map[string]annotation.Severity{"A": annotation.Mild, "Z": annotation.Absent},
			wantErr: ErrDocumentMismatch,
		},
		{
			name:    "invalid gold label",
			gold:    map[string]annotation.Severity{"A": annotation.Severity(4)},
			system:  map[string]annotation.Severity{"A": annotation.Mild},
			wantErr: ErrInvalidSeverity,
		},
		{
			name:    "invalid system label",
			gold:    map[string]annotation.Severity{"A": annotation.Mild},
			system:  map[string]annotation.Severity{"A": annotation.Severity(-1)},
			wantErr: ErrInvalidSeverity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(tt.gold, tt.system, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
