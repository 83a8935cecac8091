package evalcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
	"github.com/lehigh-university-libraries/phieval/internal/eval/dataset"
	"github.com/lehigh-university-libraries/phieval/internal/eval/filter"
	"github.com/lehigh-university-libraries/phieval/internal/eval/results"
)

const goldDoc = `<?xml version="1.0" encoding="UTF-8" ?>
<deIdi2b2>
<TEXT><![CDATA[Smith seen 2067-05-03.]]></TEXT>
<TAGS>
<NAME id="P0" start="0" end="5" text="Smith" TYPE="PATIENT" comment="" />
<DATE id="P1" start="11" end="21" text="2067-05-03" TYPE="DATE" comment="" />
</TAGS>
</deIdi2b2>
`

const systemDoc = `<?xml version="1.0" encoding="UTF-8" ?>
<deIdi2b2>
<TEXT><![CDATA[Smith seen 2067-05-03.]]></TEXT>
<TAGS>
<NAME id="P0" start="0" end="5" text="Smith" TYPE="PATIENT" comment="" />
<DATE id="P1" start="11" end="22" text="2067-05-03." TYPE="DATE" comment="" />
</TAGS>
</deIdi2b2>
`

func severityDoc(label string) string {
	return `<?xml version="1.0" encoding="UTF-8" ?>
<PTSD_Dataset><TEXT><![CDATA[note]]></TEXT><TAGS><POSITIVE_VALENCE score="` + label + `" /></TAGS></PTSD_Dataset>
`
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExecutePHI(t *testing.T) {
	goldDir, systemDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	write(t, goldDir, "100-01.xml", goldDoc)
	write(t, systemDir, "100-01.xml", systemDoc)
	jsonPath := filepath.Join(outDir, "phi.json")

	var buf bytes.Buffer
	err := executePHI(context.Background(), &buf, phiOptions{
		goldPath:    goldDir,
		systemPath:  systemDir,
		concurrency: 2,
		outputJSON:  jsonPath,
		outputDir:   outDir,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Report:")
	assert.Contains(t, out, "HIPAA Relaxed")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var record results.RunRecord
	require.NoError(t, json.Unmarshal(data, &record))
	require.NotNil(t, record.PHI)

	strict, ok := record.PHI.Regime("Strict")
	require.True(t, ok)
	assert.Equal(t, 1, strict.Summary.MicroCounts.TP)
	relaxed, _ := record.PHI.Regime("Relaxed")
	assert.Equal(t, 2, relaxed.Summary.MicroCounts.TP)

	yamls, err := filepath.Glob(filepath.Join(outDir, "phi-*.yaml"))
	require.NoError(t, err)
	assert.Len(t, yamls, 1)
}

func TestExecutePHIMultipleSystems(t *testing.T) {
	goldDir, systemDir := t.TempDir(), t.TempDir()
	write(t, goldDir, "100-01.xml", goldDoc)
	write(t, systemDir, "100-01alpha.xml", systemDoc)
	write(t, systemDir, "100-01beta.xml", goldDoc)

	var buf bytes.Buffer
	err := executePHI(context.Background(), &buf, phiOptions{goldPath: goldDir, systemPath: systemDir, concurrency: 1})
	require.NoError(t, err)

	out := buf.String()
	alpha := strings.Index(out, "Report (SYSTEM: alpha):")
	beta := strings.Index(out, "Report (SYSTEM: beta):")
	assert.True(t, alpha >= 0 && beta > alpha, "systems reported in id order")
}

func TestExecutePHISingleFiles(t *testing.T) {
	dir := t.TempDir()
	gold := write(t, dir, "100-01.xml", goldDoc)
	system := write(t, dir, "other-name.xml", systemDoc)

	var buf bytes.Buffer
	err := executePHI(context.Background(), &buf, phiOptions{goldPath: gold, systemPath: system, concurrency: 1})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Documents: 1 gold, 1 system")
}

func TestExecutePHIUnknownSystemDocument(t *testing.T) {
	goldDir, systemDir := t.TempDir(), t.TempDir()
	write(t, goldDir, "100-01.xml", goldDoc)
	write(t, systemDir, "200-01.xml", systemDoc)

	var buf bytes.Buffer
	err := executePHI(context.Background(), &buf, phiOptions{goldPath: goldDir, systemPath: systemDir, concurrency: 1})
	assert.Error(t, err)
}

func TestBuildFilterSpec(t *testing.T) {
	vocab := annotation.DefaultVocabulary()

	t.Run("no filter", func(t *testing.T) {
		spec, err := buildFilterSpec(phiOptions{}, vocab)
		require.NoError(t, err)
		assert.Nil(t, spec)
	})

	t.Run("flags", func(t *testing.T) {
		spec, err := buildFilterSpec(phiOptions{
			filter:         "NAME,LOCATION/CITY",
			conjunctive:    true,
			conjunctiveSet: true,
			invert:         true,
			invertSet:      true,
		}, vocab)
		require.NoError(t, err)
		require.NotNil(t, spec)
		assert.Len(t, spec.Criteria, 2)
		assert.Equal(t, filter.And, spec.Mode)
		assert.True(t, spec.Invert)
	})

	t.Run("file with flag override", func(t *testing.T) {
		path := write(t, t.TempDir(), "filter.yaml", "criteria:\n  - tag: DATE\nmode: and\n")
		spec, err := buildFilterSpec(phiOptions{filterFile: path, conjunctiveSet: true}, vocab)
		require.NoError(t, err)
		assert.Equal(t, filter.Or, spec.Mode)
	})

	t.Run("invert without filter", func(t *testing.T) {
		_, err := buildFilterSpec(phiOptions{invert: true, invertSet: true}, vocab)
		assert.Error(t, err)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := buildFilterSpec(phiOptions{filter: "NOPE"}, vocab)
		assert.Error(t, err)
	})
}

func TestExecuteSeverity(t *testing.T) {
	goldDir, systemDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	for name, labels := range map[string][2]string{
		"A.xml": {"ABSENT", "MILD"},
		"B.xml": {"MILD", "MILD"},
		"C.xml": {"MODERATE", "MODERATE"},
		"D.xml": {"SEVERE", "MILD"},
	} {
		write(t, goldDir, name, severityDoc(labels[0]))
		write(t, systemDir, name, severityDoc(labels[1]))
	}

	var buf bytes.Buffer
	err := executeSeverity(&buf, severityOptions{goldPath: goldDir, systemPath: systemDir, verbose: true, outputDir: outDir})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "SCORE      (   4|   4): 75.0000%")
	assert.Contains(t, out, "Wilcoxon Signed-Rank test p-value")

	yamls, err := filepath.Glob(filepath.Join(outDir, "severity-*.yaml"))
	require.NoError(t, err)
	require.Len(t, yamls, 1)

	// The saved record renders the same scores.
	var report bytes.Buffer
	require.NoError(t, executeReport(&report, yamls[0], "csv"))
	assert.Contains(t, report.String(), "overall,4,4,75.0000")

	report.Reset()
	require.NoError(t, executeReport(&report, yamls[0], "text"))
	assert.Contains(t, report.String(), "SCORE      (   4|   4): 75.0000%")

	assert.Error(t, executeReport(&report, yamls[0], "xml"))
}

func TestExecuteSeverityMismatchedFolders(t *testing.T) {
	goldDir, systemDir := t.TempDir(), t.TempDir()
	write(t, goldDir, "A.xml", severityDoc("MILD"))
	write(t, systemDir, "B.xml", severityDoc("MILD"))

	var buf bytes.Buffer
	err := executeSeverity(&buf, severityOptions{goldPath: goldDir, systemPath: systemDir})
	assert.Error(t, err)
}

func TestSummarizeCorpus(t *testing.T) {
	mild := annotation.Mild
	docs := []dataset.Document{
		{
			ID:       "100-01",
			SystemID: "alpha",
			Annotations: annotation.DocumentSet{
				{Tag: "NAME", Attribute: "PATIENT", Start: 0, End: 5},
				{Tag: "NAME", Attribute: "PATIENT", Start: 9, End: 7},
				{Tag: "WIDGET", Attribute: "", Start: 1, End: 2},
			},
			Severity: &mild,
			Issues:   []dataset.Issue{{DocumentID: "100-01", Element: "DATE", Message: "start \"x\" is not an integer"}},
		},
	}

	s := summarizeCorpus(docs, annotation.DefaultVocabulary())
	assert.Equal(t, 1, s.Documents)
	assert.Equal(t, []string{"alpha"}, s.Systems)
	assert.Equal(t, 3, s.Annotations)
	require.Len(t, s.Identities, 2)
	assert.Equal(t, 2, s.Identities[0].Count)
	assert.True(t, s.Identities[0].Known)
	assert.False(t, s.Identities[1].Known)
	assert.Len(t, s.Invalid, 1)
	assert.Len(t, s.Issues, 1)
	assert.Equal(t, 1, s.Severities[annotation.Mild])
}

func TestExecuteInspect(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "100-01.xml", goldDoc)

	var buf bytes.Buffer
	require.NoError(t, executeInspect(context.Background(), &buf, dir, 0, true, false, false))

	out := buf.String()
	assert.Contains(t, out, "Loaded 1 documents")
	assert.Contains(t, out, "Annotations: 2")
	assert.Contains(t, out, "DOCUMENT 1/1: 100-01")
}

func TestCommandsParseArguments(t *testing.T) {
	goldDir, systemDir := t.TempDir(), t.TempDir()
	write(t, goldDir, "100-01.xml", goldDoc)
	write(t, systemDir, "100-01.xml", systemDoc)

	t.Setenv(envConcurrency, "3")

	cmd := NewPHICmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--filter", "NAME", goldDir, systemDir})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Filter: NAME (or)")

	cmd = NewPHICmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{goldDir})
	assert.Error(t, cmd.Execute(), "two positional arguments are required")
}

func TestConcurrencyFromEnv(t *testing.T) {
	cmd := NewPHICmd()

	t.Setenv(envConcurrency, "5")
	n := 1
	require.NoError(t, concurrencyFromEnv(cmd, &n))
	assert.Equal(t, 5, n)

	t.Setenv(envConcurrency, "zero")
	assert.Error(t, concurrencyFromEnv(cmd, &n))
}
