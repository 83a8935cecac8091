package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/phieval/internal/eval/filter"
	"github.com/lehigh-university-libraries/phieval/internal/eval/phi"
	"github.com/lehigh-university-libraries/phieval/internal/eval/severity"
)

// Kinds of evaluation run
const (
	KindPHI      = "phi"
	KindSeverity = "severity"
)

// timestampFormat is used both in run records and their file names
const timestampFormat = "2006-01-02_15-04-05"

// RunConfig represents the configuration section of a run record
type RunConfig struct {
	Kind        string       `yaml:"kind" json:"kind"`
	GoldPath    string       `yaml:"goldpath" json:"gold_path"`
	SystemPath  string       `yaml:"systempath" json:"system_path"`
	SystemID    string       `yaml:"systemid,omitempty" json:"system_id,omitempty"`
	Filter      *filter.Spec `yaml:"filter,omitempty" json:"filter,omitempty"`
	Verbose     bool         `yaml:"verbose" json:"verbose"`
	Concurrency int          `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	Timestamp   string       `yaml:"timestamp" json:"timestamp"`
}

// RunRecord is one evaluation run as persisted in the output directory.
// Exactly one of PHI and Severity is set, matching Config.Kind.
type RunRecord struct {
	RunID    string           `yaml:"runid" json:"run_id"`
	Config   RunConfig        `yaml:"config" json:"config"`
	PHI      *phi.Report      `yaml:"phi,omitempty" json:"phi,omitempty"`
	Severity *severity.Report `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// NewPHIRecord wraps a Track 1 report in a run record
func NewPHIRecord(cfg RunConfig, report *phi.Report) *RunRecord {
	cfg.Kind = KindPHI
	return newRecord(cfg, report, nil)
}

// NewSeverityRecord wraps a Track 2 report in a run record
func NewSeverityRecord(cfg RunConfig, report *severity.Report) *RunRecord {
	cfg.Kind = KindSeverity
	return newRecord(cfg, nil, report)
}

func newRecord(cfg RunConfig, p *phi.Report, s *severity.Report) *RunRecord {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format(timestampFormat)
	}
	return &RunRecord{
		RunID:    uuid.NewString(),
		Config:   cfg,
		PHI:      p,
		Severity: s,
	}
}

// FileName returns <kind>[-<system>]-<timestamp>.yaml
func (r *RunRecord) FileName() string {
	if r.Config.SystemID != "" {
		return fmt.Sprintf("%s-%s-%s.yaml", r.Config.Kind, r.Config.SystemID, r.Config.Timestamp)
	}
	return fmt.Sprintf("%s-%s.yaml", r.Config.Kind, r.Config.Timestamp)
}

// SaveToYAML saves the run record into dir and returns the file path
func SaveToYAML(dir string, record *RunRecord) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	filename := filepath.Join(dir, record.FileName())

	data, err := yaml.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return filename, nil
	}
	return absPath, nil
}

// LoadFromYAML reads a run record written by SaveToYAML
func LoadFromYAML(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var record RunRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse results file: %w", err)
	}

	switch {
	case record.Config.Kind == KindPHI && record.PHI != nil:
	case record.Config.Kind == KindSeverity && record.Severity != nil:
	default:
		return nil, fmt.Errorf("results file %s has no %q report", path, record.Config.Kind)
	}
	return &record, nil
}

// SaveJSON writes v as indented JSON
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}
