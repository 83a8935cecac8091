package dataset

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

// Document is one annotated record read from a dataset
type Document struct {
	// Identifiers parsed from the file name (XXX-YY<sys>.xml) or table row
	ID       string `json:"id" yaml:"id"`
	SystemID string `json:"system_id,omitempty" yaml:"system_id,omitempty"`
	Name     string `json:"name" yaml:"name"` // File stem, or ID for table rows
	Path     string `json:"path" yaml:"path"`

	Text        string                 `json:"-" yaml:"-"`
	Annotations annotation.DocumentSet `json:"annotations" yaml:"annotations"`

	// Severity is set for documents carrying a POSITIVE_VALENCE tag or severity row
	Severity *annotation.Severity `json:"severity,omitempty" yaml:"severity,omitempty"`

	// Issues lists tags that could not be turned into annotations
	Issues []Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Issue describes a malformed tag skipped while loading
type Issue struct {
	DocumentID   string `json:"document_id" yaml:"document_id"`
	Element      string `json:"element" yaml:"element"`
	AnnotationID string `json:"annotation_id,omitempty" yaml:"annotation_id,omitempty"`
	Message      string `json:"message" yaml:"message"`
}

// AnnotationRow is one annotation in a JSONL or Parquet table.
// A row with an empty tag only registers the document.
type AnnotationRow struct {
	DocID     string `json:"doc_id" parquet:"doc_id"`
	SystemID  string `json:"system_id,omitempty" parquet:"system_id,optional"`
	ID        string `json:"id,omitempty" parquet:"id,optional"`
	Tag       string `json:"tag" parquet:"tag"`
	Attribute string `json:"attribute" parquet:"attribute"`
	Start     int    `json:"start" parquet:"start"`
	End       int    `json:"end" parquet:"end"`
	Text      string `json:"text,omitempty" parquet:"text,optional"`
}

// Annotation converts the row to a canonical annotation
func (r AnnotationRow) Annotation() annotation.Annotation {
	return annotation.Annotation{
		ID:        r.ID,
		Tag:       annotation.Canonical(r.Tag),
		Attribute: annotation.Canonical(r.Attribute),
		Start:     r.Start,
		End:       r.End,
		Text:      r.Text,
	}
}

// SeverityRow is one document label in a JSONL or Parquet table.
// Severity is a label name (ABSENT, MILD, MODERATE, SEVERE) or its number.
type SeverityRow struct {
	DocID    string `json:"doc_id" parquet:"doc_id"`
	Severity string `json:"severity" parquet:"severity"`
}

var fileNamePattern = regexp.MustCompile(`^(\d+-\d+)(.*)$`)

// ParseFileName splits an XML file name into the document id (patient and
// record number) and the trailing system id, e.g. 301-01foo.xml gives
// ("301-01", "foo"). Names that do not follow the pattern use the whole
// stem as the document id.
func ParseFileName(name string) (docID, sysID string) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	m := fileNamePattern.FindStringSubmatch(stem)
	if m == nil {
		return stem, ""
	}
	return m[1], m[2]
}
