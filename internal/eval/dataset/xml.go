package dataset

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

// severityElement carries the document level positive valence label
const severityElement = "POSITIVE_VALENCE"

// standoffDocument mirrors the i2b2 deIdi2b2 layout: the note text plus a
// flat list of tags whose element name is the PHI category
type standoffDocument struct {
	XMLName xml.Name
	Text    string `xml:"TEXT"`
	Tags    struct {
		Elements []standoffTag `xml:",any"`
	} `xml:"TAGS"`
}

type standoffTag struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`
	Start   string `xml:"start,attr"`
	End     string `xml:"end,attr"`
	Text    string `xml:"text,attr"`
	Type    string `xml:"TYPE,attr"`
	Comment string `xml:"comment,attr"`
	Score   string `xml:"score,attr"`
}

// loadXMLFile parses one standoff XML document
func loadXMLFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw standoffDocument
	if err := xml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("failed to parse XML %s: %w", path, err)
	}

	id, sysID := ParseFileName(path)
	doc := Document{
		ID:       id,
		SystemID: sysID,
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:     path,
		Text:     raw.Text,
	}

	for _, tag := range raw.Tags.Elements {
		name := tag.XMLName.Local

		if strings.EqualFold(name, severityElement) {
			s, err := annotation.ParseSeverity(tag.Score)
			if err != nil {
				return Document{}, fmt.Errorf("failed to read severity in %s: %w", path, err)
			}
			doc.Severity = &s
			continue
		}

		a, err := tag.annotation()
		if err != nil {
			slog.Warn("Skipping malformed tag", "path", path, "element", name, "id", tag.ID, "error", err)
			doc.Issues = append(doc.Issues, Issue{
				DocumentID:   id,
				Element:      name,
				AnnotationID: tag.ID,
				Message:      err.Error(),
			})
			continue
		}
		doc.Annotations = append(doc.Annotations, a)
	}

	slog.Debug("Parsed XML document",
		"path", path,
		"id", doc.ID,
		"system_id", doc.SystemID,
		"annotations", len(doc.Annotations),
		"issues", len(doc.Issues))

	return doc, nil
}

func (t standoffTag) annotation() (annotation.Annotation, error) {
	start, err := strconv.Atoi(strings.TrimSpace(t.Start))
	if err != nil {
		return annotation.Annotation{}, fmt.Errorf("start %q is not an integer", t.Start)
	}
	end, err := strconv.Atoi(strings.TrimSpace(t.End))
	if err != nil {
		return annotation.Annotation{}, fmt.Errorf("end %q is not an integer", t.End)
	}

	return annotation.Annotation{
		ID:        t.ID,
		Tag:       annotation.Canonical(t.XMLName.Local),
		Attribute: annotation.Canonical(t.Type),
		Start:     start,
		End:       end,
		Text:      t.Text,
	}, nil
}

// listXMLFiles returns the .xml files directly under dir, sorted by name
func listXMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
