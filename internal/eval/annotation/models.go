package annotation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidAnnotation is returned for spans that break the offset invariant.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// Annotation is a single typed, offset-bounded span.
// Tag and Attribute form the identity used for matching; Start and End
// delimit [Start, End) in the document's raw text.
type Annotation struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Tag       string `json:"tag" yaml:"tag"`
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Start     int    `json:"start" yaml:"start"`
	End       int    `json:"end" yaml:"end"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Identity is the (tag, attribute) pair two annotations must share to be compared.
type Identity struct {
	Tag       string
	Attribute string
}

func (i Identity) String() string {
	if i.Attribute == "" {
		return i.Tag
	}
	return i.Tag + "/" + i.Attribute
}

// Identity returns the matching identity of the annotation.
func (a Annotation) Identity() Identity {
	return Identity{Tag: a.Tag, Attribute: a.Attribute}
}

// Validate checks the offset invariant 0 <= Start <= End.
func (a Annotation) Validate() error {
	if a.Start < 0 || a.End < 0 {
		return errors.Wrapf(ErrInvalidAnnotation, "%s has negative offsets [%d, %d)", a, a.Start, a.End)
	}
	if a.Start > a.End {
		return errors.Wrapf(ErrInvalidAnnotation, "%s starts after it ends [%d, %d)", a, a.Start, a.End)
	}
	return nil
}

func (a Annotation) String() string {
	return fmt.Sprintf("<%s s:%d e:%d>", a.Identity(), a.Start, a.End)
}

// Less orders annotations by start, end, tag, attribute and text.
func Less(a, b Annotation) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	if a.Tag != b.Tag {
		return a.Tag < b.Tag
	}
	if a.Attribute != b.Attribute {
		return a.Attribute < b.Attribute
	}
	return a.Text < b.Text
}

// DocumentSet holds the annotations of one document.
type DocumentSet []Annotation

// Validate returns the first invalid annotation in the set, if any.
func (d DocumentSet) Validate() error {
	for _, a := range d {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Corpus maps a document identifier to its annotations.
type Corpus map[string]DocumentSet

// DocumentIDs returns the corpus identifiers in sorted order.
func (c Corpus) DocumentIDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Canonical trims, NFKC-normalises and upper-cases a tag or attribute value.
func Canonical(s string) string {
	return strings.ToUpper(norm.NFKC.String(strings.TrimSpace(s)))
}
