package filter

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

// ErrInvalidSpec is returned when a filter specification cannot be compiled.
var ErrInvalidSpec = errors.New("invalid filter spec")

// Mode selects how criteria are combined.
type Mode string

const (
	Or  Mode = "or"
	And Mode = "and"
)

// Spec describes which annotations to keep before matching.
type Spec struct {
	Criteria []Criterion `yaml:"criteria" json:"criteria"`
	Mode     Mode        `yaml:"mode,omitempty" json:"mode,omitempty"`
	Invert   bool        `yaml:"invert,omitempty" json:"invert,omitempty"`
}

// HIPAA returns the built-in subset of PHI categories covered by the
// HIPAA Safe Harbor identifiers.
func HIPAA() Spec {
	return Spec{
		Mode: Or,
		Criteria: []Criterion{
			{Tag: "NAME", Attribute: "PATIENT"},
			{Tag: "AGE"},
			{Tag: "LOCATION", Attribute: "CITY"},
			{Tag: "LOCATION", Attribute: "STREET"},
			{Tag: "LOCATION", Attribute: "ZIP"},
			{Tag: "LOCATION", Attribute: "ORGANIZATION"},
			{Tag: "DATE"},
			{Tag: "CONTACT", Attribute: "PHONE"},
			{Tag: "CONTACT", Attribute: "FAX"},
			{Tag: "CONTACT", Attribute: "EMAIL"},
			{Tag: "ID", Attribute: "SSN"},
			{Tag: "ID", Attribute: "MEDICALRECORD"},
			{Tag: "ID", Attribute: "HEALTHPLAN"},
			{Tag: "ID", Attribute: "ACCOUNT"},
			{Tag: "ID", Attribute: "LICENSE"},
			{Tag: "ID", Attribute: "VEHICLE"},
			{Tag: "ID", Attribute: "DEVICE"},
			{Tag: "ID", Attribute: "BIOID"},
			{Tag: "ID", Attribute: "IDNUM"},
		},
	}
}

// Compile validates the spec against vocab and builds its predicate.
func (s Spec) Compile(vocab annotation.Vocabulary) (Predicate, error) {
	mode := s.Mode
	if mode == "" {
		mode = Or
	}
	if mode != Or && mode != And {
		return nil, errors.Wrapf(ErrInvalidSpec, "unknown mode %q", string(s.Mode))
	}
	if len(s.Criteria) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(ErrInvalidSpec, "no criteria for %s filter", string(mode)),
			"pass at least one tag or attribute value, e.g. --filter NAME,LOCATION/CITY")
	}

	preds := make([]Predicate, 0, len(s.Criteria))
	for i, c := range s.Criteria {
		if err := validateCriterion(c, vocab); err != nil {
			return nil, errors.Wrapf(err, "criterion %d", i)
		}
		preds = append(preds, c)
	}

	var p Predicate
	if mode == And {
		p = AndGroup(preds)
	} else {
		p = OrGroup(preds)
	}
	if s.Invert {
		p = Invert{Predicate: p}
	}
	return p, nil
}

func validateCriterion(c Criterion, vocab annotation.Vocabulary) error {
	if c.Tag == "" && c.Attribute == "" {
		return errors.Wrap(ErrInvalidSpec, "criterion names neither a tag nor an attribute")
	}
	if c.Tag != "" && !vocab.HasTag(c.Tag) {
		return errors.WithHintf(
			errors.Wrapf(ErrInvalidSpec, "unknown tag %q", c.Tag),
			"known tags: %s", strings.Join(vocab.Tags(), ", "))
	}
	if c.Attribute != "" && !vocab.HasAttribute(c.Tag, c.Attribute) {
		if c.Tag == "" {
			return errors.Wrapf(ErrInvalidSpec, "unknown attribute value %q", c.Attribute)
		}
		return errors.Wrapf(ErrInvalidSpec, "attribute %q is not valid for tag %q", c.Attribute, c.Tag)
	}
	return nil
}

// ParseCriteria reads a comma separated criteria list. Each entry is
// TAG/ATTRIBUTE, a tag name, or an attribute value; tag names take
// precedence over attribute values that share the same spelling.
func ParseCriteria(list string, vocab annotation.Vocabulary) ([]Criterion, error) {
	var criteria []Criterion
	for _, raw := range strings.Split(list, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		if tag, attr, ok := strings.Cut(entry, "/"); ok {
			c := Criterion{Tag: annotation.Canonical(tag), Attribute: annotation.Canonical(attr)}
			if c.Tag == "*" {
				c.Tag = ""
			}
			criteria = append(criteria, c)
			continue
		}

		switch {
		case vocab.HasTag(entry):
			criteria = append(criteria, Criterion{Tag: annotation.Canonical(entry)})
		case vocab.HasAttribute("", entry):
			criteria = append(criteria, Criterion{Attribute: annotation.Canonical(entry)})
		default:
			return nil, errors.WithHint(
				errors.Wrapf(ErrInvalidSpec, "%q is neither a known tag nor an attribute value", entry),
				"use TAG, ATTRIBUTE or TAG/ATTRIBUTE, e.g. LOCATION/CITY")
		}
	}
	return criteria, nil
}

// Parse reads a YAML filter spec.
func Parse(data []byte) (Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, errors.Wrap(err, "parse filter YAML")
	}
	s.Mode = Mode(strings.ToLower(string(s.Mode)))
	return s, nil
}

// LoadFromFile reads a YAML filter spec from path.
func LoadFromFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, errors.Wrapf(err, "read filter file %s", path)
	}
	return Parse(data)
}
