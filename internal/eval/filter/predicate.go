package filter

import "github.com/lehigh-university-libraries/phieval/internal/eval/annotation"

// Predicate decides whether an annotation is kept.
type Predicate interface {
	Match(a annotation.Annotation) bool
}

// Criterion matches on tag type and/or attribute value. An empty field
// matches anything; Compile rejects a criterion with both fields empty.
type Criterion struct {
	Tag       string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
}

func (c Criterion) Match(a annotation.Annotation) bool {
	if c.Tag != "" && annotation.Canonical(c.Tag) != a.Tag {
		return false
	}
	if c.Attribute != "" && annotation.Canonical(c.Attribute) != a.Attribute {
		return false
	}
	return true
}

func (c Criterion) String() string {
	switch {
	case c.Attribute == "":
		return c.Tag
	case c.Tag == "":
		return "*/" + c.Attribute
	default:
		return c.Tag + "/" + c.Attribute
	}
}

// AndGroup matches when every member matches.
type AndGroup []Predicate

func (g AndGroup) Match(a annotation.Annotation) bool {
	for _, p := range g {
		if !p.Match(a) {
			return false
		}
	}
	return true
}

// OrGroup matches when any member matches.
type OrGroup []Predicate

func (g OrGroup) Match(a annotation.Annotation) bool {
	for _, p := range g {
		if p.Match(a) {
			return true
		}
	}
	return false
}

// Invert negates the wrapped predicate.
type Invert struct {
	Predicate Predicate
}

func (i Invert) Match(a annotation.Annotation) bool {
	return !i.Predicate.Match(a)
}

// All keeps every annotation.
type All struct{}

func (All) Match(annotation.Annotation) bool { return true }

// Apply returns the annotations accepted by p, preserving order.
// A nil predicate keeps everything.
func Apply(annotations []annotation.Annotation, p Predicate) []annotation.Annotation {
	if p == nil {
		out := make([]annotation.Annotation, len(annotations))
		copy(out, annotations)
		return out
	}
	out := make([]annotation.Annotation, 0, len(annotations))
	for _, a := range annotations {
		if p.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
