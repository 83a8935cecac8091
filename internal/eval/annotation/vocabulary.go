package annotation

import "sort"

// Vocabulary lists the PHI tag types and the attribute values valid for each.
// It is an immutable lookup table; callers obtain one from DefaultVocabulary
// and pass it to the components that validate against it.
type Vocabulary struct {
	attributes map[string][]string
}

// NewVocabulary builds a vocabulary from a tag -> attribute values table.
// Keys and values are canonicalised.
func NewVocabulary(table map[string][]string) Vocabulary {
	v := Vocabulary{attributes: make(map[string][]string, len(table))}
	for tag, attrs := range table {
		canon := make([]string, 0, len(attrs))
		for _, a := range attrs {
			canon = append(canon, Canonical(a))
		}
		v.attributes[Canonical(tag)] = canon
	}
	return v
}

// DefaultVocabulary returns the i2b2 2014 / CEGS N-GRID 2016 PHI tag set.
func DefaultVocabulary() Vocabulary {
	name := []string{"PATIENT", "DOCTOR", "USERNAME"}
	profession := []string{"PROFESSION"}
	location := []string{"ROOM", "DEPARTMENT", "HOSPITAL", "ORGANIZATION", "STREET",
		"CITY", "STATE", "COUNTRY", "ZIP", "LOCATION-OTHER"}
	age := []string{"AGE"}
	date := []string{"DATE"}
	contact := []string{"PHONE", "FAX", "EMAIL", "URL", "IPADDR"}
	id := []string{"SSN", "MEDICALRECORD", "HEALTHPLAN", "ACCOUNT",
		"LICENSE", "VEHICLE", "DEVICE", "BIOID", "IDNUM"}
	other := []string{"OTHER"}

	var phi []string
	for _, group := range [][]string{name, profession, location, age, date, contact, id, other} {
		phi = append(phi, group...)
	}

	return NewVocabulary(map[string][]string{
		"PHI":        phi,
		"NAME":       name,
		"PROFESSION": profession,
		"LOCATION":   location,
		"AGE":        age,
		"DATE":       date,
		"CONTACT":    contact,
		"ID":         id,
		"OTHER":      other,
	})
}

// HasTag reports whether tag is a known tag type.
func (v Vocabulary) HasTag(tag string) bool {
	_, ok := v.attributes[Canonical(tag)]
	return ok
}

// HasAttribute reports whether attr is valid for tag. An empty tag checks
// every tag type.
func (v Vocabulary) HasAttribute(tag, attr string) bool {
	attr = Canonical(attr)
	if tag == "" {
		return len(v.TagsWithAttribute(attr)) > 0
	}
	for _, a := range v.attributes[Canonical(tag)] {
		if a == attr {
			return true
		}
	}
	return false
}

// TagsWithAttribute returns, sorted, the tag types accepting attr.
func (v Vocabulary) TagsWithAttribute(attr string) []string {
	attr = Canonical(attr)
	var tags []string
	for tag, attrs := range v.attributes {
		for _, a := range attrs {
			if a == attr {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Tags returns the known tag types in sorted order.
func (v Vocabulary) Tags() []string {
	tags := make([]string, 0, len(v.attributes))
	for tag := range v.attributes {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
