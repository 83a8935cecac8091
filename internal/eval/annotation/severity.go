package annotation

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidSeverity is returned for labels outside the ordinal scale.
var ErrInvalidSeverity = errors.New("invalid severity")

// Severity is the ordinal positive-valence label assigned to a document.
type Severity int

const (
	Absent Severity = iota
	Mild
	Moderate
	Severe
)

// MaxSeverityDistance is the largest possible ordinal distance between two labels.
const MaxSeverityDistance = int(Severe - Absent)

var severityNames = [...]string{"ABSENT", "MILD", "MODERATE", "SEVERE"}

// Severities returns every label in ordinal order.
func Severities() []Severity {
	return []Severity{Absent, Mild, Moderate, Severe}
}

// Valid reports whether s is on the ordinal scale.
func (s Severity) Valid() bool {
	return s >= Absent && s <= Severe
}

func (s Severity) String() string {
	if !s.Valid() {
		return "INVALID"
	}
	return severityNames[s]
}

// SeverityFromInt converts a numeric label, rejecting values outside 0..3.
func SeverityFromInt(v int) (Severity, error) {
	s := Severity(v)
	if !s.Valid() {
		return 0, errors.Wrapf(ErrInvalidSeverity, "value %d outside 0..%d", v, MaxSeverityDistance)
	}
	return s, nil
}

// ParseSeverity converts a label name (case-insensitive) or its number.
func ParseSeverity(name string) (Severity, error) {
	canon := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == canon {
			return Severity(i), nil
		}
	}
	if len(canon) == 1 && canon[0] >= '0' && canon[0] <= '9' {
		return SeverityFromInt(int(canon[0] - '0'))
	}
	return 0, errors.WithHint(
		errors.Wrapf(ErrInvalidSeverity, "unknown label %q", name),
		"expected one of ABSENT, MILD, MODERATE, SEVERE")
}
