// Package match aligns system annotations to gold annotations for one document.
//
// Two annotations are candidates when their (tag, attribute) identity is
// equal. Strict mode pairs candidates with identical start and end offsets;
// relaxed mode requires an identical start and tolerates an end offset that
// differs by up to RelaxedTolerance characters.
//
// Pairing is one-to-one. Both sides are first stably sorted by start, end,
// tag, attribute and text, which gives every annotation a rank. Eligible
// pairs are then ordered by end-offset delta, gold rank and system rank and
// assigned greedily, so the closest candidate always wins and exact ties go
// to the lowest ranked annotation.
package match

import (
	"sort"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

// RelaxedTolerance is the largest end-offset difference accepted in relaxed mode.
const RelaxedTolerance = 2

// Mode is the matching strictness.
type Mode int

const (
	Strict Mode = iota
	Relaxed
)

func (m Mode) String() string {
	if m == Relaxed {
		return "relaxed"
	}
	return "strict"
}

// Tolerance returns the end-offset tolerance for the mode.
func (m Mode) Tolerance() int {
	if m == Relaxed {
		return RelaxedTolerance
	}
	return 0
}

// Pair is a gold annotation matched to a system annotation.
type Pair struct {
	Gold   annotation.Annotation `json:"gold" yaml:"gold"`
	System annotation.Annotation `json:"system" yaml:"system"`
}

// Partition splits one document's annotations into true positives,
// false positives and false negatives.
type Partition struct {
	TruePositives  []Pair                  `json:"true_positives" yaml:"true_positives"`
	FalsePositives []annotation.Annotation `json:"false_positives" yaml:"false_positives"`
	FalseNegatives []annotation.Annotation `json:"false_negatives" yaml:"false_negatives"`
}

// TP returns the number of true positives.
func (p Partition) TP() int { return len(p.TruePositives) }

// FP returns the number of false positives.
func (p Partition) FP() int { return len(p.FalsePositives) }

// FN returns the number of false negatives.
func (p Partition) FN() int { return len(p.FalseNegatives) }

// Empty reports whether the document had neither gold nor system annotations.
func (p Partition) Empty() bool {
	return p.TP()+p.FP()+p.FN() == 0
}

type candidate struct {
	gold, system int
	delta        int
}

// Match pairs gold and system annotations under mode.
func Match(gold, system []annotation.Annotation, mode Mode) Partition {
	g := sorted(gold)
	s := sorted(system)
	tolerance := mode.Tolerance()

	// Index system annotations by identity and start so only true candidates are compared.
	type key struct {
		id    annotation.Identity
		start int
	}
	byKey := make(map[key][]int, len(s))
	for j, a := range s {
		k := key{a.Identity(), a.Start}
		byKey[k] = append(byKey[k], j)
	}

	var candidates []candidate
	for i, ga := range g {
		for _, j := range byKey[key{ga.Identity(), ga.Start}] {
			delta := abs(ga.End - s[j].End)
			if delta <= tolerance {
				candidates = append(candidates, candidate{gold: i, system: j, delta: delta})
			}
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.delta != cb.delta {
			return ca.delta < cb.delta
		}
		if ca.gold != cb.gold {
			return ca.gold < cb.gold
		}
		return ca.system < cb.system
	})

	goldUsed := make([]bool, len(g))
	systemUsed := make([]bool, len(s))
	var pairs []candidate
	for _, c := range candidates {
		if goldUsed[c.gold] || systemUsed[c.system] {
			continue
		}
		goldUsed[c.gold] = true
		systemUsed[c.system] = true
		pairs = append(pairs, c)
	}

	sort.Slice(pairs, func(a, b int) bool { return pairs[a].gold < pairs[b].gold })

	p := Partition{
		TruePositives:  make([]Pair, 0, len(pairs)),
		FalsePositives: make([]annotation.Annotation, 0, len(s)-len(pairs)),
		FalseNegatives: make([]annotation.Annotation, 0, len(g)-len(pairs)),
	}
	for _, c := range pairs {
		p.TruePositives = append(p.TruePositives, Pair{Gold: g[c.gold], System: s[c.system]})
	}
	for i, used := range goldUsed {
		if !used {
			p.FalseNegatives = append(p.FalseNegatives, g[i])
		}
	}
	for j, used := range systemUsed {
		if !used {
			p.FalsePositives = append(p.FalsePositives, s[j])
		}
	}
	return p
}

func sorted(in []annotation.Annotation) []annotation.Annotation {
	out := make([]annotation.Annotation, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return annotation.Less(out[i], out[j]) })
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
