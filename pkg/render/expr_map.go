package render

import (
	"github.com/mitchellh/hashstructure/v2"

	"github.com/shangma/linnet-go/pkg/freq"
)

// Entry is one expression-map slot (spec.md §3 "Expression map").
type Entry struct {
	Expr              *freq.Expression
	Name              string
	UsedAsDenominator bool
	Origin            Origin
	Named             bool
}

// Origin records the first (dependent, independent, isNumerator) site that
// named an entry.
type Origin struct {
	DependentIdx  int
	IndependentIdx int
	IsNumerator   bool
}

// Ref points into a Map, with a sign bit: Negated means the referenced
// entry's expression equals minus the value the caller actually wanted.
type Ref struct {
	Index   int
	Negated bool
}

// Map is the expression-map rendering scratch of spec.md §3/§4.H: an ordered
// list of entries, deduplicated by structural equality (and by negation) and
// pre-filtered by a content hash before falling back to full comparison.
type Map struct {
	Entries []*Entry
	buckets map[uint64][]int
}

func hashExpr(e *freq.Expression) uint64 {
	h, err := hashstructure.Hash(e.Addends, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}

// insert interns e, returning a Ref to the canonical entry (new, matching,
// or negation-matching). usedAsDenominator is OR'd into the entry's flag.
func (m *Map) insert(e *freq.Expression, usedAsDenominator bool) Ref {
	if m.buckets == nil {
		m.buckets = map[uint64][]int{}
	}
	h := hashExpr(e)
	for _, idx := range m.buckets[h] {
		ent := m.Entries[idx]
		if freq.Equal(ent.Expr, e) {
			if usedAsDenominator {
				ent.UsedAsDenominator = true
			}
			return Ref{Index: idx, Negated: false}
		}
	}
	neg := freq.Negate(e)
	hn := hashExpr(neg)
	for _, idx := range m.buckets[hn] {
		ent := m.Entries[idx]
		if freq.Equal(ent.Expr, neg) {
			if usedAsDenominator {
				ent.UsedAsDenominator = true
			}
			return Ref{Index: idx, Negated: true}
		}
	}

	idx := len(m.Entries)
	m.Entries = append(m.Entries, &Entry{Expr: e, UsedAsDenominator: usedAsDenominator})
	m.buckets[h] = append(m.buckets[h], idx)
	return Ref{Index: idx, Negated: false}
}

// name assigns a stable name to the entry at idx, if not already named.
func (m *Map) name(idx int, origin Origin, stem string) {
	ent := m.Entries[idx]
	if ent.Named {
		return
	}
	ent.Named = true
	ent.Origin = origin
	ent.Name = stem
}
