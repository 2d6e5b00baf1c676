package render

import "fmt"

// assignOrderAndNames implements the §4.H rendering-order selection and
// naming together, since releasing a dependent immediately provisionally
// names its entries (so later releasability checks see them as named):
// repeat until no progress, releasing the lowest-index unreleased dependent
// whose denominator entries are each either already named or not currently
// claimed as a numerator by some other still-unreleased dependent. Releasing
// names that dependent's denominators, then its numerators, in
// independent-index order. Any dependents left after the loop stalls are
// released (and named) in index order regardless.
func assignOrderAndNames(deps []Dependent, knownNames []string, numRef, denRef [][]Ref, valid [][]bool, m *Map) []int {
	n := len(deps)
	released := make([]bool, n)
	order := make([]int, 0, n)

	claimedAsNumerator := func(entry int, exclude int) bool {
		for d := 0; d < n; d++ {
			if d == exclude || released[d] {
				continue
			}
			for k, ok := range valid[d] {
				if ok && numRef[d][k].Index == entry {
					return true
				}
			}
		}
		return false
	}

	release := func(d int) {
		released[d] = true
		order = append(order, d)
		for k, ok := range valid[d] {
			if !ok {
				continue
			}
			e := denRef[d][k]
			m.name(e.Index, Origin{DependentIdx: d, IndependentIdx: k, IsNumerator: false}, fmt.Sprintf("D_%s_%s", deps[d].Name, knownNames[k]))
		}
		for k, ok := range valid[d] {
			if !ok {
				continue
			}
			e := numRef[d][k]
			m.name(e.Index, Origin{DependentIdx: d, IndependentIdx: k, IsNumerator: true}, fmt.Sprintf("N_%s_%s", deps[d].Name, knownNames[k]))
		}
	}

	for len(order) < n {
		progressed := false
		for d := 0; d < n; d++ {
			if released[d] {
				continue
			}
			ok := true
			for k, v := range valid[d] {
				if !v {
					continue
				}
				e := denRef[d][k]
				if m.Entries[e.Index].Named {
					continue
				}
				if claimedAsNumerator(e.Index, d) {
					ok = false
					break
				}
			}
			if ok {
				release(d)
				progressed = true
				break
			}
		}
		if !progressed {
			break
		}
	}
	for d := 0; d < n; d++ {
		if !released[d] {
			release(d)
		}
	}
	return order
}
