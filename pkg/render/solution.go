// Package render turns a solved circuit (solver.Solution) into the
// frequency-domain solution object of spec.md §3: a shared normalized
// denominator plus an m*n matrix of normalized numerators, cancelled pairwise
// against the denominator and interned into an expression map, then assigns
// stable rendering names and orders (spec.md §4.H).
package render

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/shangma/linnet-go/pkg/freq"
	"github.com/shangma/linnet-go/pkg/rational"
	"github.com/shangma/linnet-go/pkg/ring"
	"github.com/shangma/linnet-go/pkg/solver"
	"github.com/shangma/linnet-go/pkg/symtab"
)

// Dependent names one row of the frequency-domain solution: either a solved
// unknown or a user-defined voltage derived from two unknowns.
type Dependent struct {
	Name        string
	UnknownIdx  int // -1 for a user-defined voltage
	VoltageName string
}

// Solution is the immutable frequency-domain solution of one circuit: a
// shared denominator and an m*n matrix of numerators, cancelled and interned
// into an expression Map, with stable rendering names assigned.
type Solution struct {
	Table          *symtab.SymbolTable
	Dependents     []Dependent
	Map            *Map
	NumeratorRef   [][]Ref // [dependent][known]
	DenominatorRef [][]Ref // [dependent][known], paired with NumeratorRef
	NumValid       [][]bool
	// ReleaseOrder lists dependent indices in the order entries were named,
	// so emitters can declare expression-map entries without forward
	// references (spec.md §4.H).
	ReleaseOrder []int
}

// Build constructs the frequency-domain solution from an algebraic one,
// cancels each (dependent, independent) pair against the shared determinant,
// interns every resulting expression, and assigns rendering names and order.
func Build(sol *solver.Solution, flag *rational.Flag) (*Solution, error) {
	t := sol.Table
	detExpr, err := freq.Transform(sol.Determinant, t, flag)
	if err != nil {
		return nil, err
	}
	denRemainder := detExpr
	denAtom0 := freq.Normalize(denRemainder, flag)
	if flag.Test() {
		return nil, errors.New("render: rational overflow normalizing the shared denominator")
	}

	deps := collectDependents(sol)
	m := &Map{}
	numRef := make([][]Ref, len(deps))
	denRef := make([][]Ref, len(deps))
	valid := make([][]bool, len(deps))

	for di, dep := range deps {
		nums := dependentNumerators(sol, dep)
		numRef[di] = make([]Ref, len(nums))
		denRef[di] = make([]Ref, len(nums))
		valid[di] = make([]bool, len(nums))
		for ki, raw := range nums {
			if raw == nil {
				continue
			}
			numExpr, err := freq.Transform(raw, t, flag)
			if err != nil {
				return nil, err
			}
			numAtom := freq.Normalize(numExpr, flag)

			cancelled := cancel(numAtom, denAtom0, flag)
			numFull := freq.Denormalize(cancelled.num, numExpr)
			denFull := freq.Denormalize(cancelled.den, denRemainder)

			numRef[di][ki] = m.insert(numFull, false)
			denRef[di][ki] = m.insert(denFull, true)
			valid[di][ki] = true
		}
		// Synchronization point: overflow is checked once cancellation for
		// this dependent against every known has finished (spec.md §5).
		if flag.Test() {
			return nil, errors.Errorf("render: rational overflow cancelling dependent %q", dep.Name)
		}
	}

	order := assignOrderAndNames(deps, KnownNames(t), numRef, denRef, valid, m)

	return &Solution{
		Table:          t,
		Dependents:     deps,
		Map:            m,
		NumeratorRef:   numRef,
		DenominatorRef: denRef,
		NumValid:       valid,
		ReleaseOrder:   order,
	}, nil
}

func collectDependents(sol *solver.Solution) []Dependent {
	t := sol.Table
	var deps []Dependent
	for i, u := range t.Unknowns {
		if sol.Numerators[i] != nil {
			deps = append(deps, Dependent{Name: u.Name, UnknownIdx: i})
		}
	}
	names := make([]string, 0, len(sol.UserVoltages))
	for name := range sol.UserVoltages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		deps = append(deps, Dependent{Name: name, UnknownIdx: -1, VoltageName: name})
	}
	return deps
}

func dependentNumerators(sol *solver.Solution, dep Dependent) []*ring.Coefficient {
	if dep.UnknownIdx >= 0 {
		return sol.Numerators[dep.UnknownIdx]
	}
	return sol.UserVoltages[dep.VoltageName]
}

// KnownNames returns the independent source names in LES column order,
// matching the column axis of NumeratorRef.
func KnownNames(t *symtab.SymbolTable) []string {
	out := make([]string, len(t.Knowns))
	for i, k := range t.Knowns {
		out[i] = k.Name
	}
	return out
}
