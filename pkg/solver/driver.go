package solver

import (
	"github.com/pkg/errors"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/les"
	"github.com/shangma/linnet-go/pkg/ring"
	"github.com/shangma/linnet-go/pkg/symtab"
)

// ErrDeterminantMismatch flags a violated invariant: two calls of the solver
// for the same circuit produced determinants that disagree even up to sign.
var ErrDeterminantMismatch = errors.New("solver: repeated determinant does not match first (up to sign)")

// Solution is the algebraic (pre-frequency-transform) solution of a circuit:
// one shared denominator and, per required unknown, one numerator per known.
type Solution struct {
	Table       *symtab.SymbolTable
	Determinant *ring.Coefficient
	// Numerators[unknownIndex][knownIndex]; nil entries are unknowns that
	// were not required and therefore not computed (spec §4.F driver step 1).
	Numerators [][]*ring.Coefficient
	// UserVoltages[name][knownIndex] mirrors Numerators for each user-defined
	// voltage (spec §4.F driver step 3).
	UserVoltages map[string][]*ring.Coefficient
}

// RequiredDependents computes the set of unknown indices referenced directly,
// or indirectly through a user-defined voltage, by any result request. If c
// has no requests, every dependent is marked required (spec §4.F driver
// step 1).
func RequiredDependents(c *circuit.Circuit, t *symtab.SymbolTable) map[int]bool {
	required := map[int]bool{}
	if len(c.Requests) == 0 {
		for i := range t.Unknowns {
			required[i] = true
		}
		return required
	}

	voltageOf := map[string]circuit.UserVoltage{}
	for _, v := range c.Voltages {
		voltageOf[v.Name] = v
	}
	unknownIdx := map[string]int{}
	for i, u := range t.Unknowns {
		unknownIdx[u.Name] = i
	}

	var mark func(name string)
	mark = func(name string) {
		if i, ok := unknownIdx[name]; ok {
			required[i] = true
			return
		}
		if v, ok := voltageOf[name]; ok {
			mark(v.Plus)
			mark(v.Minus)
		}
	}

	for _, r := range c.Requests {
		for _, dep := range r.Dependents {
			mark(dep)
		}
	}
	return required
}

// SolveAll runs the solver once per required unknown. Every call swaps the
// target column into position m-1 of a fresh copy of mx, so a call's
// determinant carries a sign flip exactly when its target column was swapped
// (target column != m-1). A call is "inverted" when its swap state differs
// from the first call's: its determinant is negated before being checked
// against the first call's, and its numerators are kept as they are; the
// numerators of non-inverted calls are sign-inverted, so that every unknown
// reads numerator/Determinant with the first call's determinant.
func SolveAll(mx *les.Matrix, t *symtab.SymbolTable, required map[int]bool) (*Solution, error) {
	sol := &Solution{
		Table:        t,
		Numerators:   make([][]*ring.Coefficient, len(t.Unknowns)),
		UserVoltages: map[string][]*ring.Coefficient{},
	}

	firstSwapped := false
	callIndex := 0
	for ui := range t.Unknowns {
		if !required[ui] {
			continue
		}
		swapped := t.Unknowns[ui].Col != mx.M-1
		if callIndex == 0 {
			firstSwapped = swapped
		}
		invert := swapped != firstSwapped

		res, err := Solve(mx, t.Unknowns[ui].Col)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown %q", t.Unknowns[ui].Name)
		}

		if callIndex == 0 {
			sol.Determinant = res.Determinant
		} else {
			cand := res.Determinant.DeepCopy()
			if invert {
				cand.MulInt(-1)
			}
			if !ring.Equal(cand, sol.Determinant) {
				return nil, errors.Wrapf(ErrDeterminantMismatch, "unknown %q", t.Unknowns[ui].Name)
			}
		}

		nums := res.Numerators
		if !invert {
			for _, n := range nums {
				n.MulInt(-1)
			}
		}
		sol.Numerators[ui] = nums
		callIndex++
	}

	for _, v := range userVoltages(t) {
		plusIdx, plusOk := unknownIndexByNode(t, v.Plus)
		minusIdx, minusOk := unknownIndexByNode(t, v.Minus)
		k := len(t.Knowns)
		diff := make([]*ring.Coefficient, k)
		for j := 0; j < k; j++ {
			var p, m *ring.Coefficient
			if plusOk && sol.Numerators[plusIdx] != nil {
				p = sol.Numerators[plusIdx][j]
			} else {
				p = ring.Zero()
			}
			if minusOk && sol.Numerators[minusIdx] != nil {
				m = sol.Numerators[minusIdx][j]
			} else {
				m = ring.Zero()
			}
			diff[j] = ring.Add(p, ring.Neg(m))
		}
		sol.UserVoltages[v.Name] = diff
	}

	return sol, nil
}

func userVoltages(t *symtab.SymbolTable) []circuit.UserVoltage {
	return t.Circuit.Voltages
}

func unknownIndexByNode(t *symtab.SymbolTable, node string) (int, bool) {
	for i, n := range t.Circuit.Nodes {
		if n == node {
			if ui, ok := t.UnknownByNode(i); ok {
				return ui, true
			}
			return 0, false // ground: contributes zero
		}
	}
	return 0, false
}
