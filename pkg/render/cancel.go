package render

import (
	"github.com/shangma/linnet-go/pkg/freq"
	"github.com/shangma/linnet-go/pkg/rational"
)

type cancelled struct {
	num freq.Addend
	den freq.Addend
}

// cancel multiplies the numerator and denominator atoms by a shared atom
// that removes their common factor: the rational part is lcm/gcd of the two
// atoms' factors, and each variable's exponent is the negated minimum of the
// two atoms' exponents for that variable (spec.md §4.H).
func cancel(numAtom, denAtom freq.Addend, flag *rational.Flag) cancelled {
	minS := numAtom.PowerS
	if denAtom.PowerS < minS {
		minS = denAtom.PowerS
	}
	// A bit present in only one atom's PowerConst is implicitly exponent 0 in
	// the other, not absent from the minimum: numAtom.PowerConst[b] and
	// denAtom.PowerConst[b] already read as 0 for a missing key, so comparing
	// both maps' values for every bit that appears in either gives the true
	// minimum instead of silently taking the one side's nonzero exponent.
	minConst := map[int]int{}
	for b := range numAtom.PowerConst {
		minConst[b] = 0
	}
	for b := range denAtom.PowerConst {
		minConst[b] = 0
	}
	for b := range minConst {
		nv := numAtom.PowerConst[b]
		dv := denAtom.PowerConst[b]
		min := nv
		if dv < min {
			min = dv
		}
		minConst[b] = min
	}

	atom := freq.Addend{PowerS: -minS, PowerConst: map[int]int{}}
	for b, v := range minConst {
		atom.PowerConst[b] = -v
	}

	g := rational.GCD(numAtom.Factor.Num, denAtom.Factor.Num)
	l := rational.LCM(numAtom.Factor.Den, denAtom.Factor.Den, flag)
	if g == 0 {
		g = 1
	}
	if l == 0 {
		l = 1
	}
	factor := rational.Rational{Num: l, Den: g}
	if denAtom.Factor.Sign() < 0 {
		factor = rational.Neg(factor)
	}
	atom.Factor = factor

	return cancelled{
		num: freq.MulAtom(numAtom, atom, flag),
		den: freq.MulAtom(denAtom, atom, flag),
	}
}
