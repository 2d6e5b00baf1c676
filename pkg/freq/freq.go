// Package freq transforms an algebraic ring.Coefficient solution into a
// frequency-domain rational expression in s and the device constants, and
// normalizes it to a canonical form (spec.md §4.G).
package freq

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/rational"
	"github.com/shangma/linnet-go/pkg/ring"
	"github.com/shangma/linnet-go/pkg/symtab"
)

// Addend is one frequency-domain summand: Factor * s^PowerS *
// product(constant_i ^ PowerConst[i]). Only nonzero exponents are stored in
// PowerConst. Exponents may be negative before Normalize.
type Addend struct {
	Factor     rational.Rational
	PowerS     int
	PowerConst map[int]int
}

// Expression is an ordered sum of addends: decreasing PowerS, ties broken by
// decreasing lexicographic comparison of the power vector from high constant
// index to low. A nil *Expression represents zero.
type Expression struct {
	Addends []Addend
}

func cloneVec(v map[int]int) map[int]int {
	out := make(map[int]int, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// pruneZero drops zero-valued entries in place, preserving the "only nonzero
// exponents are stored" invariant.
func pruneZero(v map[int]int) map[int]int {
	for k, val := range v {
		if val == 0 {
			delete(v, k)
		}
	}
	return v
}

// less implements the §4.G/§3 ordering: decreasing PowerS, then decreasing
// lexicographic power vector (high constant index first).
func less(a, b Addend) bool {
	if a.PowerS != b.PowerS {
		return a.PowerS > b.PowerS
	}
	for i := 63; i >= 0; i-- {
		va, vb := a.PowerConst[i], b.PowerConst[i]
		if va != vb {
			return va > vb
		}
	}
	return false
}

func key(a Addend) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(a.PowerS))
	sb.WriteByte('|')
	var bits []int
	for b, e := range a.PowerConst {
		if e != 0 {
			bits = append(bits, b)
		}
	}
	sort.Ints(bits)
	for _, b := range bits {
		sb.WriteString(strconv.Itoa(b))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(a.PowerConst[b]))
		sb.WriteByte(',')
	}
	return sb.String()
}

// insert merges addend x into the expression in place, combining like terms
// and dropping zero-factor results, preserving the ordering invariant.
func (e *Expression) insert(x Addend, flag *rational.Flag) {
	xk := key(x)
	for i := range e.Addends {
		if key(e.Addends[i]) == xk {
			sum := rational.Add(e.Addends[i].Factor, x.Factor, flag)
			if sum.Sign() == 0 {
				e.Addends = append(e.Addends[:i], e.Addends[i+1:]...)
			} else {
				e.Addends[i].Factor = sum
			}
			return
		}
	}
	if x.Factor.Sign() == 0 {
		return
	}
	idx := sort.Search(len(e.Addends), func(i int) bool { return !less(e.Addends[i], x) })
	e.Addends = append(e.Addends, Addend{})
	copy(e.Addends[idx+1:], e.Addends[idx:])
	e.Addends[idx] = x
}

// IsZero reports whether e represents zero.
func (e *Expression) IsZero() bool { return e == nil || len(e.Addends) == 0 }

// DeepCopy returns an independently mutable copy of e.
func (e *Expression) DeepCopy() *Expression {
	if e == nil {
		return &Expression{}
	}
	out := make([]Addend, len(e.Addends))
	for i, a := range e.Addends {
		out[i] = Addend{Factor: a.Factor, PowerS: a.PowerS, PowerConst: cloneVec(a.PowerConst)}
	}
	return &Expression{Addends: out}
}

// Equal reports structural equality between two expressions.
func Equal(a, b *Expression) bool {
	if a.IsZero() != b.IsZero() {
		return false
	}
	if a.IsZero() {
		return true
	}
	if len(a.Addends) != len(b.Addends) {
		return false
	}
	for i := range a.Addends {
		if !addendEqual(a.Addends[i], b.Addends[i]) {
			return false
		}
	}
	return true
}

func addendEqual(a, b Addend) bool {
	if !a.Factor.Equal(b.Factor) || a.PowerS != b.PowerS {
		return false
	}
	return key(a) == key(b)
}

// Negate returns -e as a new expression.
func Negate(e *Expression) *Expression {
	out := e.DeepCopy()
	for i := range out.Addends {
		out.Addends[i].Factor = rational.Neg(out.Addends[i].Factor)
	}
	return out
}

// One returns the canonical constant-one expression.
func One() *Expression {
	return &Expression{Addends: []Addend{{Factor: rational.One, PowerConst: map[int]int{}}}}
}

// MulAtom multiplies two addends used as atoms (factor*, exponent+).
func MulAtom(a, b Addend, flag *rational.Flag) Addend {
	out := Addend{
		Factor:     rational.Mul(a.Factor, b.Factor, flag),
		PowerS:     a.PowerS + b.PowerS,
		PowerConst: map[int]int{},
	}
	for k, v := range a.PowerConst {
		out.PowerConst[k] += v
	}
	for k, v := range b.PowerConst {
		out.PowerConst[k] += v
	}
	pruneZero(out.PowerConst)
	return out
}

// Denormalize expands atom*remainder into a flat, ordered addend list
// suitable for text rendering (spec §4.H "denormalized" expression).
func Denormalize(atom Addend, remainder *Expression) *Expression {
	out := &Expression{}
	flag := &rational.Flag{}
	for _, r := range remainder.Addends {
		term := MulAtom(atom, r, flag)
		out.Addends = append(out.Addends, term)
	}
	sort.Slice(out.Addends, func(i, j int) bool { return less(out.Addends[i], out.Addends[j]) })
	return out
}

// kindUpdate applies the §4.G table for one resolved constant occurrence.
func kindUpdate(kind circuit.Kind, r rational.Rational, bit int, a *Addend, flag *rational.Flag) {
	switch kind {
	case circuit.Conductance, circuit.VCVS, circuit.VCCS, circuit.CCVS, circuit.CCCS:
		a.Factor = rational.Mul(a.Factor, r, flag)
		a.PowerConst[bit]++
	case circuit.Resistor:
		a.Factor = rational.Div(a.Factor, r, flag)
		a.PowerConst[bit]--
	case circuit.Capacitor:
		a.Factor = rational.Mul(a.Factor, r, flag)
		a.PowerConst[bit]++
		a.PowerS++
	case circuit.Inductor:
		a.Factor = rational.Div(a.Factor, r, flag)
		a.PowerConst[bit]--
		a.PowerS--
	}
}

// Transform converts an algebraic coefficient (sum of +-1*bitmask addends)
// into a frequency-domain expression, resolving each set bit through the
// symbol table's relation chain.
func Transform(c *ring.Coefficient, t *symtab.SymbolTable, flag *rational.Flag) (*Expression, error) {
	out := &Expression{}
	if c.IsZero() {
		return out, nil
	}
	for _, addend := range c.Addends {
		fa := Addend{Factor: rational.FromInt(addend.Factor), PowerConst: map[int]int{}}
		for bit := 0; bit < 64; bit++ {
			if addend.Mask&(1<<uint(bit)) == 0 {
				continue
			}
			r, dev, finalBit, err := t.ResolveReferencedDevice(bit, flag)
			if err != nil {
				return nil, err
			}
			kindUpdate(dev.Kind, r, finalBit, &fa, flag)
		}
		out.insert(fa, flag)
	}
	return out, nil
}

// Normalize factors e into a common atom (whose Factor is
// gcd(numerators)/lcm(denominators), sign chosen so the remaining leading
// addend is positive, and whose exponents are the per-variable minima) and
// divides e by it in place, returning the atom. A zero expression normalizes
// to a zero atom and is left untouched.
func Normalize(e *Expression, flag *rational.Flag) Addend {
	atom := Addend{Factor: rational.One, PowerConst: map[int]int{}}
	if e.IsZero() {
		atom.Factor = rational.Zero
		return atom
	}

	minS := e.Addends[0].PowerS
	allBits := map[int]bool{}
	var nums, dens []int64
	for _, a := range e.Addends {
		if a.PowerS < minS {
			minS = a.PowerS
		}
		for b := range a.PowerConst {
			allBits[b] = true
		}
		nums = append(nums, a.Factor.Num)
		dens = append(dens, a.Factor.Den)
	}
	// A bit absent from an addend's PowerConst is an implicit exponent of 0
	// for that addend, not "not yet seen": a.PowerConst[b] already returns 0
	// for a missing key, so ranging over every addend for every bit that
	// appears anywhere gives the true minimum across all of them.
	minConst := map[int]int{}
	for b := range allBits {
		min := e.Addends[0].PowerConst[b]
		for _, a := range e.Addends[1:] {
			if v := a.PowerConst[b]; v < min {
				min = v
			}
		}
		minConst[b] = min
	}

	g := nums[0]
	for _, n := range nums[1:] {
		g = rational.GCD(g, n)
	}
	l := dens[0]
	for _, d := range dens[1:] {
		l = rational.LCM(l, d, flag)
	}
	if g == 0 {
		g = 1
	}
	if l == 0 {
		l = 1
	}
	atomFactor := rational.Rational{Num: g, Den: l}

	atom.PowerS = minS
	atom.PowerConst = pruneZero(cloneVec(minConst))

	// Divide every addend by the atom; this always yields integer factors by
	// construction (g divides every numerator, l is a multiple of every
	// denominator).
	for i := range e.Addends {
		e.Addends[i].Factor = rational.Div(e.Addends[i].Factor, atomFactor, flag)
		e.Addends[i].PowerS -= minS
		nc := map[int]int{}
		for b, v := range e.Addends[i].PowerConst {
			nc[b] = v - minConst[b]
		}
		for b, v := range minConst {
			if _, ok := nc[b]; !ok && v != 0 {
				nc[b] = -v
			}
		}
		e.Addends[i].PowerConst = pruneZero(nc)
	}
	sort.Slice(e.Addends, func(i, j int) bool { return less(e.Addends[i], e.Addends[j]) })

	if len(e.Addends) > 0 && e.Addends[0].Factor.Sign() < 0 {
		atomFactor = rational.Neg(atomFactor)
		for i := range e.Addends {
			e.Addends[i].Factor = rational.Neg(e.Addends[i].Factor)
		}
	}
	atom.Factor = atomFactor
	return atom
}
