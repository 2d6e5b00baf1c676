// Package rational implements exact signed rational arithmetic over bounded
// (int64) integers, with a sticky overflow flag rather than the unbounded
// math/big.Rat semantics — see DESIGN.md for why math/big was not used here.
package rational

import (
	"fmt"
	"math"
)

// Rational is a reduced fraction Num/Den with Den > 0. The zero value is 0/1.
type Rational struct {
	Num int64
	Den int64
}

// Flag is a sticky overflow flag. The caller owns one per engine/pipeline run
// (see spec §5: three synchronization points) rather than a package global.
type Flag struct {
	overflowed bool
}

// Set marks the flag as tripped.
func (f *Flag) Set() { f.overflowed = true }

// Test reports whether the flag is set.
func (f *Flag) Test() bool { return f.overflowed }

// Clear resets the flag and returns its prior value.
func (f *Flag) Clear() bool {
	v := f.overflowed
	f.overflowed = false
	return v
}

// Zero is the rational 0.
var Zero = Rational{Num: 0, Den: 1}

// One is the rational 1.
var One = Rational{Num: 1, Den: 1}

// FromInt lifts an integer to a rational.
func FromInt(n int64) Rational { return Rational{Num: n, Den: 1} }

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// reduce normalizes sign (denominator positive) and divides by the gcd. It
// sets f on denominator-zero (division-by-zero) construction.
func reduce(num, den int64, f *Flag) Rational {
	if den == 0 {
		f.Set()
		return Zero
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(num, den)
	return Rational{Num: num / g, Den: den / g}
}

// mulOverflows reports whether a*b overflows int64. math.MinInt64 is handled
// separately: negating it is itself an overflow, so p/b != a (the general
// check below) wraps back to a false negative for a*b == MinInt64*-1.
func mulOverflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return !((a == math.MinInt64 && b == 1) || (b == math.MinInt64 && a == 1))
	}
	p := a * b
	return p/b != a
}

func addOverflows(a, b int64) bool {
	s := a + b
	return ((a ^ s) & (b ^ s)) < 0
}

// Add returns a+b, setting f on overflow.
func Add(a, b Rational, f *Flag) Rational {
	// a.Num*b.Den + b.Num*a.Den, over a.Den*b.Den
	if mulOverflows(a.Num, b.Den) || mulOverflows(b.Num, a.Den) || mulOverflows(a.Den, b.Den) {
		f.Set()
		return Zero
	}
	n1, n2 := a.Num*b.Den, b.Num*a.Den
	if addOverflows(n1, n2) {
		f.Set()
		return Zero
	}
	return reduce(n1+n2, a.Den*b.Den, f)
}

// Sub returns a-b.
func Sub(a, b Rational, f *Flag) Rational {
	return Add(a, Neg(b), f)
}

// Mul returns a*b.
func Mul(a, b Rational, f *Flag) Rational {
	if mulOverflows(a.Num, b.Num) || mulOverflows(a.Den, b.Den) {
		f.Set()
		return Zero
	}
	return reduce(a.Num*b.Num, a.Den*b.Den, f)
}

// Div returns a/b (reciprocal of b times a).
func Div(a, b Rational, f *Flag) Rational {
	if b.Num == 0 {
		f.Set()
		return Zero
	}
	return Mul(a, Rational{Num: b.Den, Den: b.Num}, f)
}

// Neg returns -a.
func Neg(a Rational) Rational { return Rational{Num: -a.Num, Den: a.Den} }

// Sign returns -1, 0, or 1.
func (r Rational) Sign() int {
	switch {
	case r.Num < 0:
		return -1
	case r.Num > 0:
		return 1
	default:
		return 0
	}
}

// IsOne reports whether r == 1.
func (r Rational) IsOne() bool { return r.Num == r.Den }

// IsInteger reports whether the denominator is 1.
func (r Rational) IsInteger() bool { return r.Den == 1 }

// Equal reports structural equality (both are stored reduced, so this is exact).
func (r Rational) Equal(o Rational) bool { return r.Num == o.Num && r.Den == o.Den }

// LCM returns the least common multiple of two positive denominators.
func LCM(a, b int64, f *Flag) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	g := gcd(a, b)
	if mulOverflows(a/g, b) {
		f.Set()
		return 0
	}
	v := (a / g) * b
	if v < 0 {
		v = -v
	}
	return v
}

// GCD returns the non-negative gcd of two integers.
func GCD(a, b int64) int64 { return gcd(a, b) }

func (r Rational) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}
