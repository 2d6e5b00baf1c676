package freq

import (
	"testing"

	"github.com/shangma/linnet-go/pkg/rational"
)

func TestNormalizeExtractsMinimumExponents(t *testing.T) {
	flag := &rational.Flag{}
	// (1, s^1, {1:1}) + (1, s^0, {0:-1}) -- resistor-admittance-shaped input,
	// mirrors the raw form an RC node determinant takes before normalization.
	e := &Expression{Addends: []Addend{
		{Factor: rational.One, PowerS: 1, PowerConst: map[int]int{1: 1}},
		{Factor: rational.One, PowerS: 0, PowerConst: map[int]int{0: -1}},
	}}

	atom := Normalize(e, flag)
	if flag.Test() {
		t.Fatal("unexpected overflow")
	}
	if atom.PowerS != 0 || atom.PowerConst[0] != -1 || atom.PowerConst[1] != 0 {
		t.Fatalf("atom = %+v, want PowerS=0 PowerConst={0:-1}", atom)
	}

	for _, a := range e.Addends {
		for bit, exp := range a.PowerConst {
			min := 0
			for _, other := range e.Addends {
				if v := other.PowerConst[bit]; v < min {
					min = v
				}
			}
			if min != 0 {
				t.Fatalf("variable %d has nonzero minimum exponent %d after normalize", bit, min)
			}
			_ = exp
		}
	}
	if e.Addends[0].Factor.Sign() <= 0 {
		t.Fatalf("leading addend factor %v is not positive", e.Addends[0].Factor)
	}
}

func TestNormalizeZeroExpressionUntouched(t *testing.T) {
	flag := &rational.Flag{}
	e := &Expression{}
	atom := Normalize(e, flag)
	if atom.Factor.Sign() != 0 {
		t.Fatalf("zero expression atom = %+v, want zero factor", atom)
	}
	if !e.IsZero() {
		t.Fatal("zero expression mutated")
	}
}

func TestDenormalizeRecoversOriginalValue(t *testing.T) {
	flag := &rational.Flag{}
	e := &Expression{Addends: []Addend{
		{Factor: rational.One, PowerS: 1, PowerConst: map[int]int{1: 1}},
		{Factor: rational.One, PowerS: 0, PowerConst: map[int]int{0: -1}},
	}}
	original := e.DeepCopy()
	atom := Normalize(e, flag)
	got := Denormalize(atom, e)
	if !Equal(got, original) {
		t.Fatalf("denormalize(normalize(e)) = %+v, want %+v", got.Addends, original.Addends)
	}
}

func TestMulAtomCombinesExponentsAndFactors(t *testing.T) {
	flag := &rational.Flag{}
	a := Addend{Factor: rational.FromInt(2), PowerS: 1, PowerConst: map[int]int{0: -1}}
	b := Addend{Factor: rational.FromInt(3), PowerS: -1, PowerConst: map[int]int{0: 1, 1: 2}}
	got := MulAtom(a, b, flag)
	if got.Factor.Num != 6 || got.Factor.Den != 1 {
		t.Fatalf("factor = %v, want 6", got.Factor)
	}
	if got.PowerS != 0 {
		t.Fatalf("PowerS = %d, want 0", got.PowerS)
	}
	if got.PowerConst[0] != 0 || got.PowerConst[1] != 2 {
		t.Fatalf("PowerConst = %+v", got.PowerConst)
	}
}

func TestNegateAndEqual(t *testing.T) {
	e := One()
	neg := Negate(e)
	if Equal(e, neg) {
		t.Fatal("One() should not equal its negation")
	}
	if !Equal(e, e.DeepCopy()) {
		t.Fatal("deep copy should be structurally equal")
	}
	if !Equal(Negate(neg), e) {
		t.Fatal("double negation should restore original")
	}
}
