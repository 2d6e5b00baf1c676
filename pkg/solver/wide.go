package solver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shangma/linnet-go/pkg/ring"
)

// wideTerm is a transient, generalized monomial used only inside one
// elimination step: factor * product(constant_i ^ exp_i). Unlike
// ring.Addend, exponents here may be 0, 1, or (briefly, mid-computation) 2 or
// negative-after-subtraction before an exact division brings them back to
// {0,1}. This lets Eliminate implement the Bareiss update generically
// without the spec's bitmask-pruning micro-optimization (§4.F note 1), which
// is a performance optimization, not a correctness requirement — see
// DESIGN.md.
type wideTerm struct {
	factor int64
	exp    map[int]int
}

type widePoly []wideTerm

func fromCoefficient(c *ring.Coefficient) widePoly {
	var out widePoly
	if c == nil {
		return out
	}
	for _, a := range c.Addends {
		out = append(out, wideTerm{factor: a.Factor, exp: expFromMask(a.Mask)})
	}
	return out
}

func expFromMask(mask uint64) map[int]int {
	m := map[int]int{}
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			m[i] = 1
		}
	}
	return m
}

func canonicalKey(exp map[int]int) string {
	var bits []int
	for b, e := range exp {
		if e != 0 {
			bits = append(bits, b)
		}
	}
	sort.Ints(bits)
	var sb strings.Builder
	for _, b := range bits {
		sb.WriteString(strconv.Itoa(b))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(exp[b]))
		sb.WriteByte(',')
	}
	return sb.String()
}

// merge sums factors of like terms (identical exponent vectors) and drops
// zero-factor results.
func merge(terms widePoly) widePoly {
	type bucket struct {
		exp    map[int]int
		factor int64
	}
	buckets := map[string]*bucket{}
	var order []string
	for _, t := range terms {
		key := canonicalKey(t.exp)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{exp: t.exp, factor: 0}
			buckets[key] = b
			order = append(order, key)
		}
		b.factor += t.factor
	}
	var out widePoly
	for _, key := range order {
		b := buckets[key]
		if b.factor != 0 {
			out = append(out, wideTerm{factor: b.factor, exp: b.exp})
		}
	}
	return out
}

func negate(p widePoly) widePoly {
	out := make(widePoly, len(p))
	for i, t := range p {
		out[i] = wideTerm{factor: -t.factor, exp: t.exp}
	}
	return out
}

func addPoly(a, b widePoly) widePoly {
	all := make(widePoly, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return merge(all)
}

func subPoly(a, b widePoly) widePoly {
	return addPoly(a, negate(b))
}

func mulPoly(a, b widePoly) widePoly {
	var raw widePoly
	for _, ta := range a {
		for _, tb := range b {
			exp := map[int]int{}
			for k, v := range ta.exp {
				exp[k] += v
			}
			for k, v := range tb.exp {
				exp[k] += v
			}
			raw = append(raw, wideTerm{factor: ta.factor * tb.factor, exp: exp})
		}
	}
	return merge(raw)
}

// compareExp orders exponent vectors the way ring.Coefficient orders
// addends: lexicographically from the highest bit index down, higher
// exponent first at the first differing bit.
func compareExp(a, b map[int]int) int {
	for i := 63; i >= 0; i-- {
		ea, eb := a[i], b[i]
		if ea != eb {
			if ea > eb {
				return 1
			}
			return -1
		}
	}
	return 0
}

func leadingTerm(p widePoly) (wideTerm, bool) {
	if len(p) == 0 {
		return wideTerm{}, false
	}
	best := p[0]
	for _, t := range p[1:] {
		if compareExp(t.exp, best.exp) > 0 {
			best = t
		}
	}
	return best, true
}

func expSub(a, b map[int]int) (map[int]int, bool) {
	out := map[int]int{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] -= v
	}
	for _, v := range out {
		if v < 0 {
			return nil, false
		}
	}
	return out, true
}

// divideExact performs polynomial long division of numerator by the ring
// coefficient d, which is assumed (by the Bareiss invariant) to divide it
// exactly, returning an error if that assumption is violated — an
// implementation-defect signal per spec §4.F.
func divideExact(numerator widePoly, d *ring.Coefficient) (*ring.Coefficient, error) {
	if d.IsZero() {
		return nil, errDivideByZero
	}
	dWide := fromCoefficient(d)
	dLead := d.Addends[0] // ring.Coefficient keeps addends sorted, so [0] is leading.
	num := merge(numerator)
	var quotient widePoly

	for len(num) != 0 {
		lead, _ := leadingTerm(num)
		qExp, ok := expSub(lead.exp, expFromMask(dLead.Mask))
		if !ok {
			return nil, errInexactDivision
		}
		if dLead.Factor != 1 && dLead.Factor != -1 {
			return nil, errPivotNotUnit
		}
		qFactor := lead.factor / dLead.Factor
		if qFactor*dLead.Factor != lead.factor {
			return nil, errInexactDivision
		}
		qTerm := wideTerm{factor: qFactor, exp: qExp}
		quotient = append(quotient, qTerm)
		num = subPoly(num, mulPoly(widePoly{qTerm}, dWide))
	}

	return toCoefficient(quotient)
}

// toCoefficient converts a fully-reduced wide polynomial back into bitmask
// form, asserting every exponent is 0 or 1.
func toCoefficient(p widePoly) (*ring.Coefficient, error) {
	out := ring.Zero()
	for _, t := range p {
		var mask uint64
		for bit, e := range t.exp {
			switch e {
			case 0:
			case 1:
				mask |= 1 << uint(bit)
			default:
				return nil, errExponentOutOfRange
			}
		}
		out.AddAddend(t.factor, mask)
	}
	return out, nil
}
