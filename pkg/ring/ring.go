// Package ring implements the commutative ring of "coefficient expressions":
// sums of addends, each a signed integer times a bit-vector product of device
// constants. See spec.md §3, §4.B.
//
// Addends are kept as a sorted slice rather than the original's linked list —
// Design Notes sanctions this explicitly and it is friendlier to the Go
// garbage collector and to cache locality.
package ring

import "sort"

// Addend is one summand: factor * (product of constants named by Mask).
// Mask bit i set means the i-th constant occurs to the first power.
type Addend struct {
	Factor int64
	Mask   uint64
}

// Coefficient is an ordered sum of addends, strictly decreasing by Mask
// (interpreted as an unsigned integer). A nil/empty Coefficient is zero.
// Factor is never zero for a stored addend.
type Coefficient struct {
	Addends []Addend
}

// Zero returns the additive identity.
func Zero() *Coefficient { return &Coefficient{} }

// One returns the multiplicative identity (a single addend, empty mask,
// factor 1).
func One() *Coefficient {
	return &Coefficient{Addends: []Addend{{Factor: 1, Mask: 0}}}
}

// IsZero reports whether c has no addends.
func (c *Coefficient) IsZero() bool { return c == nil || len(c.Addends) == 0 }

// DeepCopy returns an independently mutable copy.
func (c *Coefficient) DeepCopy() *Coefficient {
	if c == nil {
		return &Coefficient{}
	}
	out := make([]Addend, len(c.Addends))
	copy(out, c.Addends)
	return &Coefficient{Addends: out}
}

// find returns the index of mask in c.Addends (sorted descending) with
// found=true, or the insertion point with found=false if absent, in the
// spirit of sort.Search/sort.SearchInts' "insertion point" contract, adapted
// to descending order.
func (c *Coefficient) find(mask uint64) (idx int, found bool) {
	n := len(c.Addends)
	// Addends are descending; search for the first addend whose mask <= target.
	i := sort.Search(n, func(i int) bool { return c.Addends[i].Mask <= mask })
	if i < n && c.Addends[i].Mask == mask {
		return i, true
	}
	return i, false
}

// AddAddend fuses factor*x^mask into c in place, removing the term if the
// combined factor becomes zero, preserving sort order.
func (c *Coefficient) AddAddend(factor int64, mask uint64) {
	if factor == 0 {
		return
	}
	idx, found := c.find(mask)
	if found {
		nf := c.Addends[idx].Factor + factor
		if nf == 0 {
			c.Addends = append(c.Addends[:idx], c.Addends[idx+1:]...)
		} else {
			c.Addends[idx].Factor = nf
		}
		return
	}
	c.Addends = append(c.Addends, Addend{})
	copy(c.Addends[idx+1:], c.Addends[idx:])
	c.Addends[idx] = Addend{Factor: factor, Mask: mask}
}

// Add returns a+b as a new coefficient (does not mutate a or b).
func Add(a, b *Coefficient) *Coefficient {
	out := a.DeepCopy()
	if b != nil {
		for _, ad := range b.Addends {
			out.AddAddend(ad.Factor, ad.Mask)
		}
	}
	return out
}

// AddCoefficient adds b into a in place (a += b), returning a for chaining.
func (a *Coefficient) AddCoefficient(b *Coefficient) *Coefficient {
	if b != nil {
		for _, ad := range b.Addends {
			a.AddAddend(ad.Factor, ad.Mask)
		}
	}
	return a
}

// Sub subtracts b from a in place on a (a -= b), returning a for chaining.
func (a *Coefficient) Sub(b *Coefficient) *Coefficient {
	if b != nil {
		for _, ad := range b.Addends {
			a.AddAddend(-ad.Factor, ad.Mask)
		}
	}
	return a
}

// MulInt multiplies every addend's factor by k in place. k==0 zeroes c.
func (c *Coefficient) MulInt(k int64) *Coefficient {
	if k == 0 {
		c.Addends = nil
		return c
	}
	for i := range c.Addends {
		c.Addends[i].Factor *= k
	}
	return c
}

// Neg returns -c as a new coefficient.
func Neg(c *Coefficient) *Coefficient {
	out := c.DeepCopy()
	out.MulInt(-1)
	return out
}

// validSort reports whether addends are strictly decreasing by Mask and every
// Factor is nonzero.
func (c *Coefficient) validSort() bool {
	for i, a := range c.Addends {
		if a.Factor == 0 {
			return false
		}
		if i > 0 && !(c.Addends[i-1].Mask > a.Mask) {
			return false
		}
	}
	return true
}

// ValidateSortOrder panics if the ordering invariant is violated — this is an
// implementation-defect assertion, not a user-facing error (spec §7).
func (c *Coefficient) ValidateSortOrder() {
	if !c.validSort() {
		panic("ring: coefficient violates sort invariant")
	}
}

// Sort re-sorts a disorderly-constructed coefficient via repeated AddAddend,
// which is O(n^2) — acceptable for the input sizes per spec §4.B.
func Sort(addends []Addend) *Coefficient {
	out := Zero()
	for _, a := range addends {
		out.AddAddend(a.Factor, a.Mask)
	}
	return out
}

// Equal reports structural equality: identical addend lists in order.
func Equal(a, b *Coefficient) bool {
	an, bn := a.DeepCopy(), b.DeepCopy()
	if len(an.Addends) != len(bn.Addends) {
		return false
	}
	for i := range an.Addends {
		if an.Addends[i] != bn.Addends[i] {
			return false
		}
	}
	return true
}

// LeadingMask returns the largest mask present, and whether c is nonzero.
func (c *Coefficient) LeadingMask() (uint64, bool) {
	if c.IsZero() {
		return 0, false
	}
	return c.Addends[0].Mask, true
}
