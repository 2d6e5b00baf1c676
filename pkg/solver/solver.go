// Package solver implements the fraction-free (Bareiss-style) symbolic
// Gaussian elimination over the coefficient ring, and the per-circuit driver
// that runs it once per required unknown (spec.md §4.F).
package solver

import (
	"github.com/pkg/errors"

	"github.com/shangma/linnet-go/pkg/les"
	"github.com/shangma/linnet-go/pkg/ring"
)

// ErrSingular is returned when the LES has no unique solution.
var ErrSingular = errors.New("solver: linearly dependent or contradictory equations")

var (
	errDivideByZero      = errors.New("solver: division by zero coefficient")
	errInexactDivision   = errors.New("solver: inexact division (implementation invariant violated)")
	errPivotNotUnit      = errors.New("solver: pivot factor is not +-1 (implementation invariant violated)")
	errExponentOutOfRange = errors.New("solver: quotient exponent outside {0,1} (implementation invariant violated)")
)

// Result is the outcome of eliminating one matrix: the determinant
// A[m-1][m-1] and the last-row numerators (A[m-1][m..m+k-1]), both already
// sign-inverted once when an odd number of pivot row swaps occurred, plus the
// count of row swaps performed while pivoting.
type Result struct {
	Determinant *ring.Coefficient
	Numerators  []*ring.Coefficient
	RowSwaps    int
}

func copyMatrix(mx *les.Matrix) *les.Matrix {
	out := &les.Matrix{M: mx.M, K: mx.K, Rows: make([][]*ring.Coefficient, len(mx.Rows))}
	for r, row := range mx.Rows {
		nr := make([]*ring.Coefficient, len(row))
		for c, cell := range row {
			nr[c] = cell.DeepCopy()
		}
		out.Rows[r] = nr
	}
	return out
}

func swapColumns(mx *les.Matrix, c1, c2 int) {
	if c1 == c2 {
		return
	}
	for _, row := range mx.Rows {
		row[c1], row[c2] = row[c2], row[c1]
	}
}

func swapRows(mx *les.Matrix, r1, r2 int) {
	if r1 == r2 {
		return
	}
	mx.Rows[r1], mx.Rows[r2] = mx.Rows[r2], mx.Rows[r1]
}

// Eliminate runs fraction-free Gauss elimination on mx in place, assuming the
// targeted unknown already sits in column m-1. It returns the determinant,
// the numerators of the targeted unknown's terms (both corrected for the
// parity of pivot row swaps), and the number of row swaps performed.
func Eliminate(mx *les.Matrix) (*Result, error) {
	m := mx.M
	if m == 0 {
		return &Result{Determinant: ring.One(), Numerators: nil}, nil
	}
	d := ring.One()
	swaps := 0

	for step := 0; step < m-1; step++ {
		if mx.Rows[step][step].IsZero() {
			found := -1
			for row := step + 1; row < m; row++ {
				if !mx.Rows[row][step].IsZero() {
					found = row
					break
				}
			}
			if found == -1 {
				return nil, errors.Wrapf(ErrSingular, "no nonzero pivot at step %d", step)
			}
			swapRows(mx, step, found)
			swaps++
		}

		pivot := mx.Rows[step][step]
		for row := step + 1; row < m; row++ {
			arStep := mx.Rows[row][step]
			if arStep.IsZero() {
				continue
			}
			for col := step + 1; col < len(mx.Rows[row]); col++ {
				num := subPoly(
					mulPoly(fromCoefficient(mx.Rows[row][col]), fromCoefficient(pivot)),
					mulPoly(fromCoefficient(mx.Rows[step][col]), fromCoefficient(arStep)),
				)
				divided, err := divideExact(num, d)
				if err != nil {
					return nil, errors.Wrapf(err, "step %d row %d col %d", step, row, col)
				}
				mx.Rows[row][col] = divided
			}
		}
		d = pivot
	}

	last := m - 1
	if swaps%2 == 1 {
		// All non-null coefficients of the last equation are sign-inverted
		// once per odd number of pivot row swaps (spec §4.F).
		for col := last; col < len(mx.Rows[last]); col++ {
			mx.Rows[last][col].MulInt(-1)
		}
	}
	det := mx.Rows[last][last]
	numerators := make([]*ring.Coefficient, mx.K)
	for j := 0; j < mx.K; j++ {
		numerators[j] = mx.Rows[last][mx.M+j]
	}
	return &Result{Determinant: det, Numerators: numerators, RowSwaps: swaps}, nil
}

// Solve swaps the target column into position m-1 on a fresh copy of mx and
// runs Eliminate, returning its result (no cross-unknown sign bookkeeping
// — that is SolveAll's job).
func Solve(mx *les.Matrix, targetCol int) (*Result, error) {
	work := copyMatrix(mx)
	swapColumns(work, targetCol, work.M-1)
	return Eliminate(work)
}
