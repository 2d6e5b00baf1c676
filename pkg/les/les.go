// Package les builds the modified-nodal linear equation system: an
// m x (m+k) coefficient matrix stamped per device (spec.md §4.E).
package les

import (
	"github.com/pkg/errors"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/ring"
	"github.com/shangma/linnet-go/pkg/symtab"
)

// Matrix is the m x (m+k) coefficient matrix. Columns [0,M) are unknowns'
// coefficients; columns [M, M+K) are knowns' (sign convention: each row reads
// "sum of column*variable terms = 0").
type Matrix struct {
	M, K int
	Rows [][]*ring.Coefficient // Rows[row][col]
}

func newMatrix(m, k int) *Matrix {
	rows := make([][]*ring.Coefficient, m)
	for r := range rows {
		row := make([]*ring.Coefficient, m+k)
		for c := range row {
			row[c] = ring.Zero()
		}
		rows[r] = row
	}
	return &Matrix{M: m, K: k, Rows: rows}
}

func (mx *Matrix) add(row, col int, factor int64, mask uint64) {
	if row < 0 || col < 0 {
		return
	}
	mx.Rows[row][col].AddAddend(factor, mask)
}

// Build stamps every device of c into a fresh matrix sized from t.
func Build(c *circuit.Circuit, t *symtab.SymbolTable) (*Matrix, error) {
	m := len(t.Unknowns)
	k := len(t.Knowns)
	mx := newMatrix(m, k)

	nodeIdx := map[string]int{}
	for i, n := range c.Nodes {
		nodeIdx[n] = i
	}
	unknownRowCol := func(node string) (row, col int, ok bool) {
		ni, exists := nodeIdx[node]
		if !exists {
			return 0, 0, false
		}
		ui, ok := t.UnknownByNode(ni)
		if !ok {
			return 0, 0, false
		}
		return t.Unknowns[ui].Row, t.Unknowns[ui].Col, true
	}
	probeCurrentCol := func(probeName string) (col int, err error) {
		probeIdx, ok := deviceIndexByName(c, probeName)
		if !ok {
			return 0, errors.Errorf("les: unknown probe reference %q", probeName)
		}
		ui, ok := t.UnknownByDevice(probeIdx)
		if !ok {
			return 0, errors.Errorf("les: device %q is not a current probe", probeName)
		}
		return t.Unknowns[ui].Col, nil
	}

	for devIdx, d := range c.Devices {
		if err := stampDevice(mx, t, c, d, devIdx, unknownRowCol, probeCurrentCol); err != nil {
			return nil, err
		}
	}
	for r := range mx.Rows {
		for c := range mx.Rows[r] {
			mx.Rows[r][c].ValidateSortOrder()
		}
	}
	return mx, nil
}

func deviceIndexByName(c *circuit.Circuit, name string) (int, bool) {
	for i, d := range c.Devices {
		if d.Name == name {
			return i, true
		}
	}
	return 0, false
}

type rowColFn func(node string) (row, col int, ok bool)
type probeColFn func(probe string) (col int, err error)

func stampDevice(mx *Matrix, t *symtab.SymbolTable, c *circuit.Circuit, d circuit.Device, devIdx int, rc rowColFn, probeCol probeColFn) error {
	fromRow, fromCol, fromOk := rc(d.From)
	toRow, toCol, toOk := rc(d.To)

	switch d.Kind {
	case circuit.Resistor, circuit.Conductance, circuit.Capacitor, circuit.Inductor:
		mask, _ := t.ConstantByDevice(devIdx)
		if fromOk {
			mx.add(fromRow, fromCol, -1, mask)
			if toOk {
				mx.add(fromRow, toCol, 1, mask)
			}
		}
		if toOk {
			mx.add(toRow, toCol, -1, mask)
			if fromOk {
				mx.add(toRow, fromCol, 1, mask)
			}
		}

	case circuit.IndependentV:
		ui, _ := t.UnknownByDevice(devIdx)
		iRow, iCol := t.Unknowns[ui].Row, t.Unknowns[ui].Col
		kn, _ := t.KnownByDevice(devIdx)
		knownCol := mx.M + t.Knowns[kn].Col
		if fromOk {
			mx.add(fromRow, iCol, 1, 0)
		}
		if toOk {
			mx.add(toRow, iCol, -1, 0)
		}
		if fromOk {
			mx.add(iRow, fromCol, 1, 0)
		}
		if toOk {
			mx.add(iRow, toCol, -1, 0)
		}
		mx.add(iRow, knownCol, -1, 0)

	case circuit.IndependentI:
		kn, _ := t.KnownByDevice(devIdx)
		knownCol := mx.M + t.Knowns[kn].Col
		if fromOk {
			mx.add(fromRow, knownCol, -1, 0)
		}
		if toOk {
			mx.add(toRow, knownCol, 1, 0)
		}

	case circuit.OpAmp:
		ui, _ := t.UnknownByDevice(devIdx)
		iRow, iCol := t.Unknowns[ui].Row, t.Unknowns[ui].Col
		outRow, _, outOk := rc(d.Output)
		if outOk {
			mx.add(outRow, iCol, 1, 0)
		}
		if fromOk {
			mx.add(iRow, fromCol, 1, 0)
		}
		if toOk {
			mx.add(iRow, toCol, -1, 0)
		}

	case circuit.CurrentProbe:
		ui, _ := t.UnknownByDevice(devIdx)
		iRow, iCol := t.Unknowns[ui].Row, t.Unknowns[ui].Col
		if fromOk {
			mx.add(fromRow, iCol, -1, 0)
		}
		if toOk {
			mx.add(toRow, iCol, 1, 0)
		}
		if fromOk {
			mx.add(iRow, fromCol, 1, 0)
		}
		if toOk {
			mx.add(iRow, toCol, -1, 0)
		}

	case circuit.VCVS:
		ui, _ := t.UnknownByDevice(devIdx)
		iRow, iCol := t.Unknowns[ui].Row, t.Unknowns[ui].Col
		kn, _ := t.KnownByDevice(devIdx) // VCVS has no known column; kept for symmetry, unused
		_ = kn
		gain, _ := t.ConstantByDevice(devIdx)
		if fromOk {
			mx.add(fromRow, iCol, 1, 0)
		}
		if toOk {
			mx.add(toRow, iCol, -1, 0)
		}
		if fromOk {
			mx.add(iRow, fromCol, 1, 0)
		}
		if toOk {
			mx.add(iRow, toCol, -1, 0)
		}
		_, cpCol, cpOk := rc(d.CtrlPlus)
		_, cmCol, cmOk := rc(d.CtrlMinus)
		if cpOk {
			mx.add(iRow, cpCol, -1, gain)
		}
		if cmOk {
			mx.add(iRow, cmCol, 1, gain)
		}

	case circuit.CCVS:
		ui, _ := t.UnknownByDevice(devIdx)
		iRow, iCol := t.Unknowns[ui].Row, t.Unknowns[ui].Col
		gain, _ := t.ConstantByDevice(devIdx)
		if fromOk {
			mx.add(fromRow, iCol, 1, 0)
		}
		if toOk {
			mx.add(toRow, iCol, -1, 0)
		}
		if fromOk {
			mx.add(iRow, fromCol, 1, 0)
		}
		if toOk {
			mx.add(iRow, toCol, -1, 0)
		}
		pc, err := probeCol(d.ProbeRef)
		if err != nil {
			return err
		}
		mx.add(iRow, pc, -1, gain)

	case circuit.VCCS:
		gain, _ := t.ConstantByDevice(devIdx)
		_, cpCol, cpOk := rc(d.CtrlPlus)
		_, cmCol, cmOk := rc(d.CtrlMinus)
		if fromOk {
			if cpOk {
				mx.add(fromRow, cpCol, -1, gain)
			}
			if cmOk {
				mx.add(fromRow, cmCol, 1, gain)
			}
		}
		if toOk {
			if cpOk {
				mx.add(toRow, cpCol, 1, gain)
			}
			if cmOk {
				mx.add(toRow, cmCol, -1, gain)
			}
		}

	case circuit.CCCS:
		gain, _ := t.ConstantByDevice(devIdx)
		pc, err := probeCol(d.ProbeRef)
		if err != nil {
			return err
		}
		if fromOk {
			mx.add(fromRow, pc, -1, gain)
		}
		if toOk {
			mx.add(toRow, pc, 1, gain)
		}

	default:
		return errors.Errorf("les: unknown device kind for %q", d.Name)
	}
	return nil
}
