// Package symtab builds the dense symbol tables of knowns, unknowns, and
// constants that back the LES (spec.md §3, §4.C).
package symtab

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/rational"
)

// DefaultBitmaskWidth is the width of the product-of-constants bitmask
// (spec §6 "Hard numeric limit"). A reimplementation may widen this per
// Design Notes; it is a constructor parameter here, not a compile-time const.
const DefaultBitmaskWidth = 64

// ErrLimitExceeded is returned when the number of constants exceeds the
// bitmask width.
var ErrLimitExceeded = errors.New("symtab: number of constants exceeds bitmask width")

// ErrNameClash is returned when a name collides across the forbidden classes.
var ErrNameClash = errors.New("symtab: ambiguous name")

// ErrUnknownName is returned by SetTargetUnknownForSolver for an unrecognized name.
var ErrUnknownName = errors.New("symtab: not an unknown")

// Known is an independent source column.
type Known struct {
	Name        string
	DeviceIndex int
	Col         int
}

// Unknown is a node voltage or an extra branch current.
type Unknown struct {
	Name        string
	NodeIndex   int // -1 if not a node voltage
	SubnetID    int // -1 if not applicable
	DeviceIndex int // -1 if not an extra-current unknown
	Row         int
	Col         int
}

// Constant is a device value symbol assigned one bitmask bit.
type Constant struct {
	Name        string
	DeviceIndex int
	Bit         int
}

// SymbolTable is the builder and, after Finalize, the immutable lookup table.
type SymbolTable struct {
	Circuit *circuit.Circuit

	BitmaskWidth int

	Knowns    []Known
	Unknowns  []Unknown
	Constants []Constant

	names map[string]struct{}

	knownByDevice    map[int]int
	unknownByNode    map[int]int
	unknownByDevice  map[int]int
	constantByDevice map[int]int

	finalized bool
}

// New creates an empty builder for circuit c.
func New(c *circuit.Circuit, bitmaskWidth int) *SymbolTable {
	if bitmaskWidth <= 0 {
		bitmaskWidth = DefaultBitmaskWidth
	}
	return &SymbolTable{
		Circuit:          c,
		BitmaskWidth:     bitmaskWidth,
		names:            map[string]struct{}{"s": {}},
		knownByDevice:    map[int]int{},
		unknownByNode:    map[int]int{},
		unknownByDevice:  map[int]int{},
		constantByDevice: map[int]int{},
	}
}

func (t *SymbolTable) claim(name string) error {
	if _, dup := t.names[name]; dup {
		return errors.Wrapf(ErrNameClash, "name %q already defined", name)
	}
	t.names[name] = struct{}{}
	return nil
}

// AddKnown registers an independent source as a known and records its column
// index in Known.Col (columns are assigned sequentially starting at 0 for
// knowns too; callers offset by the unknown count when building the LES per
// spec §3).
func (t *SymbolTable) AddKnown(name string, deviceIndex int) error {
	if err := t.claim(name); err != nil {
		return err
	}
	idx := len(t.Knowns)
	t.Knowns = append(t.Knowns, Known{Name: name, DeviceIndex: deviceIndex, Col: idx})
	t.knownByDevice[deviceIndex] = idx
	return nil
}

// AddUnknown registers a node voltage (nodeIndex >= 0) or an extra branch
// current (deviceIndex >= 0, nodeIndex == -1).
func (t *SymbolTable) AddUnknown(name string, nodeIndex, subnetID, deviceIndex int) error {
	if err := t.claim(name); err != nil {
		return err
	}
	idx := len(t.Unknowns)
	u := Unknown{Name: name, NodeIndex: nodeIndex, SubnetID: subnetID, DeviceIndex: deviceIndex, Row: idx, Col: idx}
	t.Unknowns = append(t.Unknowns, u)
	if nodeIndex >= 0 {
		t.unknownByNode[nodeIndex] = idx
	}
	if deviceIndex >= 0 {
		t.unknownByDevice[deviceIndex] = idx
	}
	return nil
}

// AddConstant registers a device's value as a constant under the device's
// name. The name is claimed like every other entry, so it clashes with any
// known, unknown or constant already registered under the same name.
func (t *SymbolTable) AddConstant(name string, deviceIndex int) error {
	if err := t.claim(name); err != nil {
		return err
	}
	t.Constants = append(t.Constants, Constant{Name: name, DeviceIndex: deviceIndex})
	return nil
}

// kindRank orders R before L before C for the stable constants sort; other
// kinds sort after, in the order conductance, VCVS, VCCS, CCVS, CCCS gain.
// Finalize breaks ties within one kind by name.
func kindRank(k circuit.Kind) int {
	switch k {
	case circuit.Resistor:
		return 0
	case circuit.Inductor:
		return 1
	case circuit.Capacitor:
		return 2
	case circuit.Conductance:
		return 3
	case circuit.VCVS:
		return 4
	case circuit.VCCS:
		return 5
	case circuit.CCVS:
		return 6
	case circuit.CCCS:
		return 7
	default:
		return 8
	}
}

// Finalize fixes the constants' order (and therefore their bit assignment)
// and rebuilds constantByDevice / deviceByBitIndex accordingly.
func (t *SymbolTable) Finalize() error {
	if len(t.Constants) > t.BitmaskWidth {
		return errors.Wrapf(ErrLimitExceeded, "%d constants > width %d", len(t.Constants), t.BitmaskWidth)
	}
	devs := t.Circuit.Devices
	sort.SliceStable(t.Constants, func(i, j int) bool {
		ki := devs[t.Constants[i].DeviceIndex].Kind
		kj := devs[t.Constants[j].DeviceIndex].Kind
		if ri, rj := kindRank(ki), kindRank(kj); ri != rj {
			return ri < rj
		}
		return t.Constants[i].Name < t.Constants[j].Name
	})
	t.constantByDevice = map[int]int{}
	for i := range t.Constants {
		t.Constants[i].Bit = i
		t.constantByDevice[t.Constants[i].DeviceIndex] = i
	}
	t.finalized = true
	return nil
}

// KnownByDevice returns the known index for a device, or ok=false.
func (t *SymbolTable) KnownByDevice(deviceIndex int) (int, bool) {
	i, ok := t.knownByDevice[deviceIndex]
	return i, ok
}

// UnknownByNode returns the unknown index for a node, or ok=false if the node
// is ground (or otherwise has no unknown).
func (t *SymbolTable) UnknownByNode(nodeIndex int) (int, bool) {
	i, ok := t.unknownByNode[nodeIndex]
	return i, ok
}

// UnknownByDevice returns the extra-current unknown index for a device.
func (t *SymbolTable) UnknownByDevice(deviceIndex int) (int, bool) {
	i, ok := t.unknownByDevice[deviceIndex]
	return i, ok
}

// ConstantByDevice returns a bitmask with a single bit set: the device's
// assigned constant bit.
func (t *SymbolTable) ConstantByDevice(deviceIndex int) (uint64, bool) {
	i, ok := t.constantByDevice[deviceIndex]
	if !ok {
		return 0, false
	}
	return uint64(1) << uint(t.Constants[i].Bit), true
}

// DeviceByBitIndex returns the device index owning bit i.
func (t *SymbolTable) DeviceByBitIndex(bit int) int {
	return t.Constants[bit].DeviceIndex
}

// ResolveReferencedDevice walks the (acyclic) relation chain starting at
// bitIndex, returning the accumulated rational factor, the final device, and
// the final bit index. It fails if the chain exceeds the number of constants
// (cycle guard) or if a multiplication overflows.
func (t *SymbolTable) ResolveReferencedDevice(bitIndex int, flag *rational.Flag) (rational.Rational, circuit.Device, int, error) {
	factor := rational.One
	bit := bitIndex
	devs := t.Circuit.Devices
	maxSteps := len(t.Constants) + 1
	for step := 0; ; step++ {
		if step > maxSteps {
			return rational.Zero, circuit.Device{}, 0, errors.New("symtab: relation chain exceeds constant count (cycle?)")
		}
		dev := devs[t.DeviceByBitIndex(bit)]
		if dev.Relation == nil {
			return factor, dev, bit, nil
		}
		rf := rationalFromFloat(dev.Relation.Factor)
		factor = rational.Mul(factor, rf, flag)
		if flag.Test() {
			return rational.Zero, circuit.Device{}, 0, errors.New("symtab: relation factor overflow")
		}
		other, ok := t.Circuit.DeviceByName(dev.Relation.Other)
		if !ok {
			return rational.Zero, circuit.Device{}, 0, errors.Errorf("symtab: relation references unknown device %q", dev.Relation.Other)
		}
		otherIdx, _ := t.deviceIndexByName(dev.Relation.Other)
		nb, ok := t.ConstantByDevice(otherIdx)
		if !ok {
			return rational.Zero, circuit.Device{}, 0, errors.Errorf("symtab: relation target %q has no constant", other.Name)
		}
		bit = bitFromMask(nb)
	}
}

func (t *SymbolTable) deviceIndexByName(name string) (int, bool) {
	for i, d := range t.Circuit.Devices {
		if d.Name == name {
			return i, true
		}
	}
	return 0, false
}

func bitFromMask(mask uint64) int {
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}

// rationalFromFloat converts a decimal relation factor (as authored in a
// netlist) to an exact rational via a fixed-point scaling, matching the
// precision a textual netlist can realistically express.
func rationalFromFloat(v float64) rational.Rational {
	const scale = 1_000_000
	return rational.Rational{Num: int64(v * scale), Den: scale}
}

// SetTargetUnknownForSolver swaps the named unknown's column with the
// rightmost column (m-1), matching §4.C's only post-Finalize mutation.
func (t *SymbolTable) SetTargetUnknownForSolver(name string) error {
	m := len(t.Unknowns)
	for i := range t.Unknowns {
		if t.Unknowns[i].Name == name {
			last := m - 1
			t.Unknowns[i].Col, t.Unknowns[last].Col = t.Unknowns[last].Col, t.Unknowns[i].Col
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownName, "name %q", name)
}
