package symtab

import (
	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/topology"
)

// Build constructs and finalizes a SymbolTable from a circuit and its
// topology analysis, in the order spec.md §3 describes: knowns first
// (independent sources in device order), then unknowns (non-ground node
// voltages in node order, followed by extra branch currents in device
// order), then constants (passives and controlled-source gains in device
// order, re-sorted by Finalize).
func Build(c *circuit.Circuit, topo *topology.Analysis, bitmaskWidth int) (*SymbolTable, error) {
	t := New(c, bitmaskWidth)

	for i, d := range c.Devices {
		if d.Kind == circuit.IndependentV || d.Kind == circuit.IndependentI {
			if err := t.AddKnown(d.Name, i); err != nil {
				return nil, err
			}
		}
	}

	nodeIdx := map[string]int{}
	for i, n := range c.Nodes {
		nodeIdx[n] = i
	}
	isGround := map[int]bool{}
	for _, g := range topo.Ground {
		if g >= 0 {
			isGround[g] = true
		}
	}
	for i, n := range c.Nodes {
		if isGround[i] {
			continue
		}
		if err := t.AddUnknown(n, i, topo.Component[i], -1); err != nil {
			return nil, err
		}
	}
	for i, d := range c.Devices {
		if d.Kind.IntroducesCurrentUnknown() {
			name := "I_" + d.Name
			if err := t.AddUnknown(name, -1, -1, i); err != nil {
				return nil, err
			}
		}
	}

	for i, d := range c.Devices {
		if d.Kind.HasValue() {
			if err := t.AddConstant(d.Name, i); err != nil {
				return nil, err
			}
		}
	}

	if err := t.Finalize(); err != nil {
		return nil, err
	}
	return t, nil
}
