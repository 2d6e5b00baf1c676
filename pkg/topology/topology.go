// Package topology partitions a circuit's nodes into connected components and
// selects a ground node per component (spec.md §4.D).
package topology

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/shangma/linnet-go/pkg/circuit"
)

// ErrTopology is the base error for all fatal connectivity diagnostics (§7).
var ErrTopology = errors.New("topology")

// Analysis is the result of partitioning a circuit.
type Analysis struct {
	// Component[i] is the 0-based component id of node i.
	Component []int
	NumComponents int
	// Ground[c] is the node index chosen as ground for component c.
	Ground []int
	// HasLogicalCouplings is true if any controlled source exists, which
	// downgrades the "multiple components" diagnostic to informational.
	HasLogicalCouplings bool
}

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) { u.parent[u.find(a)] = u.find(b) }

func nodeIndex(c *circuit.Circuit) map[string]int {
	m := make(map[string]int, len(c.Nodes))
	for i, n := range c.Nodes {
		m[n] = i
	}
	return m
}

// Analyze computes connected components and selects a ground per component.
// Only primary terminals induce connectivity; sense terminals and the op-amp
// output do not (spec §4.D).
func Analyze(c *circuit.Circuit) (*Analysis, error) {
	idx := nodeIndex(c)
	uf := newUnionFind(len(c.Nodes))

	hasCoupling := false
	opAmpOutputNodes := map[int]string{} // node -> owning op-amp name, for the "shared output" check

	for _, d := range c.Devices {
		if d.Kind.Controlled() {
			hasCoupling = true
		}
		from, okFrom := idx[d.From]
		to, okTo := idx[d.To]
		if okFrom && okTo {
			uf.union(from, to)
		}
		if d.Kind == circuit.OpAmp {
			out, ok := idx[d.Output]
			if ok {
				if other, dup := opAmpOutputNodes[out]; dup {
					return nil, errors.Wrapf(ErrTopology, "op-amps %q and %q share output node %q", other, d.Name, d.Output)
				}
				opAmpOutputNodes[out] = d.Name
				// Output does not induce connectivity for operating-current
				// purposes (spec.md §4.D): only the cross-component check
				// below, run against the primary-terminal-only graph, ties it
				// back to in1/in2.
			}
		}
	}

	// Cross-component checks for sense pairs and output terminals.
	for _, d := range c.Devices {
		from, okFrom := idx[d.From]
		if d.Kind == circuit.OpAmp {
			in1, ok1 := idx[d.From]
			in2, ok2 := idx[d.To]
			out, ok3 := idx[d.Output]
			if ok1 && ok2 && ok3 {
				if uf.find(in1) != uf.find(in2) || uf.find(in2) != uf.find(out) {
					return nil, errors.Wrapf(ErrTopology, "op-amp %q terminals lie in different components", d.Name)
				}
			}
		}
		if d.Kind.VoltageControlled() {
			cp, ok1 := idx[d.CtrlPlus]
			cm, ok2 := idx[d.CtrlMinus]
			if ok1 && ok2 && okFrom {
				if uf.find(cp) != uf.find(cm) || uf.find(cp) != uf.find(from) {
					return nil, errors.Wrapf(ErrTopology, "controlled source %q sense pair straddles components", d.Name)
				}
			}
		}
	}
	for _, v := range c.Voltages {
		p, okp := idx[v.Plus]
		m, okm := idx[v.Minus]
		if okp && okm && uf.find(p) != uf.find(m) {
			return nil, errors.Wrapf(ErrTopology, "user-defined voltage %q straddles components", v.Name)
		}
	}

	// Relabel components densely.
	relabel := map[int]int{}
	comp := make([]int, len(c.Nodes))
	for i := range c.Nodes {
		root := uf.find(i)
		id, ok := relabel[root]
		if !ok {
			id = len(relabel)
			relabel[root] = id
		}
		comp[i] = id
	}
	numComp := len(relabel)

	ground := make([]int, numComp)
	for i := range ground {
		ground[i] = -1
	}
	componentHasOpAmp := make([]bool, numComp)
	for _, d := range c.Devices {
		if d.Kind == circuit.OpAmp {
			if from, ok := idx[d.From]; ok {
				componentHasOpAmp[comp[from]] = true
			}
		}
	}

	for ci := 0; ci < numComp; ci++ {
		g, err := selectGround(c, comp, ci, componentHasOpAmp[ci])
		if err != nil {
			return nil, err
		}
		ground[ci] = g
	}

	hasSource := make([]bool, numComp)
	for _, d := range c.Devices {
		if d.Kind == circuit.IndependentV || d.Kind == circuit.IndependentI || d.Kind.Controlled() {
			if from, ok := idx[d.From]; ok {
				hasSource[comp[from]] = true
			}
		}
	}
	for ci := 0; ci < numComp; ci++ {
		if !hasSource[ci] {
			return nil, errors.Wrapf(ErrTopology, "component %d has no source-of-current path", ci)
		}
	}

	// Ground may not coincide with an op-amp output.
	for outNode := range opAmpOutputNodes {
		ci := comp[outNode]
		if ground[ci] == outNode {
			return nil, errors.Wrapf(ErrTopology, "ground node coincides with op-amp output in component %d", ci)
		}
	}

	return &Analysis{
		Component:           comp,
		NumComponents:        numComp,
		Ground:               ground,
		HasLogicalCouplings:  hasCoupling,
	}, nil
}

var groundSubstrings = []string{"gnd", "Gnd", "GND", "ground", "Ground", "GROUND"}

func looksLikeGround(name string) bool {
	for _, s := range groundSubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func selectGround(c *circuit.Circuit, comp []int, componentID int, hasOpAmp bool) (int, error) {
	var candidates []int
	var firstInComponent = -1
	for i, n := range c.Nodes {
		if comp[i] != componentID {
			continue
		}
		if firstInComponent == -1 {
			firstInComponent = i
		}
		if looksLikeGround(n) {
			candidates = append(candidates, i)
		}
	}
	switch {
	case len(candidates) > 1:
		return -1, errors.Wrapf(ErrTopology, "multiple ground-like nodes in component %d", componentID)
	case len(candidates) == 1:
		return candidates[0], nil
	case hasOpAmp:
		return -1, errors.Wrapf(ErrTopology, "component %d contains an op-amp but no explicit ground", componentID)
	default:
		return firstInComponent, nil
	}
}
