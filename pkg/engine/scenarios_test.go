package engine_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/engine"
	"github.com/shangma/linnet-go/pkg/freq"
	"github.com/shangma/linnet-go/pkg/render"
	"github.com/shangma/linnet-go/pkg/symtab"
)

func newEngine() *engine.Engine {
	e := engine.New(engine.Config{})
	e.FS = afero.NewMemMapFs()
	e.Log.SetOutput(noopWriter{})
	return e
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

// evalExpr evaluates a denormalized frequency-domain expression at a concrete
// s and set of device values, for end-to-end numeric assertions that don't
// depend on the expression's internal term ordering or naming.
func evalExpr(e *freq.Expression, t *symtab.SymbolTable, values map[string]float64, sVal float64) float64 {
	if e.IsZero() {
		return 0
	}
	var sum float64
	for _, a := range e.Addends {
		v := float64(a.Factor.Num) / float64(a.Factor.Den)
		v *= math.Pow(sVal, float64(a.PowerS))
		for bit, exp := range a.PowerConst {
			dev := t.Circuit.Devices[t.DeviceByBitIndex(bit)]
			val, ok := values[dev.Name]
			if !ok {
				val = 1
			}
			v *= math.Pow(val, float64(exp))
		}
		sum += v
	}
	return sum
}

// transferValue evaluates the named dependent's transfer function against
// the named independent source at a concrete s and device values.
func transferValue(fsol *render.Solution, depName, knownName string, values map[string]float64, sVal float64) (float64, bool) {
	known := render.KnownNames(fsol.Table)
	ki := -1
	for i, name := range known {
		if name == knownName {
			ki = i
		}
	}
	if ki == -1 {
		return 0, false
	}
	for di, dep := range fsol.Dependents {
		if dep.Name != depName {
			continue
		}
		if !fsol.NumValid[di][ki] {
			return 0, false
		}
		nref := fsol.NumeratorRef[di][ki]
		dref := fsol.DenominatorRef[di][ki]
		nEnt := fsol.Map.Entries[nref.Index]
		dEnt := fsol.Map.Entries[dref.Index]
		num := evalExpr(nEnt.Expr, fsol.Table, values, sVal)
		den := evalExpr(dEnt.Expr, fsol.Table, values, sVal)
		if nref.Negated {
			num = -num
		}
		if dref.Negated {
			den = -den
		}
		return num / den, true
	}
	return 0, false
}

var _ = Describe("RC low-pass", func() {
	It("solves to 1/(1 + R1*C1*s)", func() {
		c := &circuit.Circuit{
			Name:  "rc_lowpass",
			Nodes: []string{"in", "out", "gnd"},
			Devices: []circuit.Device{
				{Name: "R1", Kind: circuit.Resistor, From: "in", To: "out"},
				{Name: "C1", Kind: circuit.Capacitor, From: "out", To: "gnd"},
				{Name: "U1", Kind: circuit.IndependentV, From: "in", To: "gnd"},
			},
			Requests: []circuit.ResultRequest{{Name: "H", Dependents: []string{"out"}, Independent: "U1"}},
		}
		e := newEngine()
		res, err := e.SolveCircuit(c)
		Expect(err).NotTo(HaveOccurred())

		r1, c1, sVal := 2.0, 3.0, 5.0
		got, ok := transferValue(res.FreqSol, "out", "U1", map[string]float64{"R1": r1, "C1": c1}, sVal)
		Expect(ok).To(BeTrue())
		want := 1.0 / (1.0 + r1*c1*sVal)
		Expect(got).To(BeNumerically("~", want, 1e-9))
	})
})

var _ = Describe("Inverting op-amp", func() {
	It("solves to a constant -R2/R1", func() {
		c := &circuit.Circuit{
			Name:  "inverting_amp",
			Nodes: []string{"in", "minus", "out", "gnd"},
			Devices: []circuit.Device{
				{Name: "R1", Kind: circuit.Resistor, From: "in", To: "minus"},
				{Name: "R2", Kind: circuit.Resistor, From: "minus", To: "out"},
				{Name: "U1", Kind: circuit.OpAmp, From: "gnd", To: "minus", Output: "out"},
				{Name: "Uin", Kind: circuit.IndependentV, From: "in", To: "gnd"},
			},
			Requests: []circuit.ResultRequest{{Name: "H", Dependents: []string{"out"}, Independent: "Uin"}},
		}
		e := newEngine()
		res, err := e.SolveCircuit(c)
		Expect(err).NotTo(HaveOccurred())

		r1, r2 := 1000.0, 4700.0
		want := -r2 / r1
		for _, sVal := range []float64{0, 1, 1000} {
			got, ok := transferValue(res.FreqSol, "out", "Uin", map[string]float64{"R1": r1, "R2": r2}, sVal)
			Expect(ok).To(BeTrue())
			Expect(got).To(BeNumerically("~", want, 1e-9), "transfer function must be constant in s")
		}
	})
})

var _ = Describe("Ideal integrator", func() {
	It("solves to -1/(R*C*s)", func() {
		c := &circuit.Circuit{
			Name:  "integrator",
			Nodes: []string{"in", "minus", "out", "gnd"},
			Devices: []circuit.Device{
				{Name: "R1", Kind: circuit.Resistor, From: "in", To: "minus"},
				{Name: "C1", Kind: circuit.Capacitor, From: "minus", To: "out"},
				{Name: "U1", Kind: circuit.OpAmp, From: "gnd", To: "minus", Output: "out"},
				{Name: "Uin", Kind: circuit.IndependentV, From: "in", To: "gnd"},
			},
			Requests: []circuit.ResultRequest{{Name: "H", Dependents: []string{"out"}, Independent: "Uin"}},
		}
		e := newEngine()
		res, err := e.SolveCircuit(c)
		Expect(err).NotTo(HaveOccurred())

		r1, c1, sVal := 10e3, 1e-6, 2.0
		got, ok := transferValue(res.FreqSol, "out", "Uin", map[string]float64{"R1": r1, "C1": c1}, sVal)
		Expect(ok).To(BeTrue())
		want := -1.0 / (r1 * c1 * sVal)
		Expect(got).To(BeNumerically("~", want, 1e-9))
	})
})

var _ = Describe("Two independent sub-circuits", func() {
	It("solves each RC low-pass output independently, each in its own component with its own ground", func() {
		c := &circuit.Circuit{
			Name:  "two_subcircuits",
			Nodes: []string{"in1", "out1", "gnd1", "in2", "out2", "gnd2"},
			Devices: []circuit.Device{
				{Name: "R1", Kind: circuit.Resistor, From: "in1", To: "out1"},
				{Name: "C1", Kind: circuit.Capacitor, From: "out1", To: "gnd1"},
				{Name: "U1", Kind: circuit.IndependentV, From: "in1", To: "gnd1"},
				{Name: "R2", Kind: circuit.Resistor, From: "in2", To: "out2"},
				{Name: "C2", Kind: circuit.Capacitor, From: "out2", To: "gnd2"},
				{Name: "U2", Kind: circuit.IndependentV, From: "in2", To: "gnd2"},
			},
			Requests: []circuit.ResultRequest{
				{Name: "H1", Dependents: []string{"out1"}, Independent: "U1"},
				{Name: "H2", Dependents: []string{"out2"}, Independent: "U2"},
			},
		}
		e := newEngine()
		res, err := e.SolveCircuit(c)
		Expect(err).NotTo(HaveOccurred())

		r1, c1v, r2, c2v, sVal := 2.0, 3.0, 7.0, 11.0, 5.0
		got1, ok := transferValue(res.FreqSol, "out1", "U1", map[string]float64{"R1": r1, "C1": c1v}, sVal)
		Expect(ok).To(BeTrue())
		Expect(got1).To(BeNumerically("~", 1.0/(1.0+r1*c1v*sVal), 1e-9))

		got2, ok := transferValue(res.FreqSol, "out2", "U2", map[string]float64{"R2": r2, "C2": c2v}, sVal)
		Expect(ok).To(BeTrue())
		Expect(got2).To(BeNumerically("~", 1.0/(1.0+r2*c2v*sVal), 1e-9))
	})
})

var _ = Describe("CCVS amplifier", func() {
	It("solves to a transfer function linear in the CCVS gain K", func() {
		c := &circuit.Circuit{
			Name:  "ccvs_amp",
			Nodes: []string{"in", "base", "mid", "out", "gnd"},
			Devices: []circuit.Device{
				{Name: "Rin", Kind: circuit.Resistor, From: "in", To: "base"},
				{Name: "P", Kind: circuit.CurrentProbe, From: "base", To: "mid"},
				{Name: "Rb", Kind: circuit.Resistor, From: "mid", To: "gnd"},
				{Name: "H1", Kind: circuit.CCVS, From: "out", To: "gnd", ProbeRef: "P"},
				{Name: "Uin", Kind: circuit.IndependentV, From: "in", To: "gnd"},
			},
			Requests: []circuit.ResultRequest{{Name: "H", Dependents: []string{"out"}, Independent: "Uin"}},
		}
		e := newEngine()
		res, err := e.SolveCircuit(c)
		Expect(err).NotTo(HaveOccurred())

		values := map[string]float64{"Rin": 100, "Rb": 220}
		k0 := 10.0
		values["H1"] = k0
		v0, ok := transferValue(res.FreqSol, "out", "Uin", values, 1.0)
		Expect(ok).To(BeTrue())
		values["H1"] = 2 * k0
		v1, ok := transferValue(res.FreqSol, "out", "Uin", values, 1.0)
		Expect(ok).To(BeTrue())
		values["H1"] = 3 * k0
		v2, ok := transferValue(res.FreqSol, "out", "Uin", values, 1.0)
		Expect(ok).To(BeTrue())

		// linear in K: equal spacing in K must produce equal spacing in the
		// transfer function value (second difference is zero).
		Expect((v2 - v1) - (v1 - v0)).To(BeNumerically("~", 0, 1e-9))
		Expect(v1 - v0).NotTo(BeNumerically("~", 0, 1e-9))
	})
})

var _ = Describe("Singular input", func() {
	It("reports a Singular error for two conflicting parallel voltage sources", func() {
		c := &circuit.Circuit{
			Name:  "conflicting_sources",
			Nodes: []string{"a", "gnd"},
			Devices: []circuit.Device{
				{Name: "V1", Kind: circuit.IndependentV, From: "a", To: "gnd"},
				{Name: "V2", Kind: circuit.IndependentV, From: "a", To: "gnd"},
			},
		}
		e := newEngine()
		_, err := e.SolveCircuit(c)
		Expect(err).To(HaveOccurred())

		cerr, ok := err.(*engine.CircuitError)
		Expect(ok).To(BeTrue())
		Expect(cerr.Kind).To(Equal(engine.KindSingular))
		Expect(cerr.Error()).To(ContainSubstring("step"))
	})
})

var _ = Describe("Engine log level", func() {
	It("accepts every documented log level", func() {
		for _, lvl := range []string{"debug", "info", "warn", "error"} {
			_, err := logrus.ParseLevel(lvl)
			Expect(err).NotTo(HaveOccurred())
		}
	})
})
