package script

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/rational"
	"github.com/shangma/linnet-go/pkg/render"
	"github.com/shangma/linnet-go/pkg/ring"
	"github.com/shangma/linnet-go/pkg/solver"
	"github.com/shangma/linnet-go/pkg/symtab"
)

func TestStandardDefaultsMatchDocumentedSIUnits(t *testing.T) {
	d := StandardDefaults()
	cases := map[string]float64{
		"resistor":         100,
		"conductance":      0.01,
		"inductor":         0.001,
		"capacitor":        0.00001,
		"voltage_gain":     1,
		"transconductance": 0.005,
		"current_gain":     250,
	}
	got := map[string]float64{
		"resistor":         d.Resistor,
		"conductance":      d.Conductance,
		"inductor":         d.Inductor,
		"capacitor":        d.Capacitor,
		"voltage_gain":     d.VoltageGain,
		"transconductance": d.Transconductance,
		"current_gain":     d.CurrentGain,
	}
	for k, want := range cases {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
}

func TestDecodeDefaultsOverlay(t *testing.T) {
	d, err := DecodeDefaults(map[string]interface{}{"resistor": 47.0})
	if err != nil {
		t.Fatalf("DecodeDefaults: %v", err)
	}
	if d.Resistor != 47 {
		t.Fatalf("Resistor = %v, want 47", d.Resistor)
	}
	if d.Capacitor != StandardDefaults().Capacitor {
		t.Fatalf("unrelated default Capacitor changed: %v", d.Capacitor)
	}
}

func TestWriteProducesRunnableScript(t *testing.T) {
	c := &circuit.Circuit{
		Name:  "rc",
		Nodes: []string{"in", "out", "gnd"},
		Devices: []circuit.Device{
			{Name: "R1", Kind: circuit.Resistor, From: "in", To: "out"},
			{Name: "C1", Kind: circuit.Capacitor, From: "out", To: "gnd"},
			{Name: "Vin", Kind: circuit.IndependentV, From: "in", To: "gnd"},
		},
	}
	st := symtab.New(c, 64)
	must(t, st.AddUnknown("out", 1, 0, -1))
	must(t, st.AddKnown("Vin", 2))
	must(t, st.AddConstant("R1", 0))
	must(t, st.AddConstant("C1", 1))
	must(t, st.Finalize())

	r1Bit, _ := st.ConstantByDevice(0)
	c1Bit, _ := st.ConstantByDevice(1)
	det := ring.Zero()
	det.AddAddend(1, r1Bit)
	det.AddAddend(1, c1Bit)
	num := ring.Zero()
	num.AddAddend(1, r1Bit)

	sol := &solver.Solution{
		Table:        st,
		Determinant:  det,
		Numerators:   [][]*ring.Coefficient{{num}},
		UserVoltages: map[string][]*ring.Coefficient{},
	}
	flag := &rational.Flag{}
	fsol, err := render.Build(sol, flag)
	if err != nil {
		t.Fatalf("render.Build: %v", err)
	}

	fs := afero.NewMemMapFs()
	if err := Write(fs, "/out/rc.m", "rc", fsol, map[string]bool{"out": true}, StandardDefaults()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	exists, err := afero.Exists(fs, "/out/rc.m")
	if err != nil || !exists {
		t.Fatalf("expected /out/rc.m to exist, err=%v", err)
	}
	content, err := afero.ReadFile(fs, "/out/rc.m")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("expected non-empty script")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
