package circuit

import "testing"

func TestKindHasValue(t *testing.T) {
	cases := []struct {
		k    Kind
		want bool
	}{
		{Resistor, true},
		{Conductance, true},
		{Capacitor, true},
		{Inductor, true},
		{VCVS, true},
		{VCCS, true},
		{CCVS, true},
		{CCCS, true},
		{IndependentV, false},
		{IndependentI, false},
		{OpAmp, false},
		{CurrentProbe, false},
	}
	for _, c := range cases {
		if got := c.k.HasValue(); got != c.want {
			t.Errorf("%v.HasValue() = %v, want %v", c.k, got, c.want)
		}
	}
}

func TestKindIntroducesCurrentUnknown(t *testing.T) {
	for _, k := range []Kind{IndependentV, VCVS, CCVS, OpAmp, CurrentProbe} {
		if !k.IntroducesCurrentUnknown() {
			t.Errorf("%v: expected IntroducesCurrentUnknown", k)
		}
	}
	for _, k := range []Kind{Resistor, Conductance, Capacitor, Inductor, IndependentI, VCCS, CCCS} {
		if k.IntroducesCurrentUnknown() {
			t.Errorf("%v: expected not IntroducesCurrentUnknown", k)
		}
	}
}

func TestResultRequestIsBode(t *testing.T) {
	r := ResultRequest{Name: "H", Dependents: []string{"out"}, Independent: "Vin"}
	if !r.IsBode() {
		t.Fatal("expected IsBode")
	}
	r2 := ResultRequest{Name: "H", Dependents: []string{"out"}}
	if r2.IsBode() {
		t.Fatal("expected not IsBode without an independent")
	}
	r3 := ResultRequest{Name: "H", Dependents: []string{"out1", "out2"}, Independent: "Vin"}
	if r3.IsBode() {
		t.Fatal("expected not IsBode with multiple dependents")
	}
}

func TestDeviceByName(t *testing.T) {
	c := &Circuit{Devices: []Device{{Name: "R1", Kind: Resistor}, {Name: "C1", Kind: Capacitor}}}
	d, ok := c.DeviceByName("C1")
	if !ok || d.Kind != Capacitor {
		t.Fatalf("DeviceByName(C1) = %+v, %v", d, ok)
	}
	if _, ok := c.DeviceByName("missing"); ok {
		t.Fatal("expected not found")
	}
}
