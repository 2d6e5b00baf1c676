package netlist

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/circuit"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestParseRCLowPass(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rc.net", `
circuit rc_lowpass
node in out gnd
R R1 in out value=100
C C1 out gnd
V Vin in gnd
request H dependents out independent Vin
`)
	c, err := Parse(fs, "/rc.net")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Name != "rc_lowpass" {
		t.Fatalf("Name = %q", c.Name)
	}
	if len(c.Nodes) != 3 {
		t.Fatalf("Nodes = %v", c.Nodes)
	}
	if len(c.Devices) != 3 {
		t.Fatalf("Devices = %+v", c.Devices)
	}
	r1 := c.Devices[0]
	if r1.Kind != circuit.Resistor || r1.Value == nil || *r1.Value != 100 {
		t.Fatalf("R1 = %+v", r1)
	}
	if len(c.Requests) != 1 || c.Requests[0].Independent != "Vin" {
		t.Fatalf("Requests = %+v", c.Requests)
	}
}

func TestParseRelation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rel.net", `
circuit rel
node a b c
R R1 a b
R R2 b c rel=0.5*R1
`)
	c, err := Parse(fs, "/rel.net")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r2 := c.Devices[1]
	if r2.Relation == nil || r2.Relation.Other != "R1" || r2.Relation.Factor != 0.5 {
		t.Fatalf("R2.Relation = %+v", r2.Relation)
	}
}

func TestParseSyntaxError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/bad.net", "bogus line here\n")
	if _, err := Parse(fs, "/bad.net"); err == nil {
		t.Fatal("expected syntax error")
	}
}
