// Package script emits the numeric-script boundary of spec.md §6: one
// function per circuit (covering every dependent of every result request;
// no separate function is emitted per request), a parameter struct of device
// constants with deterministic SI-unit defaults, polynomial coefficient
// vectors, a descriptor struct, and a trailing LTI-instantiation call.
package script

import (
	"github.com/mitchellh/mapstructure"

	"github.com/shangma/linnet-go/pkg/circuit"
)

// Defaults holds the deterministic per-kind default device value (spec.md
// §6, supplemented by original_source/msc_mScript.h's documented SI units).
type Defaults struct {
	Resistor         float64 `mapstructure:"resistor"`         // ohm
	Conductance      float64 `mapstructure:"conductance"`      // siemens
	Inductor         float64 `mapstructure:"inductor"`         // henry
	Capacitor        float64 `mapstructure:"capacitor"`        // farad
	VoltageGain      float64 `mapstructure:"voltage_gain"`     // dimensionless
	Transconductance float64 `mapstructure:"transconductance"` // ampere/volt
	CurrentGain      float64 `mapstructure:"current_gain"`     // dimensionless
}

// StandardDefaults returns the documented defaults: R=100, Y=1/100, L=1mH,
// C=10uF, voltage-gain=1, transconductance=5mA/V, current-gain=250.
func StandardDefaults() Defaults {
	return Defaults{
		Resistor:         100,
		Conductance:      1.0 / 100,
		Inductor:         1e-3,
		Capacitor:        10e-6,
		VoltageGain:      1,
		Transconductance: 5e-3,
		CurrentGain:      250,
	}
}

// DecodeDefaults overlays a free-form parameter map (as loaded from an
// optional YAML/JSON parameter file) onto StandardDefaults, using
// mapstructure the same way the netlist attribute decoder does.
func DecodeDefaults(raw map[string]interface{}) (Defaults, error) {
	d := StandardDefaults()
	if raw == nil {
		return d, nil
	}
	if err := mapstructure.Decode(raw, &d); err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// ValueFor returns the default numeric value for a device, used when the
// device carries no explicit Value.
func (d Defaults) ValueFor(kind circuit.Kind) float64 {
	switch kind {
	case circuit.Resistor:
		return d.Resistor
	case circuit.Conductance:
		return d.Conductance
	case circuit.Inductor:
		return d.Inductor
	case circuit.Capacitor:
		return d.Capacitor
	case circuit.VCVS:
		return d.VoltageGain
	case circuit.VCCS:
		return d.Transconductance
	case circuit.CCVS:
		return d.Transconductance
	case circuit.CCCS:
		return d.CurrentGain
	default:
		return 0
	}
}
