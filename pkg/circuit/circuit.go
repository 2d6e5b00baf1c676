// Package circuit holds the parsed, checked netlist data model (spec.md §3).
// The parser that produces a Circuit lives outside the core (pkg/netlist) —
// this package owns only the immutable-after-construction shape.
package circuit

// Kind enumerates device variants.
type Kind int

const (
	Resistor Kind = iota
	Conductance
	Capacitor
	Inductor
	IndependentV
	IndependentI
	VCVS // voltage-controlled voltage source
	VCCS // voltage-controlled current source
	CCVS // current-controlled voltage source
	CCCS // current-controlled current source
	OpAmp
	CurrentProbe
)

func (k Kind) String() string {
	switch k {
	case Resistor:
		return "R"
	case Conductance:
		return "Y"
	case Capacitor:
		return "C"
	case Inductor:
		return "L"
	case IndependentV:
		return "V"
	case IndependentI:
		return "I"
	case VCVS:
		return "E"
	case VCCS:
		return "G"
	case CCVS:
		return "H"
	case CCCS:
		return "F"
	case OpAmp:
		return "OpAmp"
	case CurrentProbe:
		return "Probe"
	default:
		return "?"
	}
}

// HasValue reports whether this kind carries a numeric device constant
// (passives and controlled-source gains do; independent sources, op-amps, and
// probes do not appear in products of constants per spec §4.G).
func (k Kind) HasValue() bool {
	switch k {
	case Resistor, Conductance, Capacitor, Inductor, VCVS, VCCS, CCVS, CCCS:
		return true
	default:
		return false
	}
}

// Controlled reports whether k is one of the four controlled-source variants.
func (k Kind) Controlled() bool {
	switch k {
	case VCVS, VCCS, CCVS, CCCS:
		return true
	default:
		return false
	}
}

// VoltageControlled reports whether the controlling quantity is a node-pair
// voltage (as opposed to a referenced current probe).
func (k Kind) VoltageControlled() bool { return k == VCVS || k == VCCS }

// IntroducesCurrentUnknown reports whether k's stamp (§4.E) adds an extra
// unknown current to the LES.
func (k Kind) IntroducesCurrentUnknown() bool {
	switch k {
	case IndependentV, VCVS, CCVS, OpAmp, CurrentProbe:
		return true
	default:
		return false
	}
}

// Relation binds a device's value to factor * other.Value, chained
// acyclically (spec §3).
type Relation struct {
	Factor float64
	Other  string // referenced device name
}

// Device is one netlist element.
type Device struct {
	Name string
	Kind Kind

	From, To string // primary terminals

	// Controlled sources: either a sense pair or a referenced probe.
	CtrlPlus, CtrlMinus string
	ProbeRef            string

	// Op-amps add a third terminal.
	Output string

	Value    *float64
	Relation *Relation
}

// UserVoltage is a user-defined voltage between two nodes.
type UserVoltage struct {
	Name     string
	Plus, Minus string
}

// ResultRequest names one or more dependents and, optionally, a single
// independent that turns the request into a Bode request (spec §3, GLOSSARY).
type ResultRequest struct {
	Name        string
	Dependents  []string
	Independent string // empty if not a Bode request
}

// IsBode reports whether r names exactly one dependent and one independent.
func (r ResultRequest) IsBode() bool {
	return len(r.Dependents) == 1 && r.Independent != ""
}

// Circuit is the fully-checked netlist the core consumes.
type Circuit struct {
	Name    string
	Nodes   []string
	Devices []Device
	Voltages []UserVoltage
	Requests []ResultRequest
}

// DeviceByName looks up a device by name, or ok=false.
func (c *Circuit) DeviceByName(name string) (Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}
