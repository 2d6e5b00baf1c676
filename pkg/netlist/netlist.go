// Package netlist is the thin, explicitly out-of-scope parser boundary of
// spec.md §6 ("the parser is out of scope, but the core depends only on the
// parsed representation"): it turns a line-oriented textual netlist into a
// circuit.Circuit, decoding each device's free-form attribute map with
// mapstructure the same way a config loader decodes a YAML document into a
// typed struct.
package netlist

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/circuit"
)

// ErrSyntax is returned for a malformed line.
var ErrSyntax = errors.New("netlist: syntax error")

var kindByLetter = map[string]circuit.Kind{
	"R": circuit.Resistor,
	"Y": circuit.Conductance,
	"L": circuit.Inductor,
	"C": circuit.Capacitor,
	"V": circuit.IndependentV,
	"I": circuit.IndependentI,
	"E": circuit.VCVS,
	"G": circuit.VCCS,
	"H": circuit.CCVS,
	"F": circuit.CCCS,
	"OPAMP": circuit.OpAmp,
	"PROBE": circuit.CurrentProbe,
}

type deviceAttrs struct {
	Value  *float64 `mapstructure:"value"`
	Rel    string   `mapstructure:"rel"`
	Output string   `mapstructure:"output"`
}

// Parse reads a netlist from path on fs and returns the assembled circuit.
// Grammar, one statement per line (blank lines and lines starting with "#"
// are ignored):
//
//	circuit <name>
//	node <name>...
//	<KIND> <name> <from> <to> [<attr>=<val> ...]
//	<KIND> <name> <from> <to> <ctrlPlus> <ctrlMinus> [<attr>=<val> ...]   (E, G)
//	<KIND> <name> <from> <to> <probeRef> [<attr>=<val> ...]              (H, F)
//	OPAMP <name> <plus> <minus> <output>
//	PROBE <name> <from> <to>
//	voltage <name> <plus> <minus>
//	request <name> dependents <dep>[,<dep>...] [independent <indep>]
func Parse(fs afero.Fs, path string) (*circuit.Circuit, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "netlist: open")
	}
	defer f.Close()

	c := &circuit.Circuit{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := parseLine(c, line); err != nil {
			return nil, errors.Wrapf(err, "netlist: line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "netlist: scan")
	}
	return c, nil
}

func parseLine(c *circuit.Circuit, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	keyword := fields[0]

	switch strings.ToUpper(keyword) {
	case "CIRCUIT":
		if len(fields) < 2 {
			return errors.Wrap(ErrSyntax, "circuit needs a name")
		}
		c.Name = fields[1]
		return nil
	case "NODE":
		c.Nodes = append(c.Nodes, fields[1:]...)
		return nil
	case "VOLTAGE":
		if len(fields) != 4 {
			return errors.Wrap(ErrSyntax, "voltage needs name plus minus")
		}
		c.Voltages = append(c.Voltages, circuit.UserVoltage{Name: fields[1], Plus: fields[2], Minus: fields[3]})
		return nil
	case "REQUEST":
		return parseRequest(c, fields)
	}

	return parseDevice(c, strings.ToUpper(keyword), fields)
}

func parseRequest(c *circuit.Circuit, fields []string) error {
	if len(fields) < 4 || strings.ToLower(fields[2]) != "dependents" {
		return errors.Wrap(ErrSyntax, "request needs <name> dependents <dep,...> [independent <indep>]")
	}
	req := circuit.ResultRequest{Name: fields[1], Dependents: strings.Split(fields[3], ",")}
	for i := 4; i+1 < len(fields); i += 2 {
		if strings.ToLower(fields[i]) == "independent" {
			req.Independent = fields[i+1]
		}
	}
	c.Requests = append(c.Requests, req)
	return nil
}

func parseDevice(c *circuit.Circuit, kindWord string, fields []string) error {
	kind, ok := kindByLetter[kindWord]
	if !ok {
		return errors.Wrapf(ErrSyntax, "unknown keyword %q", kindWord)
	}
	if len(fields) < 4 {
		return errors.Wrap(ErrSyntax, "device needs at least name, from, to")
	}
	d := circuit.Device{Name: fields[1], Kind: kind}

	rest := fields[2:]
	switch kind {
	case circuit.OpAmp:
		if len(rest) < 3 {
			return errors.Wrap(ErrSyntax, "OPAMP needs plus minus output")
		}
		d.From, d.To, d.Output = rest[0], rest[1], rest[2]
		rest = rest[3:]
	case circuit.VCVS, circuit.VCCS:
		if len(rest) < 4 {
			return errors.Wrap(ErrSyntax, "voltage-controlled source needs from to ctrlPlus ctrlMinus")
		}
		d.From, d.To, d.CtrlPlus, d.CtrlMinus = rest[0], rest[1], rest[2], rest[3]
		rest = rest[4:]
	case circuit.CCVS, circuit.CCCS:
		if len(rest) < 3 {
			return errors.Wrap(ErrSyntax, "current-controlled source needs from to probeRef")
		}
		d.From, d.To, d.ProbeRef = rest[0], rest[1], rest[2]
		rest = rest[3:]
	default:
		d.From, d.To = rest[0], rest[1]
		rest = rest[2:]
	}

	attrs, err := decodeAttrs(rest)
	if err != nil {
		return err
	}
	d.Value = attrs.Value
	if attrs.Rel != "" {
		rel, err := parseRelation(attrs.Rel)
		if err != nil {
			return err
		}
		d.Relation = rel
	}

	c.Devices = append(c.Devices, d)
	return nil
}

func decodeAttrs(fields []string) (deviceAttrs, error) {
	raw := map[string]interface{}{}
	for _, f := range fields {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return deviceAttrs{}, errors.Wrapf(ErrSyntax, "malformed attribute %q", f)
		}
		key, val := kv[0], kv[1]
		if key == "value" {
			n, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return deviceAttrs{}, errors.Wrapf(err, "attribute %q", f)
			}
			raw[key] = n
			continue
		}
		raw[key] = val
	}
	var out deviceAttrs
	if err := mapstructure.Decode(raw, &out); err != nil {
		return deviceAttrs{}, errors.Wrap(err, "decode attributes")
	}
	return out, nil
}

// parseRelation parses "<factor>*<otherDevice>" (e.g. "0.5*R2").
func parseRelation(s string) (*circuit.Relation, error) {
	parts := strings.SplitN(s, "*", 2)
	if len(parts) != 2 {
		return nil, errors.Wrapf(ErrSyntax, "malformed relation %q, want <factor>*<device>", s)
	}
	factor, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, errors.Wrapf(err, "relation factor %q", s)
	}
	return &circuit.Relation{Factor: factor, Other: parts[1]}, nil
}
