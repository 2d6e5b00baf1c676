package script

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/freq"
	"github.com/shangma/linnet-go/pkg/render"
	"github.com/shangma/linnet-go/pkg/symtab"
)

// CoefficientVector evaluates a denormalized frequency-domain expression at
// concrete device values, returning the row vector of coefficients indexed
// by decreasing power of s (spec.md §6: "zero-filled for absent powers").
func CoefficientVector(e *freq.Expression, t *symtab.SymbolTable, values map[string]float64) []float64 {
	if e.IsZero() {
		return []float64{0}
	}
	maxPower := e.Addends[0].PowerS
	minPower := maxPower
	for _, a := range e.Addends {
		if a.PowerS > maxPower {
			maxPower = a.PowerS
		}
		if a.PowerS < minPower {
			minPower = a.PowerS
		}
	}
	if minPower < 0 {
		minPower = 0 // coefficient vectors are over nonnegative powers only
	}
	out := make([]float64, maxPower-minPower+1)
	for _, a := range e.Addends {
		if a.PowerS < 0 {
			continue
		}
		v := a.Factor.Num
		coeff := float64(v) / float64(a.Factor.Den)
		for bit, exp := range a.PowerConst {
			dev := t.Circuit.Devices[t.DeviceByBitIndex(bit)]
			val, ok := values[dev.Name]
			if !ok {
				val = 1
			}
			for p := 0; p < exp; p++ {
				coeff *= val
			}
			for p := 0; p > exp; p-- {
				coeff /= val
			}
		}
		out[maxPower-a.PowerS] += coeff
	}
	return out
}

// deviceValues resolves every value-carrying device to a concrete number,
// falling back to d's defaults for devices with no explicit Value.
func deviceValues(c *circuit.Circuit, d Defaults) map[string]float64 {
	out := map[string]float64{}
	for _, dev := range c.Devices {
		if !dev.Kind.HasValue() {
			continue
		}
		if dev.Value != nil {
			out[dev.Name] = *dev.Value
		} else {
			out[dev.Name] = d.ValueFor(dev.Kind)
		}
	}
	return out
}

// Write emits the numeric script for one circuit's frequency-domain
// solution: a single function for the whole circuit holding a parameter
// struct and, per (dependent, known) pair, polynomial coefficient vectors,
// descriptor-struct fields, and an instantiation call (spec.md §6).
func Write(fs afero.Fs, path string, circuitName string, fsol *render.Solution, isBode map[string]bool, defaults Defaults) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	values := deviceValues(fsol.Table.Circuit, defaults)
	known := render.KnownNames(fsol.Table)

	fmt.Fprintf(w, "function %s_result(params)\n", sanitize(circuitName))
	w.WriteString("  if nargin < 1\n    params = struct();\n  end\n")
	writeParamDefaults(w, fsol.Table, defaults)
	w.WriteString("\n")

	for _, d := range fsol.ReleaseOrder {
		dep := fsol.Dependents[d]
		for k, ok := range fsol.NumValid[d] {
			if !ok {
				continue
			}
			nref := fsol.NumeratorRef[d][k]
			dref := fsol.DenominatorRef[d][k]
			nEnt := fsol.Map.Entries[nref.Index]
			dEnt := fsol.Map.Entries[dref.Index]

			numVec := CoefficientVector(nEnt.Expr, fsol.Table, values)
			denVec := CoefficientVector(dEnt.Expr, fsol.Table, values)
			if nref.Negated {
				negateInPlace(numVec)
			}
			if dref.Negated {
				negateInPlace(denVec)
			}

			fmt.Fprintf(w, "  %s = %s;\n", nEnt.Name, vectorLiteral(numVec))
			fmt.Fprintf(w, "  %s = %s;\n", dEnt.Name, vectorLiteral(denVec))

			fmt.Fprintf(w, "  descr.%s.%s.num = %s;\n", dep.Name, known[k], nEnt.Name)
			fmt.Fprintf(w, "  descr.%s.%s.den = %s;\n", dep.Name, known[k], dEnt.Name)
			fmt.Fprintf(w, "  descr.%s.%s.input = %q;\n", dep.Name, known[k], known[k])
			fmt.Fprintf(w, "  descr.%s.%s.output = %q;\n", dep.Name, known[k], dep.Name)

			bodeMode := "step"
			if isBode[dep.Name] {
				bodeMode = "bode"
			}
			fmt.Fprintf(w, "  descr.%s.%s.plot = %q;\n", dep.Name, known[k], bodeMode)
			fmt.Fprintf(w, "  sys.%s.%s = tf(%s, %s);\n", dep.Name, known[k], nEnt.Name, dEnt.Name)
			fmt.Fprintf(w, "  if nargout == 0\n")
			if bodeMode == "bode" {
				fmt.Fprintf(w, "    bode(sys.%s.%s);\n", dep.Name, known[k])
			} else {
				fmt.Fprintf(w, "    step(sys.%s.%s);\n", dep.Name, known[k])
			}
			w.WriteString("  end\n")
		}
	}

	w.WriteString("end\n")
	return w.Flush()
}

func writeParamDefaults(w *bufio.Writer, t *symtab.SymbolTable, d Defaults) {
	for _, c := range t.Constants {
		dev := t.Circuit.Devices[c.DeviceIndex]
		if !dev.Kind.HasValue() {
			continue
		}
		fmt.Fprintf(w, "  if ~isfield(params, %q)\n    params.%s = %g;\n  end\n", dev.Name, dev.Name, d.ValueFor(dev.Kind))
	}
}

func vectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func negateInPlace(v []float64) {
	for i := range v {
		v[i] = -v[i]
	}
}

func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
