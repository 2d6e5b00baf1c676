package render

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/freq"
	"github.com/shangma/linnet-go/pkg/symtab"
)

const wrapColumn = 72

// WriteText renders the human-readable block format of spec.md §6: one block
// per dependent, each a sum of N_<d>_<i>/D_<d>_<i> * <independentName>(s),
// followed by declarations of every referenced N(s) and D(s) as a polynomial
// in s with coefficients grouped by power of s.
func WriteText(fs afero.Fs, path string, sol *Solution, circuitName string) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "circuit %s\n\n", circuitName)
	known := KnownNames(sol.Table)

	for _, d := range sol.ReleaseOrder {
		dep := sol.Dependents[d]
		fmt.Fprintf(w, "%s(s) =\n", dep.Name)
		var terms []string
		for k, ok := range sol.NumValid[d] {
			if !ok {
				continue
			}
			nref := sol.NumeratorRef[d][k]
			dref := sol.DenominatorRef[d][k]
			nEnt := sol.Map.Entries[nref.Index]
			dEnt := sol.Map.Entries[dref.Index]
			if nEnt.Expr.IsZero() {
				continue
			}
			sign := ""
			if nref.Negated != dref.Negated {
				sign = "-"
			}
			terms = append(terms, fmt.Sprintf("%s%s/%s * %s(s)", sign, nEnt.Name, dEnt.Name, known[k]))
		}
		if len(terms) == 0 {
			wrapLine(w, " 0")
		} else {
			wrapLine(w, strings.Join(terms, " + "))
		}
		w.WriteString("\n")
	}

	named := namedEntriesInOrder(sol.Map)
	for _, ent := range named {
		writeDeclaration(w, ent, sol.Table)
	}

	return w.Flush()
}

func namedEntriesInOrder(m *Map) []*Entry {
	out := make([]*Entry, 0, len(m.Entries))
	for _, e := range m.Entries {
		if e.Named {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Origin, out[j].Origin
		if oi.DependentIdx != oj.DependentIdx {
			return oi.DependentIdx < oj.DependentIdx
		}
		if oi.IsNumerator != oj.IsNumerator {
			return !oi.IsNumerator // denominators declared before numerators
		}
		return oi.IndependentIdx < oj.IndependentIdx
	})
	return out
}

func writeDeclaration(w *bufio.Writer, e *Entry, t *symtab.SymbolTable) {
	fmt.Fprintf(w, "%s(s) =\n", e.Name)
	if e.Expr.IsZero() {
		wrapLine(w, " 0")
		w.WriteString("\n")
		return
	}
	grouped := groupByPowerS(e.Expr, t)
	wrapLine(w, strings.Join(grouped, " + "))
	w.WriteString("\n")
}

// groupByPowerS renders each power-of-s group as "(coeff-sum) * s^k", one
// string per distinct power present, in the expression's own (decreasing
// PowerS) order.
func groupByPowerS(e *freq.Expression, t *symtab.SymbolTable) []string {
	var out []string
	i := 0
	for i < len(e.Addends) {
		p := e.Addends[i].PowerS
		var monomials []string
		for i < len(e.Addends) && e.Addends[i].PowerS == p {
			monomials = append(monomials, monomialString(e.Addends[i], t))
			i++
		}
		coeffSum := strings.Join(monomials, " + ")
		if p == 0 {
			out = append(out, fmt.Sprintf("(%s)", coeffSum))
		} else {
			out = append(out, fmt.Sprintf("(%s) * s^%d", coeffSum, p))
		}
	}
	return out
}

func monomialString(a freq.Addend, t *symtab.SymbolTable) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", a.Factor.String())
	bits := make([]int, 0, len(a.PowerConst))
	for b, e := range a.PowerConst {
		if e != 0 {
			bits = append(bits, b)
		}
	}
	sort.Ints(bits)
	for _, b := range bits {
		name := t.Constants[b].Name
		fmt.Fprintf(&sb, "*%s^%d", name, a.PowerConst[b])
	}
	return sb.String()
}

// wrapLine writes s to w, breaking at spaces so no physical line exceeds
// wrapColumn characters (spec.md §6).
func wrapLine(w *bufio.Writer, s string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		w.WriteString(s)
		w.WriteString("\n")
		return
	}
	line := ""
	for _, word := range words {
		if line == "" {
			line = word
			continue
		}
		if len(line)+1+len(word) > wrapColumn {
			w.WriteString(line)
			w.WriteString("\n")
			line = word
			continue
		}
		line += " " + word
	}
	if line != "" {
		w.WriteString(line)
		w.WriteString("\n")
	}
}
