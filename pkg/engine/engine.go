// Package engine wires the pipeline stages — topology, symbol table, LES,
// solver, frequency transform, and rendering — into the per-circuit and
// per-process drivers of spec.md §4.I and §6, threading a logger and a
// rational overflow flag explicitly rather than through package globals
// (spec.md §9 Design Notes).
package engine

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/les"
	"github.com/shangma/linnet-go/pkg/rational"
	"github.com/shangma/linnet-go/pkg/render"
	"github.com/shangma/linnet-go/pkg/script"
	"github.com/shangma/linnet-go/pkg/solver"
	"github.com/shangma/linnet-go/pkg/symtab"
	"github.com/shangma/linnet-go/pkg/topology"
)

// ErrKind classifies a terminal-per-circuit failure (spec.md §7).
type ErrKind int

const (
	KindTopology ErrKind = iota
	KindNameClash
	KindBadReference
	KindSingular
	KindOverflow
	KindLimitExceeded
)

func (k ErrKind) String() string {
	switch k {
	case KindTopology:
		return "Topology"
	case KindNameClash:
		return "NameClash"
	case KindBadReference:
		return "BadReference"
	case KindSingular:
		return "Singular"
	case KindOverflow:
		return "Overflow"
	case KindLimitExceeded:
		return "LimitExceeded"
	default:
		return "Unknown"
	}
}

// CircuitError carries the error kind alongside the wrapped diagnostic.
type CircuitError struct {
	Kind ErrKind
	Err  error
}

func (e *CircuitError) Error() string { return e.Err.Error() }
func (e *CircuitError) Unwrap() error { return e.Err }

// Config holds the per-run tunables surfaced by cmd/linnet.
type Config struct {
	BitmaskWidth int
	OutDir       string
	Defaults     script.Defaults
}

// Engine threads a logger, filesystem, and config through the pipeline.
type Engine struct {
	Log *logrus.Logger
	FS  afero.Fs
	Cfg Config
}

// New builds an Engine with sane defaults (a standard logrus logger at Info
// level, the real OS filesystem, and script.StandardDefaults when cfg.Defaults
// is left zero).
func New(cfg Config) *Engine {
	if cfg.BitmaskWidth <= 0 {
		cfg.BitmaskWidth = symtab.DefaultBitmaskWidth
	}
	if cfg.Defaults == (script.Defaults{}) {
		cfg.Defaults = script.StandardDefaults()
	}
	log := logrus.New()
	return &Engine{Log: log, FS: afero.NewOsFs(), Cfg: cfg}
}

// Result is the successful outcome of solving one circuit.
type Result struct {
	Circuit      *circuit.Circuit
	AlgebraicSol *solver.Solution
	FreqSol      *render.Solution
}

// SolveCircuit runs the full pipeline — topology, symbol table, LES,
// solver, frequency transform and cancellation — for one circuit, logging
// and classifying the first terminal failure.
func (e *Engine) SolveCircuit(c *circuit.Circuit) (*Result, error) {
	log := e.Log.WithField("circuit", c.Name)

	topo, err := topology.Analyze(c)
	if err != nil {
		log.WithError(err).Error("topology analysis failed")
		return nil, &CircuitError{Kind: KindTopology, Err: err}
	}
	if topo.NumComponents > 1 {
		msg := log.WithField("components", topo.NumComponents)
		if topo.HasLogicalCouplings {
			msg.Info("circuit has multiple connected components")
		} else {
			msg.Warn("circuit has multiple connected components with no controlled-source coupling between them")
		}
	}

	t, err := symtab.Build(c, topo, e.Cfg.BitmaskWidth)
	if err != nil {
		kind := KindNameClash
		if errors.Is(err, symtab.ErrLimitExceeded) {
			kind = KindLimitExceeded
		}
		log.WithError(err).Error("symbol table construction failed")
		return nil, &CircuitError{Kind: kind, Err: err}
	}

	mx, err := les.Build(c, t)
	if err != nil {
		log.WithError(err).Error("LES construction failed")
		return nil, &CircuitError{Kind: KindBadReference, Err: err}
	}

	required := solver.RequiredDependents(c, t)
	if err := validateRequests(c, t, required); err != nil {
		log.WithError(err).Error("result request validation failed")
		return nil, &CircuitError{Kind: KindBadReference, Err: err}
	}

	algSol, err := solver.SolveAll(mx, t, required)
	if err != nil {
		kind := KindSingular
		if errors.Is(err, solver.ErrSingular) {
			kind = KindSingular
		}
		log.WithError(err).Error("solver failed")
		return nil, &CircuitError{Kind: kind, Err: err}
	}

	flag := &rational.Flag{}
	freqSol, err := render.Build(algSol, flag)
	if err != nil {
		log.WithError(err).Error("frequency transform failed")
		return nil, &CircuitError{Kind: KindOverflow, Err: err}
	}
	if flag.Test() {
		err := errors.New("engine: rational overflow during frequency transform/normalization")
		log.WithError(err).Error("overflow")
		return nil, &CircuitError{Kind: KindOverflow, Err: err}
	}

	return &Result{Circuit: c, AlgebraicSol: algSol, FreqSol: freqSol}, nil
}

// Emit writes both the human-readable text and numeric script outputs for a
// solved circuit under e.Cfg.OutDir (spec.md §6).
func (e *Engine) Emit(res *Result) error {
	base := res.Circuit.Name
	if base == "" {
		base = "circuit"
	}
	textPath := joinOut(e.Cfg.OutDir, base+".txt")
	scriptPath := joinOut(e.Cfg.OutDir, base+".m")

	if err := render.WriteText(e.FS, textPath, res.FreqSol, res.Circuit.Name); err != nil {
		return errors.Wrap(err, "engine: write text output")
	}

	isBode := map[string]bool{}
	for _, r := range res.Circuit.Requests {
		if r.IsBode() {
			for _, dep := range r.Dependents {
				isBode[dep] = true
			}
		}
	}
	if err := script.Write(e.FS, scriptPath, res.Circuit.Name, res.FreqSol, isBode, e.Cfg.Defaults); err != nil {
		return errors.Wrap(err, "engine: write numeric script")
	}
	return nil
}

func joinOut(dir, name string) string {
	if dir == "" {
		return name
	}
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

// RunAll solves and emits every circuit in turn, continuing past a
// circuit-level failure rather than aborting the batch (spec.md §6, grounded
// on original_source's lin_linNet.c driver loop). It returns the process
// exit code: 0 if every circuit succeeded, -1 if any failed.
func (e *Engine) RunAll(circuits []*circuit.Circuit) int {
	exit := 0
	for _, c := range circuits {
		res, err := e.SolveCircuit(c)
		if err != nil {
			exit = -1
			continue
		}
		if err := e.Emit(res); err != nil {
			e.Log.WithField("circuit", c.Name).WithError(err).Error("emit failed")
			exit = -1
			continue
		}
	}
	return exit
}

// validateRequests rejects a request that names an independent source as a
// dependent, or whose independent is not an independent source (spec.md §7
// BadReference). The second check rejects a Bode request between two
// dependents whatever the number of independent sources.
func validateRequests(c *circuit.Circuit, t *symtab.SymbolTable, required map[int]bool) error {
	knownNames := map[string]bool{}
	for _, k := range t.Knowns {
		knownNames[k.Name] = true
	}
	for _, r := range c.Requests {
		for _, dep := range r.Dependents {
			if knownNames[dep] {
				return errors.Errorf("request %q: dependent %q is an independent source", r.Name, dep)
			}
		}
		if r.Independent != "" && !knownNames[r.Independent] {
			return errors.Errorf("request %q: independent %q is not an independent source", r.Name, r.Independent)
		}
	}
	return nil
}
