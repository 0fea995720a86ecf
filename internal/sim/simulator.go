package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ecosim/internal/graph"
	"github.com/san-kum/ecosim/internal/model"
)

// Simulator evaluates a bound model forward in time: for each step in
// ascending order it walks the graph order, taking control values from the
// supplied Controls and evaluating every other variable from its equation.
type Simulator struct {
	bound     *model.Bound
	graph     *graph.Graph
	refs      map[string]map[model.Ref]bool
	metrics   []Metric
	observers []Observer
}

// New checks that every variable can be resolved and prepares the
// per-equation reference sets.
func New(bound *model.Bound, g *graph.Graph) (*Simulator, error) {
	st := bound.Structure()
	if g.Structure() != st {
		return nil, errors.New("sim: graph and bound model come from different structures")
	}
	if missing := st.Unresolved(); len(missing) > 0 {
		return nil, &model.UnresolvedVariableError{Variable: missing[0]}
	}
	s := &Simulator{
		bound: bound,
		graph: g,
		refs:  make(map[string]map[model.Ref]bool),
	}
	for _, name := range g.Order() {
		set := make(map[model.Ref]bool)
		for _, ref := range g.DependenciesOf(name) {
			set[ref] = true
		}
		s.refs[name] = set
	}
	return s, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Bound() *model.Bound { return s.bound }

func (s *Simulator) Graph() *graph.Graph { return s.graph }

// run is the mutable state of one Run call.
type run struct {
	st       *model.Structure
	bound    *model.Bound
	dims     model.Dimensions
	table    *model.Table
	controls Controls
	cfg      Config
	result   *Result
	used     map[string]map[model.Ref]bool
}

// Run evaluates every step. On error or cancellation the partial table is
// discarded and only the error is returned.
func (s *Simulator) Run(ctx context.Context, controls Controls, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if controls == nil {
		controls = noControls{}
	}
	st := s.bound.Structure()
	if err := checkControlNames(st, controls); err != nil {
		return nil, err
	}

	start := time.Now()
	dims := s.bound.Dims()
	r := &run{
		st:       st,
		bound:    s.bound,
		dims:     dims,
		table:    model.NewTable(st, dims),
		controls: controls,
		cfg:      cfg,
		result: &Result{
			Metrics: make(map[string]float64),
		},
	}
	if cfg.AuditDependencies {
		r.used = make(map[string]map[model.Ref]bool)
	}
	r.result.Table = r.table

	for _, m := range s.metrics {
		m.Reset()
	}

	order := s.graph.Order()
	for t := 0; t < dims.Steps; t++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, name := range order {
			node, _ := s.graph.Node(name)
			if node.Static() && t > 0 {
				continue
			}
			if err := s.evalNode(ctx, r, node, t); err != nil {
				return nil, err
			}
		}

		step := Step{Index: t, Year: dims.Year(t), Table: r.table}
		for _, m := range s.metrics {
			m.Observe(step)
		}
		for _, obs := range s.observers {
			obs.OnStep(step)
		}
		r.result.StepsTaken++
	}

	r.result.Violations = checkConstraints(s.bound, r.table, cfg.tolerance())
	for _, v := range r.result.Violations {
		logrus.Debugf("constraint violated: %s", v)
	}
	if cfg.AuditDependencies {
		r.result.UnusedDependencies = s.unusedDependencies(r)
	}
	for _, m := range s.metrics {
		r.result.Metrics[m.Name()] = m.Value()
	}
	r.result.Elapsed = time.Since(start)

	logrus.WithFields(logrus.Fields{
		"steps":      r.result.StepsTaken,
		"warnings":   len(r.result.Warnings),
		"violations": len(r.result.Violations),
	}).Debug("simulation finished")
	return r.result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", cfg.Workers)
	}
	if cfg.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %g", cfg.Tolerance)
	}
	return nil
}

func (c Config) tolerance() float64 {
	if c.Tolerance == 0 {
		return DefaultTolerance
	}
	return c.Tolerance
}

func checkControlNames(st *model.Structure, controls Controls) error {
	for _, name := range controls.Names() {
		if !st.IsControl(name) {
			return model.Configf("controls", "%q is not a control variable", name)
		}
	}
	return nil
}

// cells returns the indices of node at step t. Static nodes live at T=0.
func cells(node graph.Node, dims model.Dimensions, t int) []model.Index {
	if node.Static() {
		t = 0
	}
	if !node.Shape.HasRegion() {
		return []model.Index{model.AtTime(t)}
	}
	out := make([]model.Index, len(dims.Regions))
	for r := range dims.Regions {
		out[r] = model.At(t, r)
	}
	return out
}

func (s *Simulator) evalNode(ctx context.Context, r *run, node graph.Node, t int) error {
	ixs := cells(node, r.dims, t)

	if node.Kind == graph.Control {
		for _, ix := range ixs {
			v, ok := r.controls.Lookup(node.Name, ix)
			if !ok {
				return s.stepError(r, node.Name, ix, &model.MissingControlValueError{Control: node.Name, Index: ix})
			}
			if err := s.store(r, node.Name, ix, v); err != nil {
				return err
			}
		}
		return nil
	}

	eq, _, _ := r.st.EquationFor(node.Name)
	scopes := make([]*cellScope, len(ixs))
	for i, ix := range ixs {
		scopes[i] = &cellScope{r: r, eq: eq, refs: s.refs[node.Name], ix: ix}
		if r.used != nil {
			scopes[i].used = make(map[model.Ref]bool)
		}
	}
	values := make([]float64, len(ixs))

	if r.cfg.Workers > 1 && len(ixs) > 1 {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Workers)
		for i := range scopes {
			g.Go(func() error {
				values[i] = eq.Rule(scopes[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, sc := range scopes {
			values[i] = eq.Rule(sc)
		}
	}

	for i, sc := range scopes {
		if sc.err != nil {
			return s.stepError(r, node.Name, sc.ix, sc.err)
		}
		if r.used != nil {
			if r.used[node.Name] == nil {
				r.used[node.Name] = make(map[model.Ref]bool)
			}
			for ref := range sc.used {
				r.used[node.Name][ref] = true
			}
		}
		if err := s.store(r, node.Name, sc.ix, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// store writes a value after the numerical check.
func (s *Simulator) store(r *run, name string, ix model.Index, v float64) error {
	if w := numericalCheck(r.st, name, ix, v); w != nil {
		if r.cfg.Strict {
			return s.stepError(r, name, ix, w)
		}
		logrus.Warnf("numerical warning: %v", w)
		r.result.Warnings = append(r.result.Warnings, w)
	}
	if err := r.table.Set(name, ix, v); err != nil {
		return s.stepError(r, name, ix, err)
	}
	return nil
}

func (s *Simulator) stepError(r *run, name string, ix model.Index, err error) error {
	return &StepError{Step: ix.T, Year: r.dims.Year(ix.T), Variable: name, Index: ix, Wrapped: err}
}

func numericalCheck(st *model.Structure, name string, ix model.Index, v float64) *model.NumericalWarning {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &model.NumericalWarning{Variable: name, Index: ix, Value: v, Reason: "non-finite value"}
	}
	decl, _ := st.Decl(name)
	if !decl.Domain.Contains(v) {
		return &model.NumericalWarning{Variable: name, Index: ix, Value: v, Reason: "outside " + decl.Domain.String() + " domain"}
	}
	if v < decl.Lower || v > decl.Upper {
		return &model.NumericalWarning{Variable: name, Index: ix, Value: v,
			Reason: fmt.Sprintf("outside bounds [%g, %g]", decl.Lower, decl.Upper)}
	}
	return nil
}

func (s *Simulator) unusedDependencies(r *run) map[string][]model.Ref {
	out := make(map[string][]model.Ref)
	for _, name := range s.graph.Order() {
		for _, ref := range s.graph.DependenciesOf(name) {
			if !r.used[name][ref] {
				out[name] = append(out[name], ref)
			}
		}
		if len(out[name]) > 0 {
			logrus.Infof("equation %s declares unread references %v", name, out[name])
		}
	}
	return out
}

type noControls struct{}

func (noControls) Lookup(string, model.Index) (float64, bool) { return 0, false }
func (noControls) Names() []string                            { return nil }
