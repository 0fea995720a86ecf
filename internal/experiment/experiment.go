package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ecosim/internal/graph"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
	"github.com/san-kum/ecosim/internal/solver"
)

// State of a model instance. Simulated and Optimised are terminal.
type State int

const (
	Unbuilt State = iota
	Abstract
	Bound
	Simulated
	Optimised
)

func (s State) String() string {
	switch s {
	case Abstract:
		return "ABSTRACT"
	case Bound:
		return "BOUND"
	case Simulated:
		return "SIMULATED"
	case Optimised:
		return "OPTIMISED"
	default:
		return "UNBUILT"
	}
}

var ErrInvalidTransition = errors.New("experiment: invalid state transition")

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Experiment walks one model instance through its lifecycle. A failed
// transition leaves the state unchanged; a finished instance is not reused.
type Experiment struct {
	reg       *Registry
	layout    Layout
	sel       Selection
	state     State
	structure *model.Structure
	graph     *graph.Graph
	bound     *model.Bound
	simulator *sim.Simulator
	metrics   []sim.Metric
	observers []sim.Observer
	result    *sim.Result
	solution  *solver.Solution
}

func New(reg *Registry, layout Layout, sel Selection) *Experiment {
	return &Experiment{reg: reg, layout: layout, sel: sel}
}

// Build composes the selection, freezes it and derives the dependency
// graph. Cycles are reported here, before any binding.
func (e *Experiment) Build() error {
	if e.state != Unbuilt {
		return transitionError(e.state, Abstract)
	}
	st, err := Compose(e.reg, e.layout, e.sel)
	if err != nil {
		return err
	}
	g, err := graph.Build(st)
	if err != nil {
		return err
	}
	e.structure, e.graph = st, g
	e.setState(Abstract)
	return nil
}

// Bind attaches parameter values.
func (e *Experiment) Bind(dims model.Dimensions, bindings *model.Bindings) error {
	if e.state != Abstract {
		return transitionError(e.state, Bound)
	}
	b, err := model.Bind(e.structure, dims, bindings)
	if err != nil {
		return err
	}
	e.bound = b
	e.setState(Bound)
	return nil
}

func (e *Experiment) AddMetric(m sim.Metric)     { e.metrics = append(e.metrics, m) }
func (e *Experiment) AddObserver(o sim.Observer) { e.observers = append(e.observers, o) }

// Simulator returns the evaluator for the bound model, creating it on first
// use. Ensembles and grid searches share it.
func (e *Experiment) Simulator() (*sim.Simulator, error) {
	if e.state < Bound {
		return nil, transitionError(e.state, Simulated)
	}
	if e.simulator != nil {
		return e.simulator, nil
	}
	s, err := sim.New(e.bound, e.graph)
	if err != nil {
		return nil, err
	}
	for _, m := range e.metrics {
		s.AddMetric(m)
	}
	for _, o := range e.observers {
		s.AddObserver(o)
	}
	e.simulator = s
	return s, nil
}

// Simulate runs the forward evaluator. On error the instance stays BOUND.
func (e *Experiment) Simulate(ctx context.Context, controls sim.Controls, cfg sim.Config) (*sim.Result, error) {
	if e.state != Bound {
		return nil, transitionError(e.state, Simulated)
	}
	s, err := e.Simulator()
	if err != nil {
		return nil, err
	}
	res, err := s.Run(ctx, controls, cfg)
	if err != nil {
		return nil, err
	}
	e.result = res
	e.setState(Simulated)
	logrus.Infof("simulated %d steps: %d warnings, %d constraint violations",
		res.StepsTaken, len(res.Warnings), len(res.Violations))
	return res, nil
}

// Optimise hands the bound model to an external solver. A non-optimal
// status is terminal and returned as a solver.StatusError next to the
// solution.
func (e *Experiment) Optimise(ctx context.Context, adapter solver.Adapter, warm *model.Table) (*solver.Solution, error) {
	if e.state != Bound {
		return nil, transitionError(e.state, Optimised)
	}
	p, err := solver.NewProblem(e.bound, warm)
	if err != nil {
		return nil, err
	}
	sol, err := adapter.Solve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("solver %s: %w", adapter.Name(), err)
	}
	e.solution = sol
	e.setState(Optimised)
	logrus.Infof("solver %s finished %s", adapter.Name(), sol.Status)
	return sol, sol.Err()
}

func (e *Experiment) setState(s State) {
	logrus.Debugf("experiment %s -> %s", e.state, s)
	e.state = s
}

func (e *Experiment) State() State                { return e.state }
func (e *Experiment) Structure() *model.Structure { return e.structure }
func (e *Experiment) Graph() *graph.Graph         { return e.graph }
func (e *Experiment) Bound() *model.Bound         { return e.bound }
func (e *Experiment) Result() *sim.Result         { return e.result }
func (e *Experiment) Solution() *solver.Solution  { return e.solution }
func (e *Experiment) Selection() Selection        { return e.sel }
