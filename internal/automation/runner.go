// Package automation runs configured experiments: single runs, scripted
// batches of scenarios, parameter sweeps and Monte Carlo trials.
package automation

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ecosim/internal/binder"
	"github.com/san-kum/ecosim/internal/config"
	"github.com/san-kum/ecosim/internal/experiment"
	"github.com/san-kum/ecosim/internal/metrics"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
	"github.com/san-kum/ecosim/internal/telemetry"
)

// Runner turns a configuration into a simulated experiment.
type Runner struct {
	Registry *experiment.Registry
	Layout   experiment.Layout
	// Metrics are metric specs in the form metrics.Parse accepts.
	Metrics   []string
	Observers []sim.Observer
	Recorder  *telemetry.Recorder
}

func NewRunner() *Runner {
	return &Runner{
		Registry: experiment.NewRegistry(),
		Layout:   experiment.StandardLayout(),
	}
}

// Outcome is one finished run.
type Outcome struct {
	Config     *config.Config
	Experiment *experiment.Experiment
	Result     *sim.Result
}

// Objective returns the final value of the objective variable, or NaN.
func (o *Outcome) Objective() (string, float64) {
	obj, ok := o.Experiment.Structure().Objective()
	if !ok {
		return "", math.NaN()
	}
	return obj.Variable, o.Result.Table.Final(obj.Variable)
}

// Prepare builds and binds an experiment for cfg.
func (r *Runner) Prepare(cfg *config.Config) (*experiment.Experiment, error) {
	ms, err := metrics.ParseAll(r.Metrics)
	if err != nil {
		return nil, err
	}

	e := experiment.New(r.Registry, r.Layout, cfg.Selection())
	if err := e.Build(); err != nil {
		return nil, err
	}
	if r.Recorder != nil {
		r.Recorder.ObserveGraph(e.Graph().Stats())
	}

	b, err := binder.New(cfg)
	if err != nil {
		return nil, err
	}
	bindings, err := b.Bindings(e.Structure())
	if err != nil {
		return nil, err
	}
	if err := e.Bind(b.Dimensions(), bindings); err != nil {
		return nil, err
	}

	for _, m := range ms {
		e.AddMetric(m)
	}
	for _, o := range r.Observers {
		e.AddObserver(o)
	}
	if r.Recorder != nil {
		e.AddObserver(r.Recorder.Observer())
	}
	return e, nil
}

// Run prepares and simulates cfg with its configured controls.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Outcome, error) {
	e, err := r.Prepare(cfg)
	if err != nil {
		return nil, err
	}
	res, err := e.Simulate(ctx, cfg.ControlSet(e.Bound().Dims()), cfg.Simulation.Sim())
	if r.Recorder != nil {
		r.Recorder.ObserveRun(res, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	logrus.WithFields(logrus.Fields{
		"name":       cfg.Name,
		"elapsed":    res.Elapsed,
		"violations": len(res.Violations),
	}).Debug("run complete")
	return &Outcome{Config: cfg, Experiment: e, Result: res}, nil
}

// paramBase is the value a perturbation starts from: the configured
// scalar, or the declared default.
func paramBase(cfg *config.Config, st *model.Structure, name string) (float64, error) {
	if v, ok := cfg.Params[name]; ok {
		return v, nil
	}
	p, ok := st.Parameter(name)
	if !ok {
		return 0, model.Configf(name, "not a parameter of this composition")
	}
	if !p.Shape.Static() || p.Shape.HasRegion() {
		return 0, model.Configf(name, "only scalar parameters can be varied, %s is %s", name, p.Shape)
	}
	if !p.HasDefault {
		return 0, model.Configf(name, "no configured value and no default")
	}
	return p.Default, nil
}
