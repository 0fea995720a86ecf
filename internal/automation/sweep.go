package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ecosim/internal/config"
)

// ParameterSweep runs the base configuration once per value of a scalar
// parameter.
type ParameterSweep struct {
	Base    *config.Config
	Param   string
	Values  []float64
	Workers int
}

type SweepResult struct {
	ParamValue float64
	Objective  float64
	Violations int
	Metrics    map[string]float64
}

// RunSweep returns one result per value, in input order. Each value gets
// its own experiment since parameters are fixed at bind time.
func RunSweep(ctx context.Context, sweep *ParameterSweep, runner *Runner) ([]SweepResult, error) {
	if len(sweep.Values) == 0 {
		return nil, fmt.Errorf("sweep of %s has no values", sweep.Param)
	}
	e, err := runner.Prepare(sweep.Base)
	if err != nil {
		return nil, err
	}
	if _, err := paramBase(sweep.Base, e.Structure(), sweep.Param); err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(sweep.Values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(sweep.Workers, 1))
	for i, v := range sweep.Values {
		g.Go(func() error {
			cfg := sweep.Base.Clone()
			cfg.Name = fmt.Sprintf("%s_%s_%g", sweep.Base.Name, sweep.Param, v)
			cfg.Params[sweep.Param] = v

			out, err := runner.Run(gctx, cfg)
			if err != nil {
				return err
			}
			_, obj := out.Objective()
			results[i] = SweepResult{
				ParamValue: v,
				Objective:  obj,
				Violations: len(out.Result.Violations),
				Metrics:    out.Result.Metrics,
			}
			logrus.Debugf("sweep %d/%d: %s=%.4g", i+1, len(sweep.Values), sweep.Param, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloConfig perturbs scalar parameters by a uniform relative factor
// in [1-Perturbation, 1+Perturbation].
type MonteCarloConfig struct {
	Base         *config.Config
	Params       []string
	Perturbation float64
	NumTrials    int
	Seed         int64
	Workers      int
}

type MonteCarloResult struct {
	TrialID   int
	Params    map[string]float64
	Objective float64
	// Feasible is true when the trajectory satisfies every constraint.
	Feasible bool
	Warnings int
}

// RunMonteCarlo draws every trial's parameters up front from one seeded
// source, so results do not depend on scheduling.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, runner *Runner) ([]MonteCarloResult, error) {
	if mc.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial")
	}
	if mc.Perturbation < 0 || mc.Perturbation >= 1 {
		return nil, fmt.Errorf("perturbation must be in [0, 1), got %g", mc.Perturbation)
	}
	e, err := runner.Prepare(mc.Base)
	if err != nil {
		return nil, err
	}
	base := make(map[string]float64, len(mc.Params))
	for _, name := range mc.Params {
		v, err := paramBase(mc.Base, e.Structure(), name)
		if err != nil {
			return nil, err
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot perturb %s: value is infinite", name)
		}
		base[name] = v
	}

	rng := rand.New(rand.NewSource(mc.Seed))
	draws := make([]map[string]float64, mc.NumTrials)
	for i := range draws {
		draws[i] = make(map[string]float64, len(mc.Params))
		for _, name := range mc.Params {
			draws[i][name] = base[name] * (1 + (rng.Float64()-0.5)*2*mc.Perturbation)
		}
	}

	results := make([]MonteCarloResult, mc.NumTrials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(mc.Workers, 1))
	for trial, params := range draws {
		g.Go(func() error {
			cfg := mc.Base.Clone()
			cfg.Name = fmt.Sprintf("%s_trial%d", mc.Base.Name, trial)
			for k, v := range params {
				cfg.Params[k] = v
			}
			out, err := runner.Run(gctx, cfg)
			if err != nil {
				return fmt.Errorf("trial %d: %w", trial, err)
			}
			_, obj := out.Objective()
			results[trial] = MonteCarloResult{
				TrialID:   trial,
				Params:    params,
				Objective: obj,
				Feasible:  len(out.Result.Violations) == 0,
				Warnings:  len(out.Result.Warnings),
			}
			if (trial+1)%10 == 0 {
				logrus.Infof("monte carlo: trial %d/%d complete", trial+1, mc.NumTrials)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloStats counts feasible trials and summarises the objective.
func MonteCarloStats(results []MonteCarloResult) (feasible, infeasible int, mean, std float64) {
	n := 0
	for _, r := range results {
		if r.Feasible {
			feasible++
		} else {
			infeasible++
		}
		if !math.IsNaN(r.Objective) {
			mean += r.Objective
			n++
		}
	}
	if n == 0 {
		return feasible, infeasible, math.NaN(), math.NaN()
	}
	mean /= float64(n)
	for _, r := range results {
		if !math.IsNaN(r.Objective) {
			std += (r.Objective - mean) * (r.Objective - mean)
		}
	}
	std = math.Sqrt(std / float64(n))
	return
}
