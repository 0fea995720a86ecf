package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ecosim/internal/automation"
	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/optim"
	"github.com/san-kum/ecosim/internal/sim"
	"github.com/san-kum/ecosim/internal/solver"
)

func newBatchCmd() *cobra.Command {
	var metrics []string
	cmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
			results, err := automation.RunScenario(context.Background(), sc, newRunner(metrics), st)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tRUN\tOBJECTIVE\tWARN\tVIOL")
			for _, r := range results {
				name, value := r.Outcome.Objective()
				objective := "-"
				if name != "" {
					objective = fmt.Sprintf("%s=%.6g", name, value)
				}
				runID := r.RunID
				if runID == "" {
					runID = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", r.Name, runID, objective,
					len(r.Outcome.Result.Warnings), len(r.Outcome.Result.Violations))
			}
			w.Flush()
			return err
		},
	}
	cmd.Flags().StringSliceVar(&metrics, "metric", nil, "metrics recorded for every step")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var (
		mf      modelFlags
		param   string
		from    float64
		to      float64
		n       int
		metrics []string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run the configuration once per value of a scalar parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if param == "" {
				return fmt.Errorf("--param is required")
			}
			cfg, err := mf.load(cmd)
			if err != nil {
				return err
			}
			sweep := &automation.ParameterSweep{
				Base:    cfg,
				Param:   param,
				Values:  optim.Linspace(from, to, n),
				Workers: parallelism(mf.workers),
			}
			fmt.Printf("sweeping %s over %d values...\n", param, len(sweep.Values))
			results, err := automation.RunSweep(context.Background(), sweep, newRunner(metrics))
			if err != nil {
				return err
			}

			names := metricNames(results)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tOBJECTIVE\tVIOL", param)
			for _, name := range names {
				fmt.Fprintf(w, "\t%s", name)
			}
			fmt.Fprintln(w)
			for _, r := range results {
				fmt.Fprintf(w, "%.4g\t%.6g\t%d", r.ParamValue, r.Objective, r.Violations)
				for _, name := range names {
					fmt.Fprintf(w, "\t%.4g", r.Metrics[name])
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVar(&param, "param", "", "scalar parameter to sweep")
	cmd.Flags().Float64Var(&from, "from", 0, "first value")
	cmd.Flags().Float64Var(&to, "to", 1, "last value")
	cmd.Flags().IntVar(&n, "n", 5, "number of values")
	cmd.Flags().StringSliceVar(&metrics, "metric", []string{"peak:temperature"}, "metrics reported per value")
	return cmd
}

func metricNames(results []automation.SweepResult) []string {
	if len(results) == 0 {
		return nil
	}
	names := make([]string, 0, len(results[0].Metrics))
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parallelism maps the --workers flag to a trial pool size.
func parallelism(workers int) int {
	if workers > 0 {
		return workers
	}
	return 4
}

func newMonteCarloCmd() *cobra.Command {
	var (
		mf           modelFlags
		params       []string
		trials       int
		perturbation float64
		seed         int64
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run trials with randomly perturbed scalar parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(params) == 0 {
				return fmt.Errorf("--params is required")
			}
			cfg, err := mf.load(cmd)
			if err != nil {
				return err
			}
			mc := &automation.MonteCarloConfig{
				Base:         cfg,
				Params:       params,
				Perturbation: perturbation,
				NumTrials:    trials,
				Seed:         seed,
				Workers:      parallelism(mf.workers),
			}
			fmt.Printf("running %d trials, perturbing %v by ±%.0f%%...\n", trials, params, perturbation*100)
			results, err := automation.RunMonteCarlo(context.Background(), mc, newRunner(nil))
			if err != nil {
				return err
			}

			feasible, infeasible, mean, std := automation.MonteCarloStats(results)
			fmt.Printf("\nfeasible:   %d (%.1f%%)\n", feasible, 100*float64(feasible)/float64(len(results)))
			fmt.Printf("infeasible: %d\n", infeasible)
			if !math.IsNaN(mean) {
				fmt.Printf("objective:  %.6g ± %.4g\n", mean, std)
			}
			return nil
		},
	}
	mf.register(cmd)
	cmd.Flags().StringSliceVar(&params, "params", nil, "scalar parameters to perturb")
	cmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	cmd.Flags().Float64Var(&perturbation, "perturbation", 0.1, "relative perturbation in [0, 1)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}

func newPrerunCmd() *cobra.Command {
	var (
		mf        modelFlags
		levels    int
		minYears  float64
		maxYears  float64
		tolerance float64
		save      bool
	)
	cmd := &cobra.Command{
		Use:   "prerun",
		Short: "search a ramp policy and check it as a warm start for the solver",
		Long: `prerun grid-searches linear abatement ramps with the forward simulator,
simulates the best admissible ramp and hands its trajectory to the
feasibility adapter as a warm start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mf.load(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			runner := newRunner(nil)
			e, err := runner.Prepare(cfg)
			if err != nil {
				return err
			}
			obj, ok := e.Structure().Objective()
			if !ok {
				return fmt.Errorf("composition declares no objective")
			}
			s, err := e.Simulator()
			if err != nil {
				return err
			}
			dims := e.Bound().Dims()
			ramp := func(p map[string]float64) sim.Controls {
				return control.NewSet(dims).Add("relative_abatement",
					control.Ramp{From: 0, To: p["to"], Years: p["years"]})
			}

			gs := &optim.GridSearch{
				Axes: []optim.Axis{
					{Name: "to", Values: optim.Linspace(0, 1, levels)},
					{Name: "years", Values: optim.Linspace(minYears, maxYears, levels)},
				},
				Build:     ramp,
				Score:     optim.ObjectiveScore(obj),
				Direction: obj.Direction,
				Feasible:  true,
				Workers:   parallelism(mf.workers),
			}
			timer := recorder.Timer()
			best, err := gs.Search(ctx, s, cfg.Simulation.Sim())
			timer.ObserveDuration()
			if err != nil {
				return err
			}
			fmt.Printf("best ramp: to=%.3g over %.3g years, %s=%.6g (%d candidates)\n",
				best.Best.Point["to"], best.Best.Point["years"], obj.Variable, best.Best.Score, len(best.Candidates))

			warm, err := s.Run(ctx, ramp(best.Best.Point), cfg.Simulation.Sim())
			if err != nil {
				return err
			}
			sol, err := e.Optimise(ctx, solver.Feasibility{Tolerance: tolerance}, warm.Table)
			if sol != nil {
				recorder.ObserveSolve("feasibility", sol.Status.String())
				fmt.Printf("feasibility check: %s\n", sol.Status)
			}
			if err != nil && !errors.Is(err, solver.ErrNotOptimal) {
				return err
			}
			if err != nil {
				logrus.Warn(err)
			}

			if save {
				st, serr := openStore()
				if serr != nil {
					return serr
				}
				out := &automation.Outcome{Config: cfg, Experiment: e, Result: warm}
				runID, serr := st.Save(automation.Metadata(out), warm.Table)
				if serr != nil {
					return serr
				}
				fmt.Printf("run id: %s\n", runID)
			}
			return err
		},
	}
	mf.register(cmd)
	cmd.Flags().IntVar(&levels, "levels", 6, "grid levels per axis")
	cmd.Flags().Float64Var(&minYears, "min-years", 20, "shortest ramp")
	cmd.Flags().Float64Var(&maxYears, "max-years", 80, "longest ramp")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "constraint tolerance of the feasibility check")
	cmd.Flags().BoolVar(&save, "save", false, "store the warm start trajectory")
	return cmd
}
