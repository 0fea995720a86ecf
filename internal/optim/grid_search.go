// Package optim searches control trajectories with the forward simulator.
// It is a coarse companion to an external solver: useful for warm starts
// and for exploring a policy family without one.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

// Axis is one searched dimension.
type Axis struct {
	Name   string
	Values []float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// Candidate is one evaluated grid point.
type Candidate struct {
	Point      map[string]float64
	Score      float64
	Violations int
}

type Result struct {
	Best       Candidate
	Candidates []Candidate
}

// GridSearch evaluates every combination of axis values. Build turns a
// point into a control set; Score reads the quantity to optimise from the
// run.
type GridSearch struct {
	Axes      []Axis
	Build     func(point map[string]float64) sim.Controls
	Score     func(res *sim.Result) float64
	Direction model.Direction
	// Feasible drops candidates whose run violates a constraint.
	Feasible bool
	Workers  int
	Metrics  func() []sim.Metric
}

// ObjectiveScore reads the final value of the structure's objective variable.
func ObjectiveScore(obj *model.Objective) func(*sim.Result) float64 {
	return func(res *sim.Result) float64 { return res.Table.Final(obj.Variable) }
}

// Points enumerates the grid, the last axis varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for _, axis := range g.Axes {
		next := make([]map[string]float64, 0, len(points)*len(axis.Values))
		for _, p := range points {
			for _, v := range axis.Values {
				q := make(map[string]float64, len(p)+1)
				for k, x := range p {
					q[k] = x
				}
				q[axis.Name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

func (g *GridSearch) Search(ctx context.Context, s *sim.Simulator, cfg sim.Config) (*Result, error) {
	if g.Build == nil || g.Score == nil {
		return nil, fmt.Errorf("grid search needs Build and Score")
	}
	for _, axis := range g.Axes {
		if len(axis.Values) == 0 {
			return nil, model.Configf(axis.Name, "axis has no values")
		}
	}

	points := g.Points()
	sets := make([]sim.Controls, len(points))
	for i, p := range points {
		sets[i] = g.Build(p)
	}

	ens := sim.NewEnsemble(s, g.Workers)
	if g.Metrics != nil {
		ens.WithMetrics(g.Metrics)
	}
	results, err := ens.Run(ctx, sets, cfg)
	if err != nil {
		return nil, err
	}

	out := &Result{Best: Candidate{Score: math.NaN()}}
	for i, res := range results {
		c := Candidate{Point: points[i], Score: g.Score(res), Violations: len(res.Violations)}
		out.Candidates = append(out.Candidates, c)
		if math.IsNaN(c.Score) || (g.Feasible && c.Violations > 0) {
			continue
		}
		if math.IsNaN(out.Best.Score) || g.better(c.Score, out.Best.Score) {
			out.Best = c
		}
	}
	if out.Best.Point == nil {
		return out, fmt.Errorf("none of %d candidates is admissible", len(points))
	}
	logrus.WithFields(logrus.Fields{
		"candidates": len(points),
		"score":      out.Best.Score,
		"point":      formatPoint(out.Best.Point),
	}).Info("grid search finished")
	return out, nil
}

func (g *GridSearch) better(a, b float64) bool {
	if g.Direction == model.Minimize {
		return a < b
	}
	return a > b
}

func formatPoint(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", k, p[k])
	}
	return s
}
