package optim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/graph"
	"github.com/san-kum/ecosim/internal/metrics"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

// quadratic rewards an abatement level of 0.3 and caps it at 0.2.
type quadratic struct{}

func (quadratic) Name() string { return "quadratic" }

func (quadratic) Build(b *model.Builder) ([]model.Relation, error) {
	a := b.Control("a", model.TimeRegion)
	loss := b.Variable("loss", model.TimeRegion)
	payoff := b.Variable("payoff", model.Time)
	return []model.Relation{
		model.Define(loss, model.Deps(model.Now(a)), func(s model.Scope) float64 {
			d := s.Value(a) - 0.3
			return d * d
		}),
		model.Define(payoff, model.Deps(model.Prev(payoff), model.Now(loss)), func(s model.Scope) float64 {
			return s.Lag(payoff).Or(0) - s.Sum(loss)
		}),
		&model.Constraint{Name: "cap", Shape: model.TimeRegion, Rule: func(p model.ParamScope, ix model.Index) model.Outcome {
			return model.Emit(model.Rel{Sense: model.LE, Residual: func(v model.ValueScope) float64 {
				return v.ValueAt(a, ix) - 0.2
			}})
		}},
		&model.Objective{Variable: payoff, Direction: model.Maximize},
	}, nil
}

func newSimulator(t *testing.T) (*sim.Simulator, model.Dimensions) {
	t.Helper()
	b := model.NewBuilder()
	require.NoError(t, b.Include(quadratic{}))
	st, err := b.Freeze()
	require.NoError(t, err)
	g, err := graph.Build(st)
	require.NoError(t, err)
	dims := model.Dimensions{BeginYear: 2020, Dt: 10, Steps: 4, Regions: []string{"a", "b"}}
	bound, err := model.Bind(st, dims, model.NewBindings())
	require.NoError(t, err)
	s, err := sim.New(bound, g)
	require.NoError(t, err)
	return s, dims
}

func levelSearch(s *sim.Simulator, dims model.Dimensions) *GridSearch {
	obj, _ := s.Bound().Structure().Objective()
	return &GridSearch{
		Axes: []Axis{{Name: "level", Values: Linspace(0, 1, 11)}},
		Build: func(p map[string]float64) sim.Controls {
			return control.NewSet(dims).Add("a", control.Constant{V: p["level"]})
		},
		Score:     ObjectiveScore(obj),
		Direction: obj.Direction,
		Workers:   4,
	}
}

func TestGridSearchFindsOptimum(t *testing.T) {
	s, dims := newSimulator(t)
	gs := levelSearch(s, dims)

	res, err := gs.Search(context.Background(), s, sim.Config{})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 11)
	assert.InDelta(t, 0.3, res.Best.Point["level"], 1e-9)
	assert.InDelta(t, 0, res.Best.Score, 1e-12)
}

func TestGridSearchFeasibleOnly(t *testing.T) {
	s, dims := newSimulator(t)
	gs := levelSearch(s, dims)
	gs.Feasible = true
	gs.Metrics = func() []sim.Metric { return []sim.Metric{metrics.NewPeak("loss")} }

	res, err := gs.Search(context.Background(), s, sim.Config{})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Best.Point["level"], 1e-9)
	assert.Zero(t, res.Best.Violations)
}

func TestGridSearchMinimize(t *testing.T) {
	s, dims := newSimulator(t)
	gs := levelSearch(s, dims)
	gs.Direction = model.Minimize

	res, err := gs.Search(context.Background(), s, sim.Config{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Best.Point["level"], 1e-9)
}

func TestGridSearchErrors(t *testing.T) {
	s, dims := newSimulator(t)

	gs := levelSearch(s, dims)
	gs.Axes = append(gs.Axes, Axis{Name: "empty"})
	_, err := gs.Search(context.Background(), s, sim.Config{})
	assert.ErrorIs(t, err, model.ErrConfiguration)

	gs = levelSearch(s, dims)
	gs.Score = func(*sim.Result) float64 { return math.NaN() }
	_, err = gs.Search(context.Background(), s, sim.Config{})
	assert.Error(t, err)
}

func TestPoints(t *testing.T) {
	gs := &GridSearch{Axes: []Axis{
		{Name: "to", Values: []float64{0, 1}},
		{Name: "years", Values: []float64{10, 20, 30}},
	}}
	points := gs.Points()
	require.Len(t, points, 6)
	assert.Equal(t, map[string]float64{"to": 0, "years": 10}, points[0])
	assert.Equal(t, map[string]float64{"to": 1, "years": 30}, points[5])
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
}
