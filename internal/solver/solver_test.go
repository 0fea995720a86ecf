package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/graph"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

type capped struct{ objective bool }

func (capped) Name() string { return "capped" }

func (c capped) Build(b *model.Builder) ([]model.Relation, error) {
	a := b.Control("a", model.TimeRegion)
	total := b.Variable("total", model.Time)
	rels := []model.Relation{
		model.Define(total, model.Deps(model.Prev(total), model.Now(a)), func(s model.Scope) float64 {
			return s.Lag(total).Or(0) + s.Sum(a)
		}),
		&model.Constraint{Name: "cap", Shape: model.TimeRegion, Rule: func(p model.ParamScope, ix model.Index) model.Outcome {
			return model.Emit(model.Rel{Sense: model.LE, Residual: func(v model.ValueScope) float64 {
				return v.ValueAt(a, ix) - 0.2
			}})
		}},
	}
	if c.objective {
		rels = append(rels, &model.Objective{Variable: total, Direction: model.Maximize})
	}
	return rels, nil
}

func bind(t *testing.T, c capped) (*model.Bound, *sim.Simulator) {
	t.Helper()
	b := model.NewBuilder()
	if err := b.Include(c); err != nil {
		t.Fatal(err)
	}
	st, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	g, err := graph.Build(st)
	if err != nil {
		t.Fatal(err)
	}
	dims := model.Dimensions{BeginYear: 2020, Dt: 5, Steps: 4, Regions: []string{"north", "south"}}
	bound, err := model.Bind(st, dims, model.NewBindings())
	if err != nil {
		t.Fatal(err)
	}
	s, err := sim.New(bound, g)
	if err != nil {
		t.Fatal(err)
	}
	return bound, s
}

func warmStart(t *testing.T, s *sim.Simulator, level float64) *model.Table {
	t.Helper()
	controls := control.NewSet(s.Bound().Dims()).Add("a", control.Constant{V: level})
	res, err := s.Run(context.Background(), controls, sim.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return res.Table
}

func TestNewProblem(t *testing.T) {
	bound, _ := bind(t, capped{objective: true})
	p, err := NewProblem(bound, nil)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	if got := len(p.Constraints); got != 8 {
		t.Errorf("constraint instances = %d, want 8", got)
	}
	if p.Objective.Variable != "total" {
		t.Errorf("objective = %s, want total", p.Objective.Variable)
	}
	if len(p.Relations) != 3 {
		t.Errorf("relations = %d, want 3", len(p.Relations))
	}
}

func TestNewProblemWithoutObjective(t *testing.T) {
	bound, _ := bind(t, capped{})
	if _, err := NewProblem(bound, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestFeasibility(t *testing.T) {
	tests := []struct {
		name   string
		level  float64
		noWarm bool
		want   Status
	}{
		{"within cap", 0.1, false, Optimal},
		{"on cap", 0.2, false, Optimal},
		{"above cap", 0.5, false, Infeasible},
		{"no warm start", 0, true, Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound, s := bind(t, capped{objective: true})
			var warm *model.Table
			if !tt.noWarm {
				warm = warmStart(t, s, tt.level)
			}
			p, err := NewProblem(bound, warm)
			if err != nil {
				t.Fatal(err)
			}
			sol, err := Feasibility{}.Solve(context.Background(), p)
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if sol.Status != tt.want {
				t.Fatalf("status = %s, want %s (%s)", sol.Status, tt.want, sol.Message)
			}
			if tt.want == Optimal {
				if want := warm.Final("total"); sol.ObjectiveValue != want {
					t.Errorf("objective = %g, want %g", sol.ObjectiveValue, want)
				}
				if sol.Err() != nil {
					t.Errorf("Err() = %v, want nil", sol.Err())
				}
				return
			}
			if !errors.Is(sol.Err(), ErrNotOptimal) {
				t.Errorf("Err() = %v, want ErrNotOptimal", sol.Err())
			}
		})
	}
}

func TestFeasibilityCancelled(t *testing.T) {
	bound, s := bind(t, capped{objective: true})
	p, err := NewProblem(bound, warmStart(t, s, 0.1))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Feasibility{}).Solve(ctx, p); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
