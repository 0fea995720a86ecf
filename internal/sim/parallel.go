package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs one simulator over several control sets concurrently. The
// bound model and graph are shared read-only; every run owns its table.
type Ensemble struct {
	base       *Simulator
	workers    int
	newMetrics func() []Metric
}

func NewEnsemble(s *Simulator, workers int) *Ensemble {
	return &Ensemble{base: s, workers: workers}
}

// WithMetrics sets a factory called once per run, since metrics are stateful.
func (e *Ensemble) WithMetrics(f func() []Metric) *Ensemble {
	e.newMetrics = f
	return e
}

// Run returns one result per control set, in input order. The first failing
// run cancels the rest.
func (e *Ensemble) Run(ctx context.Context, sets []Controls, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i, controls := range sets {
		g.Go(func() error {
			sim := &Simulator{bound: e.base.bound, graph: e.base.graph, refs: e.base.refs}
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					sim.AddMetric(m)
				}
			}
			res, err := sim.Run(gctx, controls, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
