// Package telemetry records run statistics as Prometheus metrics on a
// private registry. The CLI dumps the registry to a textfile for the node
// exporter's textfile collector.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/ecosim/internal/graph"
	"github.com/san-kum/ecosim/internal/sim"
)

type Recorder struct {
	reg *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	steps       prometheus.Counter
	warnings    prometheus.Counter
	violations  prometheus.Counter
	solves      *prometheus.CounterVec
	graphNodes  *prometheus.GaugeVec
	graphEdges  *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecosim_runs_total",
			Help: "Simulation runs by result",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecosim_run_duration_seconds",
			Help:    "Wall time of one simulation run",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		steps: f.NewCounter(prometheus.CounterOpts{
			Name: "ecosim_steps_total",
			Help: "Completed time steps across all runs",
		}),
		warnings: f.NewCounter(prometheus.CounterOpts{
			Name: "ecosim_numerical_warnings_total",
			Help: "Numerical warnings recorded by non-strict runs",
		}),
		violations: f.NewCounter(prometheus.CounterOpts{
			Name: "ecosim_constraint_violations_total",
			Help: "Constraint instances not satisfied by simulated trajectories",
		}),
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecosim_solves_total",
			Help: "Solver invocations by adapter and terminal status",
		}, []string{"adapter", "status"}),
		graphNodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ecosim_graph_nodes",
			Help: "Nodes of the last built dependency graph by kind",
		}, []string{"kind"}),
		graphEdges: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ecosim_graph_edges",
			Help: "Edges of the last built dependency graph by timing",
		}, []string{"timing"}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveRun counts a finished run. res may be nil when err is set.
func (r *Recorder) ObserveRun(res *sim.Result, err error) {
	if err != nil {
		r.runs.WithLabelValues("error").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	r.runDuration.Observe(res.Elapsed.Seconds())
	r.warnings.Add(float64(len(res.Warnings)))
	r.violations.Add(float64(len(res.Violations)))
}

func (r *Recorder) ObserveSolve(adapter, status string) {
	r.solves.WithLabelValues(adapter, status).Inc()
}

func (r *Recorder) ObserveGraph(s graph.Stats) {
	r.graphNodes.WithLabelValues("variable").Set(float64(s.Variables - s.Controls))
	r.graphNodes.WithLabelValues("control").Set(float64(s.Controls))
	r.graphNodes.WithLabelValues("input").Set(float64(s.Inputs))
	r.graphEdges.WithLabelValues("same_time").Set(float64(s.SameTime))
	r.graphEdges.WithLabelValues("lagged").Set(float64(s.Lagged))
}

// Observer counts steps as the simulator completes them.
func (r *Recorder) Observer() sim.Observer { return stepObserver{r.steps} }

type stepObserver struct{ c prometheus.Counter }

func (o stepObserver) OnStep(sim.Step) { o.c.Inc() }

// Timer measures an operation outside the simulator.
func (r *Recorder) Timer() *prometheus.Timer {
	return prometheus.NewTimer(r.runDuration)
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
