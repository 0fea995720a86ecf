// Package binder turns a configuration into the dimensions and parameter
// values of a model run.
package binder

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ecosim/internal/config"
	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/input"
	"github.com/san-kum/ecosim/internal/model"
)

// Baseline parameters filled from input data or from the regional growth
// blocks.
const (
	Population = "population"
	GDP        = "baseline_GDP"
	Emissions  = "baseline_emissions"
)

// DefaultMapping names the input variables read for each baseline parameter.
var DefaultMapping = map[string]string{
	Population: "Population",
	GDP:        "GDP|PPP",
	Emissions:  "Emissions|CO2",
}

type Binder struct {
	cfg  *config.Config
	dims model.Dimensions
	data *input.Dataset
}

// New reads the configured input file, if any.
func New(cfg *config.Config) (*Binder, error) {
	b := &Binder{cfg: cfg, dims: cfg.Dimensions()}
	if cfg.Input != nil {
		ds, err := input.ReadFile(cfg.Input.Path)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"path": cfg.Input.Path, "series": ds.Len()}).Debug("input data loaded")
		b.data = ds
	}
	return b, nil
}

// WithData uses ds in place of the configured input file.
func (b *Binder) WithData(ds *input.Dataset) *Binder {
	b.data = ds
	return b
}

func (b *Binder) Dimensions() model.Dimensions { return b.dims }

// Bindings collects every configured value. Names st does not declare are
// logged and skipped; regional parameters a region leaves out fall back to
// the declared default.
func (b *Binder) Bindings(st *model.Structure) (*model.Bindings, error) {
	out := model.NewBindings()
	if err := b.baseline(out); err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(b.cfg.Params) {
		if !b.declared(st, name) {
			continue
		}
		out.SetScalar(name, b.cfg.Params[name])
	}

	for _, name := range sortedKeys(b.cfg.Series) {
		if !b.declared(st, name) {
			continue
		}
		out.SetSeries(name, b.onGrid(config.Points(b.cfg.Series[name])))
	}

	regional := make(map[string]bool)
	for _, r := range b.cfg.Regions {
		for name := range r.Params {
			regional[name] = true
		}
	}
	for _, name := range sortedKeys(regional) {
		if !b.declared(st, name) {
			continue
		}
		values, err := b.regionalValues(st, name)
		if err != nil {
			return nil, err
		}
		out.SetRegional(name, values)
	}
	return out, nil
}

func (b *Binder) declared(st *model.Structure, name string) bool {
	if _, ok := st.Parameter(name); ok {
		return true
	}
	logrus.WithField("param", name).Warn("ignoring value for undeclared parameter")
	return false
}

func (b *Binder) regionalValues(st *model.Structure, name string) ([]float64, error) {
	p, _ := st.Parameter(name)
	values := make([]float64, len(b.cfg.Regions))
	for i, r := range b.cfg.Regions {
		v, ok := r.Params[name]
		switch {
		case ok:
			values[i] = v
		case p.HasDefault:
			values[i] = p.Default
		default:
			return nil, model.Configf(name, "no value for region %s", r.Name)
		}
	}
	return values, nil
}

func (b *Binder) baseline(out *model.Bindings) error {
	if b.data != nil {
		return b.baselineFromData(out)
	}
	grid := func(pick func(config.RegionConfig) config.GrowthConfig) [][]float64 {
		g := make([][]float64, b.dims.Steps)
		for t := range g {
			years := b.dims.Year(t) - b.dims.BeginYear
			g[t] = make([]float64, len(b.cfg.Regions))
			for r, region := range b.cfg.Regions {
				g[t][r] = pick(region).At(years)
			}
		}
		return g
	}
	out.SetGrid(Population, grid(func(r config.RegionConfig) config.GrowthConfig { return r.Population }))
	out.SetGrid(GDP, grid(func(r config.RegionConfig) config.GrowthConfig { return r.GDP }))
	out.SetGrid(Emissions, grid(func(r config.RegionConfig) config.GrowthConfig { return r.Emissions }))
	return nil
}

func (b *Binder) baselineFromData(out *model.Bindings) error {
	mapping := make(map[string]string, len(DefaultMapping))
	for k, v := range DefaultMapping {
		mapping[k] = v
	}
	var modelName, scenario string
	if in := b.cfg.Input; in != nil {
		for k, v := range in.Mapping {
			mapping[k] = v
		}
		modelName, scenario = in.Model, in.Scenario
	}

	for _, param := range []string{Population, GDP, Emissions} {
		g := make([][]float64, b.dims.Steps)
		for t := range g {
			g[t] = make([]float64, len(b.dims.Regions))
		}
		for r, region := range b.dims.Regions {
			key := input.Key{Model: modelName, Scenario: scenario, Region: region, Variable: mapping[param]}
			s, err := b.data.Lookup(key)
			if err != nil {
				return err
			}
			for t, v := range s.OnGrid(b.dims, mapping[param]) {
				g[t][r] = v
			}
		}
		out.SetGrid(param, g)
		logrus.WithFields(logrus.Fields{"param": param, "variable": mapping[param]}).Debug("baseline bound from input")
	}
	return nil
}

func (b *Binder) onGrid(points []control.Point) []float64 {
	sched := control.NewSchedule(points)
	out := make([]float64, b.dims.Steps)
	for t := range out {
		out[t], _ = sched.Value(model.AtTime(t), b.dims)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
