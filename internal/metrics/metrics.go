// Package metrics holds run summaries that observe the table step by step.
package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

// valuesAt returns the cells of name at step t, skipping NaN. Static
// variables are read at their only step.
func valuesAt(tbl *model.Table, name string, t int) []float64 {
	v, ok := tbl.Structure().Variable(name)
	if !ok {
		return nil
	}
	if v.Shape.Static() {
		t = 0
	}
	regions := []int{model.NoRegion}
	if v.Shape.HasRegion() {
		regions = regions[:0]
		for r := range tbl.Dims().Regions {
			regions = append(regions, r)
		}
	}
	var out []float64
	for _, r := range regions {
		if x, ok := tbl.Get(name, model.At(t, r)); ok && !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

// Parse builds a metric from its command line form:
//
//	final:<variable>
//	peak:<variable>
//	bounded:<variable>:<threshold>
//	control_effort[:<control>]
func Parse(spec string) (sim.Metric, error) {
	parts := strings.Split(spec, ":")
	switch parts[0] {
	case "control_effort":
		switch len(parts) {
		case 1:
			return NewControlEffort(), nil
		case 2:
			return NewControlEffort(parts[1]), nil
		}
	case "final":
		if len(parts) != 2 {
			break
		}
		return NewFinal(parts[1]), nil
	case "peak":
		if len(parts) != 2 {
			break
		}
		return NewPeak(parts[1]), nil
	case "bounded":
		if len(parts) != 3 {
			break
		}
		threshold, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("metric %q: bad threshold: %w", spec, err)
		}
		return NewBounded(parts[1], threshold), nil
	default:
		return nil, fmt.Errorf("unknown metric %q", spec)
	}
	return nil, fmt.Errorf("metric %q: wrong number of arguments", spec)
}

// ParseAll parses every spec, stopping at the first error.
func ParseAll(specs []string) ([]sim.Metric, error) {
	out := make([]sim.Metric, 0, len(specs))
	for _, s := range specs {
		m, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Factory returns a function producing fresh metrics for every run of an
// ensemble. The specs are validated once up front.
func Factory(specs []string) (func() []sim.Metric, error) {
	if _, err := ParseAll(specs); err != nil {
		return nil, err
	}
	return func() []sim.Metric {
		ms, _ := ParseAll(specs)
		return ms
	}, nil
}
