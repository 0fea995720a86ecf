// Package input reads scenario data in long format: one row per model,
// scenario, region, variable, unit, year and value, with a header naming
// those columns in any order and case.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/model"
)

var columns = []string{"model", "scenario", "region", "variable", "unit", "year", "value"}

// Key identifies one series.
type Key struct {
	Model    string
	Scenario string
	Region   string
	Variable string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Model, k.Scenario, k.Region, k.Variable)
}

// Series is the data of one key, sorted by year.
type Series struct {
	Unit   string
	Points []control.Point
}

// Dataset holds every series of a file.
type Dataset struct {
	series map[Key]*Series
}

func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := pos[c]; !ok {
			return nil, model.Configf("input", "missing column %q", c)
		}
	}

	ds := &Dataset{series: make(map[Key]*Series)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		year, err := strconv.ParseFloat(rec[pos["year"]], 64)
		if err != nil {
			return nil, model.Configf("input", "line %d: bad year %q", line, rec[pos["year"]])
		}
		raw := strings.TrimSpace(rec[pos["value"]])
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, model.Configf("input", "line %d: bad value %q", line, raw)
		}
		key := Key{
			Model:    rec[pos["model"]],
			Scenario: rec[pos["scenario"]],
			Region:   rec[pos["region"]],
			Variable: rec[pos["variable"]],
		}
		s, ok := ds.series[key]
		if !ok {
			s = &Series{Unit: rec[pos["unit"]]}
			ds.series[key] = s
		}
		s.Points = append(s.Points, control.Point{Year: year, Value: value})
	}
	for key, s := range ds.series {
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Year < s.Points[j].Year })
		for i := 1; i < len(s.Points); i++ {
			if s.Points[i].Year == s.Points[i-1].Year {
				return nil, model.Configf("input", "%s: year %g given twice", key, s.Points[i].Year)
			}
		}
	}
	return ds, nil
}

func (d *Dataset) Len() int { return len(d.series) }

// Keys returns every key, sorted.
func (d *Dataset) Keys() []Key {
	keys := make([]Key, 0, len(d.series))
	for k := range d.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Lookup finds a series. Empty model or scenario match any value as long as
// exactly one series fits.
func (d *Dataset) Lookup(key Key) (*Series, error) {
	if s, ok := d.series[key]; ok {
		return s, nil
	}
	var found []Key
	for k := range d.series {
		if k.Region != key.Region || k.Variable != key.Variable {
			continue
		}
		if (key.Model == "" || k.Model == key.Model) && (key.Scenario == "" || k.Scenario == key.Scenario) {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return nil, model.Configf("input", "no series for %s", key)
	case 1:
		return d.series[found[0]], nil
	default:
		return nil, model.Configf("input", "%d series match %s, set model and scenario", len(found), key)
	}
}

// Years after the last data point over which the final growth rate fades
// out.
const stabilisingYears = 50

// OnGrid interpolates the series linearly onto every step of dims. Beyond
// the data the last change rate fades to zero over stabilisingYears years;
// a falling emissions series is held at its last value instead.
func (s *Series) OnGrid(dims model.Dimensions, variable string) []float64 {
	ps := s.extended(dims.Year(dims.Steps-1), strings.Contains(strings.ToLower(variable), "emissions"))
	sched := control.NewSchedule(ps)
	out := make([]float64, dims.Steps)
	for t := range out {
		out[t], _ = sched.Value(model.AtTime(t), dims)
	}
	return out
}

func (s *Series) extended(until float64, holdDecline bool) []control.Point {
	ps := append([]control.Point(nil), s.Points...)
	n := len(ps)
	if n < 2 || ps[n-1].Year >= until {
		return ps
	}
	last, prev := ps[n-1], ps[n-2]
	rate := (last.Value - prev.Value) / (last.Year - prev.Year)
	step := last.Year - prev.Year
	end := last.Year
	v := last.Value
	for y := end + step; y < until+step; y += step {
		if !(rate < 0 && holdDecline) {
			change := rate - rate*(y-step-end)/stabilisingYears
			if rate > 0 {
				change = math.Max(0, change)
			} else {
				change = math.Min(0, change)
			}
			v += change * step
		}
		ps = append(ps, control.Point{Year: y, Value: v})
	}
	return ps
}
