package control

import (
	"math"
	"sort"

	"github.com/san-kum/ecosim/internal/model"
)

// Source produces the value of one control at a cell. It reports false when
// it has no value there, letting the Set fall back to its default.
type Source interface {
	Value(ix model.Index, dims model.Dimensions) (float64, bool)
}

// Constant holds one value everywhere.
type Constant struct {
	V float64
}

func (c Constant) Value(model.Index, model.Dimensions) (float64, bool) { return c.V, true }

// Ramp moves linearly from From at the first year to To after Years years,
// then holds To.
type Ramp struct {
	From  float64
	To    float64
	Years float64
}

func (r Ramp) Value(ix model.Index, dims model.Dimensions) (float64, bool) {
	if r.Years <= 0 {
		return r.To, true
	}
	frac := math.Min((dims.Year(ix.T)-dims.BeginYear)/r.Years, 1)
	return r.From + (r.To-r.From)*frac, true
}

// Point of a Schedule.
type Point struct {
	Year  float64 `yaml:"year" json:"year"`
	Value float64 `yaml:"value" json:"value"`
}

// Schedule interpolates linearly between points and holds the end values
// outside them.
type Schedule struct {
	points []Point
}

func NewSchedule(points []Point) *Schedule {
	ps := append([]Point(nil), points...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Year < ps[j].Year })
	return &Schedule{points: ps}
}

func (s *Schedule) Value(ix model.Index, dims model.Dimensions) (float64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	y := dims.Year(ix.T)
	ps := s.points
	if y <= ps[0].Year {
		return ps[0].Value, true
	}
	for i := 1; i < len(ps); i++ {
		if y <= ps[i].Year {
			a, b := ps[i-1], ps[i]
			w := (y - a.Year) / (b.Year - a.Year)
			return a.Value + w*(b.Value-a.Value), true
		}
	}
	return ps[len(ps)-1].Value, true
}

// Series gives one value per time step. Steps beyond its length have no value.
type Series []float64

func (s Series) Value(ix model.Index, _ model.Dimensions) (float64, bool) {
	if ix.T < 0 || ix.T >= len(s) {
		return 0, false
	}
	return s[ix.T], true
}

// Regional picks a source per region. Regions without a source have no value.
type Regional map[string]Source

func (r Regional) Value(ix model.Index, dims model.Dimensions) (float64, bool) {
	if ix.R < 0 || ix.R >= len(dims.Regions) {
		return 0, false
	}
	src, ok := r[dims.Regions[ix.R]]
	if !ok {
		return 0, false
	}
	return src.Value(ix, dims)
}

type orDefault struct {
	src Source
	def float64
}

// Or falls back to def wherever src has no value.
func Or(src Source, def float64) Source { return orDefault{src: src, def: def} }

func (o orDefault) Value(ix model.Index, dims model.Dimensions) (float64, bool) {
	if v, ok := o.src.Value(ix, dims); ok {
		return v, true
	}
	return o.def, true
}
