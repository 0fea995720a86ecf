package model

import (
	"fmt"
	"math"
	"sort"
)

// Dimensions is the time grid and region set a model is bound to.
type Dimensions struct {
	BeginYear float64
	Dt        float64
	Steps     int
	Regions   []string
}

func (d Dimensions) Validate() error {
	if d.Steps <= 0 {
		return Configf("steps", "must be positive, got %d", d.Steps)
	}
	if d.Dt <= 0 || math.IsNaN(d.Dt) {
		return Configf("dt", "must be positive, got %g", d.Dt)
	}
	if len(d.Regions) == 0 {
		return Configf("regions", "at least one region required")
	}
	seen := make(map[string]bool, len(d.Regions))
	for _, r := range d.Regions {
		if seen[r] {
			return Configf("regions", "duplicate region %q", r)
		}
		seen[r] = true
	}
	return nil
}

// Year returns the calendar year of step t.
func (d Dimensions) Year(t int) float64 { return d.BeginYear + float64(t)*d.Dt }

func (d Dimensions) NumRegions() int { return len(d.Regions) }

// RegionIndex returns the position of a region name.
func (d Dimensions) RegionIndex(name string) (int, bool) {
	for i, r := range d.Regions {
		if r == name {
			return i, true
		}
	}
	return 0, false
}

// Size is the number of cells of a declaration with shape s.
func (d Dimensions) Size(s Shape) int {
	switch s {
	case Time:
		return d.Steps
	case Region:
		return len(d.Regions)
	case TimeRegion:
		return d.Steps * len(d.Regions)
	default:
		return 1
	}
}

// Indices enumerates the cells of shape s, time-major.
func (d Dimensions) Indices(s Shape) []Index {
	out := make([]Index, 0, d.Size(s))
	switch s {
	case Scalar:
		out = append(out, AtTime(0))
	case Time:
		for t := 0; t < d.Steps; t++ {
			out = append(out, AtTime(t))
		}
	case Region:
		for r := range d.Regions {
			out = append(out, At(0, r))
		}
	case TimeRegion:
		for t := 0; t < d.Steps; t++ {
			for r := range d.Regions {
				out = append(out, At(t, r))
			}
		}
	}
	return out
}

// offset maps ix onto the flat storage of shape s. Components of ix that
// s does not have are ignored.
func (d Dimensions) offset(s Shape, ix Index) (int, bool) {
	t, r := 0, 0
	if s.HasTime() {
		if ix.T < 0 || ix.T >= d.Steps {
			return 0, false
		}
		t = ix.T
	}
	if s.HasRegion() {
		if ix.R < 0 || ix.R >= len(d.Regions) {
			return 0, false
		}
		r = ix.R
	}
	switch s {
	case Time:
		return t, true
	case Region:
		return r, true
	case TimeRegion:
		return t*len(d.Regions) + r, true
	default:
		return 0, true
	}
}

type binding struct {
	shape Shape
	data  []float64
}

// Bindings collects parameter values before they are attached to a
// structure. A scalar binding broadcasts to any shape, a time series to
// every region and a regional vector to every step.
type Bindings struct {
	values map[string]binding
}

func NewBindings() *Bindings {
	return &Bindings{values: make(map[string]binding)}
}

func (b *Bindings) SetScalar(name string, v float64) {
	b.values[name] = binding{shape: Scalar, data: []float64{v}}
}

// SetSeries binds one value per time step.
func (b *Bindings) SetSeries(name string, values []float64) {
	b.values[name] = binding{shape: Time, data: append([]float64(nil), values...)}
}

// SetRegional binds one value per region, in Dimensions.Regions order.
func (b *Bindings) SetRegional(name string, values []float64) {
	b.values[name] = binding{shape: Region, data: append([]float64(nil), values...)}
}

// SetGrid binds grid[t][r].
func (b *Bindings) SetGrid(name string, grid [][]float64) {
	var flat []float64
	for _, row := range grid {
		flat = append(flat, row...)
	}
	b.values[name] = binding{shape: TimeRegion, data: flat}
}

func (b *Bindings) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Names returns the bound names, sorted.
func (b *Bindings) Names() []string {
	out := make([]string, 0, len(b.values))
	for k := range b.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Bound is a frozen structure with every parameter value attached.
type Bound struct {
	st     *Structure
	dims   Dimensions
	params map[string][]float64
}

// Bind checks bindings against the declared parameters and returns the bound
// model. A parameter without a binding falls back to its default; one
// without either is a ConfigurationError, as is any value outside the
// parameter's domain or bounds.
func Bind(st *Structure, dims Dimensions, bindings *Bindings) (*Bound, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if bindings == nil {
		bindings = NewBindings()
	}
	bd := &Bound{
		st:     st,
		dims:   dims,
		params: make(map[string][]float64, len(st.params)),
	}
	for _, p := range st.params {
		data, err := expand(p, dims, bindings)
		if err != nil {
			return nil, err
		}
		for i, v := range data {
			if math.IsNaN(v) || !p.InBounds(v) {
				return nil, &ConfigurationError{
					Field:   p.Name,
					Message: fmt.Sprintf("value %g at cell %d outside %s [%g, %g]", v, i, p.Domain, p.Lower, p.Upper),
				}
			}
		}
		bd.params[p.Name] = data
	}
	return bd, nil
}

func expand(p *Parameter, dims Dimensions, bindings *Bindings) ([]float64, error) {
	size := dims.Size(p.Shape)
	out := make([]float64, size)
	b, ok := bindings.values[p.Name]
	if !ok {
		if !p.HasDefault {
			return nil, Configf(p.Name, "missing required parameter")
		}
		for i := range out {
			out[i] = p.Default
		}
		return out, nil
	}

	if b.shape == Scalar {
		for i := range out {
			out[i] = b.data[0]
		}
		return out, nil
	}
	if len(b.data) != dims.Size(b.shape) {
		return nil, Configf(p.Name, "%s binding has %d values, want %d", b.shape, len(b.data), dims.Size(b.shape))
	}
	switch {
	case b.shape == p.Shape:
		copy(out, b.data)
	case p.Shape == TimeRegion && b.shape == Time:
		for _, ix := range dims.Indices(TimeRegion) {
			o, _ := dims.offset(TimeRegion, ix)
			out[o] = b.data[ix.T]
		}
	case p.Shape == TimeRegion && b.shape == Region:
		for _, ix := range dims.Indices(TimeRegion) {
			o, _ := dims.offset(TimeRegion, ix)
			out[o] = b.data[ix.R]
		}
	default:
		return nil, Configf(p.Name, "cannot bind %s values to a %s parameter", b.shape, p.Shape)
	}
	return out, nil
}

func (b *Bound) Structure() *Structure { return b.st }

func (b *Bound) Dims() Dimensions { return b.dims }

// Lookup reads a parameter at ix, projected on the parameter's shape.
func (b *Bound) Lookup(name string, ix Index) (float64, error) {
	p, ok := b.st.Parameter(name)
	if !ok {
		return math.NaN(), Configf(name, "not a parameter")
	}
	o, ok := b.dims.offset(p.Shape, ix)
	if !ok {
		return math.NaN(), Configf(name, "index %s out of range for %s parameter", ix, p.Shape)
	}
	return b.params[name][o], nil
}

// ParamAt is Lookup without the error; invalid reads yield NaN.
func (b *Bound) ParamAt(name string, ix Index) float64 {
	v, _ := b.Lookup(name, ix)
	return v
}

// Values returns a copy of the flat values of a parameter.
func (b *Bound) Values(name string) []float64 {
	return append([]float64(nil), b.params[name]...)
}
