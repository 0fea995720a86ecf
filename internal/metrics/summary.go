package metrics

import (
	"math"

	"github.com/san-kum/ecosim/internal/sim"
)

// Final is the value of a variable at the last observed step, summed over
// regions.
type Final struct {
	variable string
	value    float64
}

func NewFinal(variable string) *Final {
	return &Final{variable: variable, value: math.NaN()}
}

func (f *Final) Name() string { return "final_" + f.variable }

func (f *Final) Observe(s sim.Step) {
	if vals := valuesAt(s.Table, f.variable, s.Index); len(vals) > 0 {
		f.value = sum(vals)
	}
}

func (f *Final) Value() float64 { return f.value }

func (f *Final) Reset() { f.value = math.NaN() }

// Peak is the largest single cell of a variable over the run.
type Peak struct {
	variable string
	peak     float64
	year     float64
}

func NewPeak(variable string) *Peak {
	return &Peak{variable: variable, peak: math.Inf(-1)}
}

func (p *Peak) Name() string { return "peak_" + p.variable }

func (p *Peak) Observe(s sim.Step) {
	for _, v := range valuesAt(s.Table, p.variable, s.Index) {
		if v > p.peak {
			p.peak = v
			p.year = s.Year
		}
	}
}

func (p *Peak) Value() float64 {
	if math.IsInf(p.peak, -1) {
		return math.NaN()
	}
	return p.peak
}

// Year is when the peak was first reached.
func (p *Peak) Year() float64 { return p.year }

func (p *Peak) Reset() {
	p.peak = math.Inf(-1)
	p.year = 0
}

// Bounded is the share of steps in which every cell of a variable stays at
// or below threshold.
type Bounded struct {
	variable   string
	threshold  float64
	violations int
	samples    int
}

func NewBounded(variable string, threshold float64) *Bounded {
	return &Bounded{variable: variable, threshold: threshold}
}

func (b *Bounded) Name() string { return "bounded_" + b.variable }

func (b *Bounded) Observe(s sim.Step) {
	vals := valuesAt(s.Table, b.variable, s.Index)
	if len(vals) == 0 {
		return
	}
	b.samples++
	for _, v := range vals {
		if v > b.threshold {
			b.violations++
			break
		}
	}
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}
