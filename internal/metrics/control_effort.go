package metrics

import (
	"math"

	"github.com/san-kum/ecosim/internal/sim"
)

// ControlEffort is the mean absolute value over every control cell seen,
// or over the cells of one control when constructed with a name.
type ControlEffort struct {
	name     string
	controls []string
	sum      float64
	samples  int
}

func NewControlEffort(control ...string) *ControlEffort {
	c := &ControlEffort{name: "control_effort"}
	if len(control) > 0 {
		c.name += "_" + control[0]
		c.controls = control[:1]
	}
	return c
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s sim.Step) {
	controls := c.controls
	if controls == nil {
		controls = s.Table.Structure().Controls()
	}
	for _, name := range controls {
		for _, val := range valuesAt(s.Table, name, s.Index) {
			if math.IsNaN(val) {
				continue
			}
			c.sum += math.Abs(val)
			c.samples++
		}
	}
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
