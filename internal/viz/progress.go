package viz

import (
	"fmt"
	"io"
	"time"

	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

const (
	clearLine  = "\r\033[2K"
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
)

// Progress redraws one status line per frame while a run advances. It
// tracks a single variable, typically temperature.
type Progress struct {
	w         io.Writer
	variable  string
	frameRate int
	lastFrame time.Time
	started   bool
}

func NewProgress(w io.Writer, variable string, frameRate int) *Progress {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &Progress{w: w, variable: variable, frameRate: frameRate}
}

func (p *Progress) OnStep(s sim.Step) {
	dims := s.Table.Dims()
	last := s.Index == dims.Steps-1
	if !p.started {
		fmt.Fprint(p.w, hideCursor)
		p.started = true
	}
	if !last && time.Since(p.lastFrame) < time.Second/time.Duration(p.frameRate) {
		return
	}
	p.lastFrame = time.Now()

	frac := float64(s.Index+1) / float64(dims.Steps)
	line := fmt.Sprintf("%s%s %s %s", clearLine, ProgressBar(frac, 30),
		MetricLabel.Render(fmt.Sprintf("%4.0f", s.Year)), p.tracked(s))
	fmt.Fprint(p.w, line)
	if last {
		fmt.Fprint(p.w, "\n"+showCursor)
	}
}

func (p *Progress) tracked(s sim.Step) string {
	if p.variable == "" {
		return ""
	}
	v, ok := s.Table.Structure().Variable(p.variable)
	if !ok {
		return ""
	}
	t := s.Index
	if v.Shape.Static() {
		t = 0
	}
	var x float64
	if v.Shape.HasRegion() {
		for r := range s.Table.Dims().Regions {
			val, _ := s.Table.Get(p.variable, model.At(t, r))
			x += val
		}
	} else {
		x, _ = s.Table.Get(p.variable, model.AtTime(t))
	}
	return fmt.Sprintf("%s %s", MetricLabel.Render(p.variable), MetricValue.Render(fmt.Sprintf("%.3f", x)))
}
