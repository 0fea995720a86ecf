package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ecosim/internal/model"
)

// AllRegions selects every region of a regional variable.
const AllRegions = -1

type PlotOptions struct {
	Width  int
	Height int
	// Region is a region index or AllRegions.
	Region int
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 70, Height: 12, Region: AllRegions}
}

// PlotVariable draws the time series of name. Regional variables get one
// line per selected region and a colored legend.
func PlotVariable(tbl *model.Table, name string, opts PlotOptions) (string, error) {
	v, ok := tbl.Structure().Variable(name)
	if !ok {
		return "", fmt.Errorf("unknown variable %q", name)
	}
	dims := tbl.Dims()
	if v.Shape.Static() {
		return staticValues(tbl, v, dims), nil
	}

	regions := []int{model.NoRegion}
	if v.Shape.HasRegion() {
		if opts.Region != AllRegions {
			if opts.Region < 0 || opts.Region >= dims.NumRegions() {
				return "", fmt.Errorf("region index %d out of range", opts.Region)
			}
			regions = []int{opts.Region}
		} else {
			regions = regions[:0]
			for r := range dims.Regions {
				regions = append(regions, r)
			}
		}
	}

	series := make([][]float64, 0, len(regions))
	for _, r := range regions {
		s := tbl.Series(name, r)
		if allNaN(s) {
			continue
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return Subtle.Render(name + ": no values"), nil
	}

	caption := fmt.Sprintf("%s [%s] %g-%g", name, unitOr(v.Unit), dims.BeginYear, dims.Year(dims.Steps-1))
	chart := asciigraph.PlotMany(series,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(CurrentTheme.Series[:min(len(series), len(CurrentTheme.Series))]...),
		asciigraph.Caption(caption),
	)
	if !v.Shape.HasRegion() {
		return chart, nil
	}
	return chart + "\n" + legend(dims, regions), nil
}

func legend(dims model.Dimensions, regions []int) string {
	parts := make([]string, 0, len(regions))
	for i, r := range regions {
		color := CurrentTheme.SeriesHex[i%len(CurrentTheme.SeriesHex)]
		parts = append(parts, lipgloss.NewStyle().Foreground(color).Render("━ "+dims.Regions[r]))
	}
	return strings.Join(parts, "  ")
}

func staticValues(tbl *model.Table, v *model.Variable, dims model.Dimensions) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(v.Name) + "\n")
	if !v.Shape.HasRegion() {
		sb.WriteString(formatValue(tbl.ValueAt(v.Name, model.AtTime(0)), v.Unit))
		return sb.String()
	}
	for r, region := range dims.Regions {
		fmt.Fprintf(&sb, "%s %s\n", MetricLabel.Render(fmt.Sprintf("%-12s", region)),
			formatValue(tbl.ValueAt(v.Name, model.At(0, r)), v.Unit))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatValue(x float64, unit string) string {
	return MetricValue.Render(fmt.Sprintf("%.4g", x)) + " " + Subtle.Render(unit)
}

func unitOr(u string) string {
	if u == "" {
		return "-"
	}
	return u
}

func allNaN(s []float64) bool {
	for _, x := range s {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}
