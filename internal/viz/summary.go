package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/ecosim/internal/sim"
)

const maxListed = 8

// Summary renders the outcome of a run: sparklines for the headline
// variables that exist in the table, then metrics, warnings and violations.
func Summary(title string, res *sim.Result, headline []string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render(title) + "\n")
	sb.WriteString(Subtle.Render(fmt.Sprintf("%d steps in %s", res.StepsTaken, res.Elapsed.Round(time.Microsecond))) + "\n\n")

	tbl := res.Table
	for _, name := range headline {
		v, ok := tbl.Structure().Variable(name)
		if !ok || v.Shape.Static() {
			continue
		}
		series := tbl.Series(name, 0)
		if v.Shape.HasRegion() {
			series = make([]float64, tbl.Dims().Steps)
			for r := range tbl.Dims().Regions {
				for t, x := range tbl.Series(name, r) {
					series[t] += x
				}
			}
		}
		fmt.Fprintf(&sb, "%s %s %s\n", MetricLabel.Render(fmt.Sprintf("%-28s", name)),
			Sparkline(series, 30), MetricValue.Render(fmt.Sprintf("%.4g", tbl.Final(name))))
	}

	if len(res.Metrics) > 0 {
		sb.WriteString(Separator(46) + "\n")
		sb.WriteString(HeaderStyle.Render("metrics") + "\n")
		names := make([]string, 0, len(res.Metrics))
		for k := range res.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&sb, "%s %s\n", MetricLabel.Render(fmt.Sprintf("%-28s", k)), MetricValue.Render(fmt.Sprintf("%.6g", res.Metrics[k])))
		}
	}

	if n := len(res.Warnings); n > 0 {
		sb.WriteString("\n" + warningStyle().Render(fmt.Sprintf("%d numerical warnings", n)) + "\n")
		for i, w := range res.Warnings {
			if i == maxListed {
				sb.WriteString(Subtle.Render(fmt.Sprintf("  ... %d more", n-maxListed)) + "\n")
				break
			}
			sb.WriteString("  " + w.Error() + "\n")
		}
	}
	if n := len(res.Violations); n > 0 {
		sb.WriteString("\n" + errorStyle().Render(fmt.Sprintf("%d constraint violations", n)) + "\n")
		for i, v := range res.Violations {
			if i == maxListed {
				sb.WriteString(Subtle.Render(fmt.Sprintf("  ... %d more", n-maxListed)) + "\n")
				break
			}
			sb.WriteString("  " + v.String() + "\n")
		}
	}
	return Panel.Render(strings.TrimRight(sb.String(), "\n"))
}
