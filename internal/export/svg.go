package export

import (
	"fmt"
	"math"
	"strings"
)

// Palette cycles over regions in SeriesToSVG.
var Palette = []string{"#00ff9c", "#ffb000", "#4fc3f7", "#ff5c8a", "#b388ff", "#c6ff00"}

// Line is one polyline of a chart. NaN values break the line.
type Line struct {
	Label  string
	Values []float64
}

// SeriesToSVG draws lines over a shared x axis of years.
func SeriesToSVG(title string, years []float64, lines []Line, width, height int) string {
	if len(years) < 2 || len(lines) == 0 {
		return ""
	}

	minX, maxX := years[0], years[len(years)-1]
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, v := range l.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 1) {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	const margin = 40
	plotW := float64(width - 2*margin)
	plotH := float64(height - 2*margin)
	px := func(x float64) float64 { return margin + (x-minX)/rangeX*plotW }
	py := func(y float64) float64 { return margin + plotH - (y-minY)/rangeY*plotH }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="%d" y="24" fill="#e0e0e0" font-family="monospace" font-size="14">%s</text>
<g stroke="#444" stroke-width="1">
<line x1="%d" y1="%.1f" x2="%.1f" y2="%.1f"/>
<line x1="%d" y1="%d" x2="%d" y2="%.1f"/>
</g>
<g fill="#a0a0a0" font-family="monospace" font-size="10">
<text x="%d" y="%.1f">%g</text>
<text x="%.1f" y="%.1f" text-anchor="end">%g</text>
<text x="4" y="%d">%.4g</text>
<text x="4" y="%.1f">%.4g</text>
</g>
`,
		width, height, width, height,
		margin, escape(title),
		margin, margin+plotH, margin+plotW, margin+plotH,
		margin, margin, margin, margin+plotH,
		margin, margin+plotH+14, minX,
		margin+plotW, margin+plotH+14, maxX,
		margin+4, maxY,
		margin+plotH, minY))

	for i, l := range lines {
		color := Palette[i%len(Palette)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, color))
		pen := false
		for t, v := range l.Values {
			if t >= len(years) {
				break
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				pen = false
				continue
			}
			cmd := "L"
			if !pen {
				cmd = "M"
			}
			sb.WriteString(fmt.Sprintf("%s%.1f,%.1f ", cmd, px(years[t]), py(v)))
			pen = true
		}
		sb.WriteString("\"/>\n")
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" fill="%s" font-family="monospace" font-size="11">%s</text>
`, float64(width-margin)-float64(len(lines)-i)*80, height-10, color, escape(l.Label)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
