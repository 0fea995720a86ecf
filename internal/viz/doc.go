// Package viz renders simulation results in the terminal.
//
//   - [PlotVariable]: asciigraph chart of one variable, one line per region
//   - [Summary]: lipgloss panel with metrics, warnings and violations
//   - [Progress]: a sim.Observer drawing a progress bar while a run is going
//   - [Browser]: Bubble Tea application for paging through a result table
//
// # Browser keys
//
//	↑/↓ j/k - select variable
//	r       - cycle region (all regions, then each one)
//	t       - cycle color themes
//	/       - filter variables by name
//	q       - quit
package viz
