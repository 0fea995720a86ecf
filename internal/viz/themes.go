package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Theme is a color scheme. Series colors one chart line per region.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Series  []asciigraph.AnsiColor
	// SeriesHex matches Series for legends rendered with lipgloss.
	SeriesHex []lipgloss.Color
}

var (
	ThemeTerminal = Theme{
		Name:      "terminal",
		Primary:   lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ff00ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666688"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff4444"),
		Series:    []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta, asciigraph.Red, asciigraph.Blue},
		SeriesHex: []lipgloss.Color{"#00ff00", "#ffff00", "#00ffff", "#ff00ff", "#ff0000", "#0000ff"},
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"),
		Accent:    lipgloss.Color("#88ff88"),
		Text:      lipgloss.Color("#00ff00"),
		Muted:     lipgloss.Color("#005500"),
		Warning:   lipgloss.Color("#ffff00"),
		Error:     lipgloss.Color("#ff0000"),
		Series:    []asciigraph.AnsiColor{asciigraph.Lime, asciigraph.Green, asciigraph.LightGreen, asciigraph.DarkGreen},
		SeriesHex: []lipgloss.Color{"#00ff00", "#008000", "#90ee90", "#006400"},
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
		Series:    []asciigraph.AnsiColor{asciigraph.DeepSkyBlue, asciigraph.Gold, asciigraph.Aqua, asciigraph.Coral},
		SeriesHex: []lipgloss.Color{"#00bfff", "#ffd700", "#00ffff", "#ff7f50"},
	}

	CurrentTheme = ThemeTerminal

	Themes = []Theme{
		ThemeTerminal,
		ThemeRetroGreen,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, falling back to the terminal theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeTerminal
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
