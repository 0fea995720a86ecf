package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/ecosim/internal/model"
)

const listWidth = 34

// Browser pages through the variables of one result table.
type Browser struct {
	tbl       *model.Table
	title     string
	all       []string
	visible   []string
	cursor    int
	region    int
	themeIdx  int
	filtering bool
	filter    string
	width     int
	height    int
}

func NewBrowser(title string, tbl *model.Table) *Browser {
	b := &Browser{tbl: tbl, title: title, region: AllRegions, width: 120, height: 32}
	for _, v := range tbl.Structure().Variables() {
		b.all = append(b.all, v.Name)
	}
	b.applyFilter()
	return b
}

// Selected is the variable under the cursor, or "" when none matches.
func (b *Browser) Selected() string {
	if len(b.visible) == 0 {
		return ""
	}
	return b.visible[b.cursor]
}

func (b *Browser) applyFilter() {
	b.visible = b.visible[:0]
	for _, name := range b.all {
		if b.filter == "" || strings.Contains(strings.ToLower(name), strings.ToLower(b.filter)) {
			b.visible = append(b.visible, name)
		}
	}
	if b.cursor >= len(b.visible) {
		b.cursor = max(len(b.visible)-1, 0)
	}
}

func (b *Browser) Init() tea.Cmd { return nil }

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if b.filtering {
			return b.filterKey(msg)
		}
		return b.browseKey(msg)
	}
	return b, nil
}

func (b *Browser) filterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		b.filtering = false
	case tea.KeyBackspace:
		if len(b.filter) > 0 {
			b.filter = b.filter[:len(b.filter)-1]
		}
	case tea.KeyCtrlC:
		return b, tea.Quit
	case tea.KeyRunes:
		b.filter += string(msg.Runes)
	}
	b.applyFilter()
	return b, nil
}

func (b *Browser) browseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return b, tea.Quit
	case "up", "k":
		if b.cursor > 0 {
			b.cursor--
		}
	case "down", "j":
		if b.cursor < len(b.visible)-1 {
			b.cursor++
		}
	case "r":
		b.region++
		if b.region >= b.tbl.Dims().NumRegions() {
			b.region = AllRegions
		}
	case "t":
		b.themeIdx = (b.themeIdx + 1) % len(Themes)
		CurrentTheme = Themes[b.themeIdx]
	case "/":
		b.filtering = true
	case "esc":
		b.filter = ""
		b.applyFilter()
	}
	return b, nil
}

func (b *Browser) View() string {
	header := titleStyle().Render(b.title) + "  " + Subtle.Render(fmt.Sprintf("%d variables, theme %s", len(b.all), CurrentTheme.Name))

	rows := max(b.height-6, 5)
	start := 0
	if b.cursor >= rows {
		start = b.cursor - rows + 1
	}
	var list strings.Builder
	for i := start; i < len(b.visible) && i < start+rows; i++ {
		name := truncate(b.visible[i], listWidth-2)
		if i == b.cursor {
			list.WriteString(selectedStyle().Render("▸ "+name) + "\n")
		} else {
			list.WriteString("  " + name + "\n")
		}
	}
	if len(b.visible) == 0 {
		list.WriteString(Subtle.Render("no match"))
	}

	chart := ""
	if name := b.Selected(); name != "" {
		opts := PlotOptions{Width: max(b.width-listWidth-16, 20), Height: max(b.height-10, 5), Region: b.region}
		out, err := PlotVariable(b.tbl, name, opts)
		if err != nil {
			out = errorStyle().Render(err.Error())
		}
		chart = out
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Render(strings.TrimRight(list.String(), "\n")),
		Panel.Render(chart))

	footer := KeyHint.Render("↑/↓ select · r region (" + b.regionLabel() + ") · t theme · / filter · q quit")
	if b.filtering {
		footer = selectedStyle().Render("/" + b.filter + "▌")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (b *Browser) regionLabel() string {
	if b.region == AllRegions {
		return "all"
	}
	return b.tbl.Dims().Regions[b.region]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// RunBrowser starts the browser in the alternate screen.
func RunBrowser(title string, tbl *model.Table) error {
	_, err := tea.NewProgram(NewBrowser(title, tbl), tea.WithAltScreen()).Run()
	return err
}
