package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines color scheme for the TUI
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "terminal",
		Primary: lipgloss.Color("86"),
		Accent:  lipgloss.Color("205"),
		Text:    lipgloss.Color("252"),
		Muted:   lipgloss.Color("245"),
		Success: lipgloss.Color("49"),
		Warning: lipgloss.Color("214"),
		Error:   lipgloss.Color("196"),
	},
	{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"), // Green phosphor
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Success: lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	},
	{
		Name:    "ocean",
		Primary: lipgloss.Color("#0077be"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
	},
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// styles is the set of renderers derived from one theme.
type styles struct {
	canvas, stats, header, label, value, active, graph, help lipgloss.Style
	running, paused, failed                                  lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas:  lipgloss.NewStyle().Padding(1, 2).Foreground(t.Primary),
		stats:   lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Muted).Padding(1, 2).Width(45),
		header:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		active:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:   lipgloss.NewStyle().Foreground(t.Success).Padding(1, 0),
		help:    lipgloss.NewStyle().Foreground(t.Muted).MarginTop(2),
		running: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		failed:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// SparklineChart renders a mini sparkline from the last width values.
func SparklineChart(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	// Sparkline characters from low to high
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}
