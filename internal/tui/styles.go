package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytrack/internal/schema"
)

type palette struct {
	primary   lipgloss.Color
	secondary lipgloss.Color
	accent    lipgloss.Color
	muted     lipgloss.Color
	success   lipgloss.Color
	warning   lipgloss.Color
	err       lipgloss.Color
	fg        lipgloss.Color
	subtle    lipgloss.Color
	highlight lipgloss.Color
	levels    [5]lipgloss.Color // activity grid, none to most
}

var darkPalette = palette{
	primary:   "#6C63FF",
	secondary: "#2EC4B6",
	accent:    "#FF6B6B",
	muted:     "#666666",
	success:   "#2ECC71",
	warning:   "#F39C12",
	err:       "#E74C3C",
	fg:        "#C0CAF5",
	subtle:    "#414868",
	highlight: "#7AA2F7",
	levels:    [5]lipgloss.Color{"#2A2E3F", "#0E4429", "#006D32", "#26A641", "#39D353"},
}

var lightPalette = palette{
	primary:   "#5046E5",
	secondary: "#138A7F",
	accent:    "#D64545",
	muted:     "#8A8A8A",
	success:   "#1E9E55",
	warning:   "#C77C02",
	err:       "#C0392B",
	fg:        "#24283B",
	subtle:    "#C8CCD8",
	highlight: "#2E5CB8",
	levels:    [5]lipgloss.Color{"#EBEDF0", "#9BE9A8", "#40C463", "#30A14E", "#216E39"},
}

// Color palette
var (
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	levelColors    [5]lipgloss.Color

	currentTheme schema.Theme
)

// Styles
var (
	activeTabStyle    lipgloss.Style
	inactiveTabStyle  lipgloss.Style
	panelStyle        lipgloss.Style
	activePanelStyle  lipgloss.Style
	timerStyle        lipgloss.Style
	timerRunningStyle lipgloss.Style
	timerPausedStyle  lipgloss.Style
	titleStyle        lipgloss.Style
	accentStyle       lipgloss.Style
	successStyle      lipgloss.Style
	warningStyle      lipgloss.Style
	errorStyle        lipgloss.Style
	mutedStyle        lipgloss.Style
	highlightStyle    lipgloss.Style
	headerStyle       lipgloss.Style
	footerStyle       lipgloss.Style
	selectedItemStyle lipgloss.Style
	normalItemStyle   lipgloss.Style
	doneItemStyle     lipgloss.Style
)

func init() {
	applyTheme(schema.ThemeLight)
}

// applyTheme rebuilds every style from the palette of t.
func applyTheme(t schema.Theme) {
	p := lightPalette
	if t == schema.ThemeDark {
		p = darkPalette
	} else {
		t = schema.ThemeLight
	}
	currentTheme = t

	colorPrimary = p.primary
	colorSecondary = p.secondary
	levelColors = p.levels

	// Tabs
	activeTabStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.primary).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(p.primary).
		Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
		Foreground(p.muted).
		Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.subtle).
		Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.primary).
		Padding(1, 2)

	// Timer
	timerStyle = lipgloss.NewStyle().Bold(true).Foreground(p.primary).Align(lipgloss.Center)
	timerRunningStyle = lipgloss.NewStyle().Bold(true).Foreground(p.success).Align(lipgloss.Center)
	timerPausedStyle = lipgloss.NewStyle().Bold(true).Foreground(p.warning).Align(lipgloss.Center)

	// Text
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.fg)
	accentStyle = lipgloss.NewStyle().Foreground(p.accent)
	successStyle = lipgloss.NewStyle().Foreground(p.success)
	warningStyle = lipgloss.NewStyle().Foreground(p.warning)
	errorStyle = lipgloss.NewStyle().Foreground(p.err)
	mutedStyle = lipgloss.NewStyle().Foreground(p.muted)
	highlightStyle = lipgloss.NewStyle().Foreground(p.highlight)

	// Header/footer
	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1)

	// List items
	selectedItemStyle = lipgloss.NewStyle().Foreground(p.primary).Bold(true)
	normalItemStyle = lipgloss.NewStyle().Foreground(p.fg)
	doneItemStyle = lipgloss.NewStyle().Foreground(p.muted).Strikethrough(true)
}
