package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/schema"
	"github.com/sadopc/studytrack/internal/tracker"
)

// dashboardModel summarizes the day: the timer, today's totals, open
// to-dos, the routine slot in progress and the current streak.
type dashboardModel struct {
	store  cloudsync.Storage
	width  int
	height int

	doc schema.Document
}

func newDashboardModel(s cloudsync.Storage) dashboardModel {
	return dashboardModel{store: s, doc: schema.Defaults()}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	doc schema.Document
}

func (d dashboardModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return dashboardDataMsg{doc: loadDocument(d.store)}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(dashboardDataMsg); ok {
		d.doc = msg.doc
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4
	t := now()

	greeting := "Welcome"
	if d.doc.Username != "" {
		greeting = "Welcome back, " + d.doc.Username
	}
	head := titleStyle.Render(greeting) + "  " + mutedStyle.Render(t.Format("Monday, January 2"))

	// Timer
	ts := d.doc.TimerState
	clock := tracker.FormatClock(tracker.Elapsed(ts, t))
	mode := "study"
	if ts.IsBreak {
		mode = "break"
	}
	var timerLine string
	switch {
	case ts.IsRunning:
		timerLine = successStyle.Render("● "+clock) + mutedStyle.Render("  "+mode)
	case ts.Seconds > 0:
		timerLine = warningStyle.Render("⏸ "+clock) + mutedStyle.Render("  "+mode)
	default:
		timerLine = mutedStyle.Render("■ timer stopped, press 3 to open it")
	}
	if !ts.IsBreak && ts.CurrentTask != "" {
		timerLine += "  " + highlightStyle.Render(ts.CurrentTask)
	}

	// Today
	report := tracker.Day(d.doc.TimeSessions, d.doc.Todos, t)
	open, _ := tracker.CountTodos(d.doc.Todos)
	today := []string{
		titleStyle.Render("Today"),
		fmt.Sprintf("  %-12s %s", "Study", highlightStyle.Render(tracker.FormatShort(report.Study))),
		fmt.Sprintf("  %-12s %s", "Break", accentStyle.Render(tracker.FormatShort(report.Break))),
		fmt.Sprintf("  %-12s %d", "Sessions", len(report.Sessions)),
		fmt.Sprintf("  %-12s %d done, %d open", "To-dos", len(report.Completed), open),
	}

	// Routine
	slots, _ := tracker.EffectiveRoutine(d.doc.Routine)
	routine := []string{titleStyle.Render("Routine")}
	if i := tracker.CurrentSlot(slots, t); i >= 0 {
		routine = append(routine, fmt.Sprintf("  %s %s  %s", successStyle.Render("now "), slots[i].Time, slots[i].Activity))
		if i+1 < len(slots) {
			routine = append(routine, fmt.Sprintf("  %s %s  %s", mutedStyle.Render("next"), slots[i+1].Time, slots[i+1].Activity))
		}
	} else if len(slots) > 0 {
		routine = append(routine, fmt.Sprintf("  %s %s  %s", mutedStyle.Render("next"), slots[0].Time, slots[0].Activity))
	}

	// Up next
	upNext := []string{titleStyle.Render("Up next")}
	shown := 0
	for _, td := range tracker.SortTodos(d.doc.Todos) {
		if td.Completed || shown == 3 {
			break
		}
		upNext = append(upNext, "  [ ] "+td.Text)
		shown++
	}
	if shown == 0 {
		upNext = append(upNext, mutedStyle.Render("  All done"))
	}

	current, longest := tracker.Streaks(tracker.Activity(d.doc.TimeSessions, t.Location()), t)
	streak := fmt.Sprintf("%s %s  %s %s",
		mutedStyle.Render("streak"), highlightStyle.Render(days(current)),
		mutedStyle.Render("longest"), highlightStyle.Render(days(longest)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, head, "", timerLine, streak)),
		panelStyle.Width(w).Render(strings.Join(today, "\n")),
		panelStyle.Width(w).Render(strings.Join(routine, "\n")),
		panelStyle.Width(w).Render(strings.Join(upNext, "\n")),
	)
}
