package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/schema"
	"github.com/sadopc/studytrack/internal/tracker"
)

const (
	chartDays    = 7
	recentTodos  = 5
	dayTaskWidth = 28
)

type statsModel struct {
	store  cloudsync.Storage
	width  int
	height int

	period   schema.Period
	sessions []schema.Session
	todos    []schema.Todo
	subjects []tracker.SubjectTotal
	cursor   int
	year     int

	// day is the single day on display; zero shows the period view.
	day time.Time

	chart barchart.Model

	formActive bool
	form       *huh.Form
	formName   *string
	renaming   string
}

func newStatsModel(s cloudsync.Storage) statsModel {
	name := ""
	return statsModel{
		store:    s,
		period:   schema.PeriodToday,
		year:     now().Year(),
		chart:    barchart.New(60, 12),
		formName: &name,
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.buildChart()
}

type statsDataMsg struct {
	period   schema.Period
	sessions []schema.Session
	todos    []schema.Todo
}

func (s statsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return statsDataMsg{
			period:   getAs[schema.Period](s.store, schema.KeyCurrentStatsPeriod),
			sessions: getAs[[]schema.Session](s.store, schema.KeyTimeSessions),
			todos:    getAs[[]schema.Todo](s.store, schema.KeyTodos),
		}
	}
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case statsDataMsg:
		s.period = msg.period
		if !s.period.Valid() {
			s.period = schema.PeriodToday
		}
		s.sessions = msg.sessions
		s.todos = msg.todos
		s.subjects = tracker.BySubject(s.sessions)
		if s.cursor >= len(s.subjects) {
			s.cursor = max(0, len(s.subjects)-1)
		}
		s.buildChart()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			return s.setPeriod(-1)
		case key.Matches(msg, keys.Right):
			return s.setPeriod(1)
		case key.Matches(msg, keys.PrevDay):
			s.stepDay(-1)
		case key.Matches(msg, keys.NextDay):
			s.stepDay(1)
		case key.Matches(msg, keys.ClearDay):
			s.day = time.Time{}
		case key.Matches(msg, keys.Year):
			s.year = nextYear(tracker.Years(s.sessions, now()), s.year)
		case !s.day.IsZero():
			// the subject list is hidden while a day is shown
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.subjects)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Edit):
			if len(s.subjects) > 0 {
				return s.showRenameForm()
			}
		case key.Matches(msg, keys.Delete):
			if len(s.subjects) > 0 {
				subject := s.subjects[s.cursor].Subject
				s.store.Set(schema.KeyTimeSessions, tracker.DeleteSubject(s.sessions, subject))
				return s, tea.Batch(s.refresh(), status("Deleted sessions of "+subject))
			}
		}
	}
	return s, nil
}

// setPeriod moves the selected period by step and remembers it.
func (s statsModel) setPeriod(step int) (statsModel, tea.Cmd) {
	i := 0
	for j, p := range schema.Periods {
		if p == s.period {
			i = j
		}
	}
	n := len(schema.Periods)
	s.period = schema.Periods[((i+step)%n+n)%n]
	s.day = time.Time{}
	s.store.Set(schema.KeyCurrentStatsPeriod, s.period)
	return s, nil
}

// stepDay moves the shown day by step days, starting from today and never
// past it.
func (s *statsModel) stepDay(step int) {
	today := tracker.StartOfDay(now())
	day := s.day
	if day.IsZero() {
		day = today
	}
	day = day.AddDate(0, 0, step)
	if day.After(today) {
		day = today
	}
	s.day = day
}

// nextYear cycles through years, which are listed newest first.
func nextYear(years []int, current int) int {
	for i, y := range years {
		if y == current {
			return years[(i+1)%len(years)]
		}
	}
	if len(years) > 0 {
		return years[0]
	}
	return current
}

func (s statsModel) showRenameForm() (statsModel, tea.Cmd) {
	s.renaming = s.subjects[s.cursor].Subject
	*s.formName = s.renaming

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Rename subject").Value(s.formName),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s statsModel) updateForm(msg tea.Msg) (statsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.rename(*s.formName)
	}
	return s, cmd
}

func (s statsModel) rename(to string) tea.Cmd {
	to = strings.TrimSpace(to)
	if to == "" || to == s.renaming {
		return nil
	}
	if to == tracker.UntaggedSubject {
		to = ""
	}
	s.store.Set(schema.KeyTimeSessions, tracker.RenameSubject(s.sessions, s.renaming, to))
	return s.refresh()
}

func (s *statsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if s.height > 40 {
		chartHeight = 14
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	studyStyle := lipgloss.NewStyle().Foreground(colorPrimary)
	breakStyle := lipgloss.NewStyle().Foreground(colorSecondary)

	var bars []barchart.BarData
	for _, d := range tracker.LastDays(s.sessions, chartDays, now()) {
		bars = append(bars, barchart.BarData{
			Label: d.Day.Format("Mon 02"),
			Values: []barchart.BarValue{
				{Name: "Study", Value: float64(d.Study) / 3600, Style: studyStyle},
				{Name: "Break", Value: float64(d.Break) / 3600, Style: breakStyle},
			},
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Subjects"), "", s.form.View()),
		)
	}

	title := cases.Title(language.English)
	var tabs []string
	for _, p := range schema.Periods {
		name := title.String(string(p))
		if p == s.period {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Statistics"), "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
	)

	nav := mutedStyle.Render("  ←/→: period  ↑/↓: subject  e: rename  d: delete subject  y: year  [/]: day")

	if !s.day.IsZero() {
		nav = mutedStyle.Render("  [/]: day  c: back to periods  ←/→: period  y: year")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				header, "", s.renderDay(w), "", s.renderActivity(), "", nav,
			),
		)
	}

	sum := tracker.Summarize(s.sessions, s.period, now())
	summary := fmt.Sprintf("  %s %s   %s %s   %s %s",
		mutedStyle.Render("total"), highlightStyle.Render(tracker.FormatShort(sum.Total)),
		mutedStyle.Render("sessions"), highlightStyle.Render(fmt.Sprintf("%d", sum.Count)),
		mutedStyle.Render("average"), highlightStyle.Render(tracker.FormatShort(sum.Average)),
	)

	legend := fmt.Sprintf("  %s Study  %s Break  %s",
		lipgloss.NewStyle().Foreground(colorPrimary).Render("●"),
		lipgloss.NewStyle().Foreground(colorSecondary).Render("●"),
		mutedStyle.Render("(hours, last 7 days)"),
	)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", summary, "", s.chart.View(), legend, "",
			s.renderSubjects(w), "", s.renderRecent(), "", s.renderActivity(), "", nav,
		),
	)
}

func (s statsModel) renderSubjects(w int) string {
	if len(s.subjects) == 0 {
		return mutedStyle.Render("  No study sessions yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-28s %10s %8s", "Subject", "Time", "Sessions")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 48))))
	for i, st := range s.subjects {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-28s %10s %8d",
			cursor, truncate(st.Subject, 28), formatSeconds(st.Seconds), st.Count,
		)))
	}
	return strings.Join(rows, "\n")
}

// renderDay shows study time, sessions and completed to-dos of s.day.
func (s statsModel) renderDay(w int) string {
	report := tracker.Day(s.sessions, s.todos, s.day)
	study := 0
	for _, sess := range report.Sessions {
		if sess.Type == schema.SessionStudy {
			study++
		}
	}

	rows := []string{
		titleStyle.Render("Stats for " + s.day.Format("January 2, 2006")),
		fmt.Sprintf("  %s %s   %s %s",
			mutedStyle.Render("study"), highlightStyle.Render(tracker.FormatShort(report.Study)),
			mutedStyle.Render("sessions"), highlightStyle.Render(fmt.Sprintf("%d", study)),
		),
		"",
	}

	tasks := tracker.BySubject(report.Sessions)
	if len(tasks) == 0 {
		rows = append(rows, mutedStyle.Render("  No study sessions on this day"))
	}
	for _, st := range tasks {
		rows = append(rows, fmt.Sprintf("  %-*s %10s", dayTaskWidth, truncate(st.Subject, dayTaskWidth), formatSeconds(st.Seconds)))
	}
	rows = append(rows, "", titleStyle.Render("Completed"))
	if len(report.Completed) == 0 {
		rows = append(rows, mutedStyle.Render("  No to-dos completed on this day"))
	}
	for _, td := range report.Completed {
		rows = append(rows, successStyle.Render("  [x] ")+truncate(td.Text, max(w-12, 10)))
	}
	return strings.Join(rows, "\n")
}

func (s statsModel) renderRecent() string {
	rows := []string{titleStyle.Render("Recently completed")}
	recent := tracker.RecentCompleted(s.todos, recentTodos)
	if len(recent) == 0 {
		rows = append(rows, mutedStyle.Render("  Complete to-dos to see them here"))
	}
	for _, td := range recent {
		rows = append(rows, fmt.Sprintf("  %s %s  %s",
			successStyle.Render("[x]"), td.Text, mutedStyle.Render(td.CompletedAt.In(now().Location()).Format("Jan 02 15:04")),
		))
	}
	return strings.Join(rows, "\n")
}

// renderActivity draws one row per month with a cell per day, shaded by
// study time.
func (s statsModel) renderActivity() string {
	t := now()
	all := tracker.Activity(s.sessions, t.Location())
	year := tracker.YearActivity(all, s.year)
	current, longest := tracker.Streaks(all, t)

	rows := []string{
		fmt.Sprintf("%s  %s %s  %s %s",
			titleStyle.Render(fmt.Sprintf("Activity %d", s.year)),
			mutedStyle.Render("streak"), highlightStyle.Render(days(current)),
			mutedStyle.Render("longest"), highlightStyle.Render(days(longest)),
		),
	}
	for m := time.January; m <= time.December; m++ {
		first := time.Date(s.year, m, 1, 0, 0, 0, 0, t.Location())
		var b strings.Builder
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s ", first.Format("Jan"))))
		for d := first; d.Month() == m; d = d.AddDate(0, 0, 1) {
			level := tracker.Level(year[d.Format("2006-01-02")])
			b.WriteString(lipgloss.NewStyle().Foreground(levelColors[level]).Render("■"))
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
