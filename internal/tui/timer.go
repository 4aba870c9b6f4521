package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/schema"
	"github.com/sadopc/studytrack/internal/tracker"
)

// timerModel drives the study/break stopwatch. Its state lives in the
// timerState record, so a running timer survives restarts.
type timerModel struct {
	store  cloudsync.Storage
	width  int
	height int

	state    schema.TimerState
	sessions []schema.Session
	elapsed  int64

	formActive bool
	form       *huh.Form
	formTask   *string
}

func newTimerModel(s cloudsync.Storage) timerModel {
	task := ""
	return timerModel{store: s, formTask: &task}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type timerDataMsg struct {
	state    schema.TimerState
	sessions []schema.Session
}

func (t timerModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return timerDataMsg{
			state:    getAs[schema.TimerState](t.store, schema.KeyTimerState),
			sessions: getAs[[]schema.Session](t.store, schema.KeyTimeSessions),
		}
	}
}

func (t timerModel) running() bool { return t.state.IsRunning }

// paused reports a stopped clock that still has time on it.
func (t timerModel) paused() bool { return !t.state.IsRunning && t.state.Seconds > 0 }

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case timerDataMsg:
		t.state = msg.state
		t.sessions = msg.sessions
		t.elapsed = tracker.Elapsed(t.state, now())
		return t, nil

	case tickMsg:
		t.elapsed = tracker.Elapsed(t.state, now())
		return t, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if t.state.IsRunning {
				return t, nil
			}
			t.state = tracker.StartTimer(t.state, now())
			t.saveState()
			return t, status("Timer started")

		case key.Matches(msg, keys.Pause):
			if t.state.IsRunning {
				t.state = tracker.PauseTimer(t.state, now())
			} else {
				t.state = tracker.StartTimer(t.state, now())
			}
			t.saveState()
			return t, nil

		case key.Matches(msg, keys.Stop):
			return t.endSession()

		case key.Matches(msg, keys.Reset):
			t.state = tracker.ResetTimer(t.state)
			t.saveState()
			return t, status("Timer reset")

		case key.Matches(msg, keys.Break):
			t.state, t.sessions = tracker.ToggleBreak(t.state, t.sessions, now())
			t.saveState()
			t.store.Set(schema.KeyTimeSessions, t.sessions)
			if t.state.IsBreak {
				return t, status("Break mode")
			}
			return t, status("Study mode")

		case key.Matches(msg, keys.Task):
			if t.state.IsBreak {
				return t, func() tea.Msg {
					return statusMsg{text: "Switch to study mode to set a task", isError: true}
				}
			}
			return t.showTaskForm()
		}
	}
	return t, nil
}

func (t timerModel) endSession() (timerModel, tea.Cmd) {
	var sess *schema.Session
	t.state, t.sessions, sess = tracker.EndSession(t.state, t.sessions, now())
	t.elapsed = 0
	t.saveState()
	if sess == nil {
		return t, status("Nothing to record")
	}
	t.store.Set(schema.KeyTimeSessions, t.sessions)

	label := "break"
	if sess.Type == schema.SessionStudy {
		label = sess.Task
		if label == "" {
			label = tracker.UntaggedSubject
		}
	}
	return t, status(fmt.Sprintf("Recorded %s of %s", tracker.FormatShort(sess.Duration), label))
}

func (t *timerModel) saveState() {
	t.elapsed = tracker.Elapsed(t.state, now())
	t.store.Set(schema.KeyTimerState, t.state)
}

func (t timerModel) showTaskForm() (timerModel, tea.Cmd) {
	*t.formTask = t.state.CurrentTask
	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("What are you studying?").Value(t.formTask),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t timerModel) updateForm(msg tea.Msg) (timerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		t.state = tracker.SetTask(t.state, *t.formTask)
		t.saveState()
		return t, nil
	}
	return t, cmd
}

func (t timerModel) view() string {
	w := t.width - 4

	if t.formActive && t.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Task"), "", t.form.View()),
		)
	}

	mode := highlightStyle.Render("STUDY")
	if t.state.IsBreak {
		mode = accentStyle.Render("BREAK")
	}

	clock := tracker.FormatClock(t.elapsed)
	var timeDisplay, indicator string
	switch {
	case t.running():
		timeDisplay = timerRunningStyle.Width(w - 6).Render(clock)
		indicator = successStyle.Render("●  RUNNING")
	case t.paused():
		timeDisplay = timerPausedStyle.Width(w - 6).Render(clock)
		indicator = warningStyle.Render("⏸  PAUSED")
	default:
		timeDisplay = timerStyle.Width(w - 6).Render(clock)
		indicator = mutedStyle.Render("■  STOPPED")
	}

	task := mutedStyle.Render("No task set. Press t to add one.")
	if t.state.IsBreak {
		task = mutedStyle.Render("Enjoy your break")
	} else if t.state.CurrentTask != "" {
		task = titleStyle.Render(t.state.CurrentTask)
	}

	study, brk := tracker.TodayTotals(t.sessions, now())
	today := fmt.Sprintf("Today  %s %s   %s %s",
		mutedStyle.Render("study"), highlightStyle.Render(tracker.FormatShort(study)),
		mutedStyle.Render("break"), accentStyle.Render(tracker.FormatShort(brk)),
	)

	style := panelStyle
	if t.running() {
		style = activePanelStyle
	}
	top := style.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		mode, "", timeDisplay, indicator, "", task,
	))

	hint := mutedStyle.Render("  s: start  space: pause/resume  x: end session  b: study/break  t: task  r: reset")
	return lipgloss.JoinVertical(lipgloss.Left, top, panelStyle.Width(w).Render(today), hint)
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}
