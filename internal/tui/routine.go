package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/schema"
	"github.com/sadopc/studytrack/internal/tracker"
)

type routineModel struct {
	store  cloudsync.Storage
	width  int
	height int

	slots     []schema.Slot
	isDefault bool
	cursor    int

	formActive   bool
	form         *huh.Form
	formType     string // "new", "edit"
	formTime     *string
	formActivity *string
	editingID    string
}

func newRoutineModel(s cloudsync.Storage) routineModel {
	clock, activity := "", ""
	return routineModel{store: s, formTime: &clock, formActivity: &activity}
}

func (r *routineModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type routineDataMsg struct {
	slots     []schema.Slot
	isDefault bool
}

func (r routineModel) refresh() tea.Cmd {
	return func() tea.Msg {
		slots, isDefault := tracker.EffectiveRoutine(getAs[[]schema.Slot](r.store, schema.KeyRoutine))
		return routineDataMsg{slots: slots, isDefault: isDefault}
	}
}

func (r routineModel) update(msg tea.Msg) (routineModel, tea.Cmd) {
	if r.formActive && r.form != nil {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case routineDataMsg:
		r.slots = msg.slots
		r.isDefault = msg.isDefault
		if r.cursor >= len(r.slots) {
			r.cursor = max(0, len(r.slots)-1)
		}
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(r.slots)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.New):
			return r.showForm("new", schema.Slot{})
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if len(r.slots) > 0 {
				s := r.slots[r.cursor]
				r.editingID = s.ID
				return r.showForm("edit", s)
			}
		case key.Matches(msg, keys.Delete):
			if len(r.slots) > 0 {
				return r, r.save(tracker.RemoveSlot(r.slots, r.slots[r.cursor].ID))
			}
		}
	}
	return r, nil
}

// save stores slots. Editing the starter routine stores it as the user's own.
func (r routineModel) save(slots []schema.Slot) tea.Cmd {
	r.store.Set(schema.KeyRoutine, slots)
	return r.refresh()
}

func (r routineModel) showForm(formType string, s schema.Slot) (routineModel, tea.Cmd) {
	*r.formTime = s.Time
	*r.formActivity = s.Activity
	r.formType = formType

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Time").Placeholder("07:30 AM").Value(r.formTime).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return nil
					}
					if _, ok := tracker.ParseClock(v); !ok {
						return fmt.Errorf("use a time like 07:30 AM or 19:30")
					}
					return nil
				}),
			huh.NewInput().Title("Activity").Value(r.formActivity),
		),
	).WithShowHelp(true).WithShowErrors(true)

	r.formActive = true
	return r, r.form.Init()
}

func (r routineModel) updateForm(msg tea.Msg) (routineModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			r.formActive = false
			r.form = nil
			return r, nil
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		return r, r.submit()
	}
	return r, cmd
}

func (r routineModel) submit() tea.Cmd {
	switch r.formType {
	case "new":
		slots, ok := tracker.AddSlot(r.slots, *r.formTime, *r.formActivity)
		if !ok {
			return nil
		}
		return r.save(slots)
	case "edit":
		return r.save(tracker.UpdateSlot(r.slots, r.editingID, *r.formTime, *r.formActivity))
	}
	return nil
}

func (r routineModel) view() string {
	w := r.width - 4

	if r.formActive && r.form != nil {
		title := titleStyle.Render("New Slot")
		if r.formType == "edit" {
			title = titleStyle.Render("Edit Slot")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", r.form.View()))
	}

	title := titleStyle.Render("Daily Routine")
	if r.isDefault {
		title += "  " + mutedStyle.Render("(starter routine)")
	}

	if len(r.slots) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No slots. Press n to add one."),
		))
	}

	current := tracker.CurrentSlot(r.slots, now())

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, s := range r.slots {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		marker := "  "
		if i == current {
			marker = successStyle.Render("● ")
		}
		clock := highlightStyle.Render(fmt.Sprintf("%-9s", s.Time))
		rows = append(rows, style.Render(cursor)+marker+clock+" "+style.Render(s.Activity))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  ● now"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
