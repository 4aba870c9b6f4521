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

type todosModel struct {
	store  cloudsync.Storage
	width  int
	height int

	todos  []schema.Todo
	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit"
	formText   *string
	editingID  string
}

func newTodosModel(s cloudsync.Storage) todosModel {
	text := ""
	return todosModel{store: s, formText: &text}
}

func (m *todosModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type todosDataMsg struct {
	todos []schema.Todo
}

// refresh loads the list, dropping completed to-dos past their retention.
func (m todosModel) refresh() tea.Cmd {
	return func() tea.Msg {
		todos := getAs[[]schema.Todo](m.store, schema.KeyTodos)
		if pruned, changed := tracker.PruneCompleted(todos, now()); changed {
			m.store.Set(schema.KeyTodos, pruned)
			todos = pruned
		}
		return todosDataMsg{todos: tracker.SortTodos(todos)}
	}
}

func (m todosModel) update(msg tea.Msg) (todosModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case todosDataMsg:
		m.todos = msg.todos
		if m.cursor >= len(m.todos) {
			m.cursor = max(0, len(m.todos)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.todos)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			return m.showForm("new", "")
		case key.Matches(msg, keys.Edit):
			if len(m.todos) > 0 {
				t := m.todos[m.cursor]
				m.editingID = t.ID
				return m.showForm("edit", t.Text)
			}
		case key.Matches(msg, keys.Toggle):
			if len(m.todos) > 0 {
				return m, m.save(tracker.ToggleTodo(m.todos, m.todos[m.cursor].ID, now()))
			}
		case key.Matches(msg, keys.Delete):
			if len(m.todos) > 0 {
				return m, m.save(tracker.RemoveTodo(m.todos, m.todos[m.cursor].ID))
			}
		}
	}
	return m, nil
}

func (m todosModel) save(todos []schema.Todo) tea.Cmd {
	m.store.Set(schema.KeyTodos, todos)
	return m.refresh()
}

func (m todosModel) showForm(formType, text string) (todosModel, tea.Cmd) {
	*m.formText = text
	m.formType = formType

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("To-do").Value(m.formText),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m todosModel) updateForm(msg tea.Msg) (todosModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m, m.submit()
	}
	return m, cmd
}

func (m todosModel) submit() tea.Cmd {
	switch m.formType {
	case "new":
		todos, ok := tracker.AddTodo(m.todos, *m.formText, now())
		if !ok {
			return nil
		}
		return m.save(todos)
	case "edit":
		return m.save(tracker.EditTodo(m.todos, m.editingID, *m.formText))
	}
	return nil
}

func (m todosModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New To-do")
		if m.formType == "edit" {
			title = titleStyle.Render("Edit To-do")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()))
	}

	open, done := tracker.CountTodos(m.todos)
	title := titleStyle.Render("To-dos") + "  " + mutedStyle.Render(fmt.Sprintf("%d open, %d done", open, done))

	if len(m.todos) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Nothing to do. Press n to add a to-do."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, t := range m.todos {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		box := "[ ]"
		text := style.Render(t.Text)
		if t.Completed {
			box = successStyle.Render("[✓]")
			text = doneItemStyle.Render(t.Text)
		}
		age := mutedStyle.Render(t.CreatedAt.Local().Format("Jan 02"))
		rows = append(rows, fmt.Sprintf("%s%s %s  %s", style.Render(cursor), box, text, age))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  enter: done/undo  d: delete"))
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  completed to-dos are cleared after %d days", int(tracker.PruneAfter.Hours()/24))))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
