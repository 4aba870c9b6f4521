package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/export"
	"github.com/sadopc/studytrack/internal/schema"
)

// App is the root Bubble Tea model. It shows a syncing screen until the
// readiness signal is raised and only then loads the views.
type App struct {
	store  cloudsync.Storage
	ready  *cloudsync.Readiness
	width  int
	height int

	synced        bool
	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	todos     todosModel
	timer     timerModel
	routine   routineModel
	stats     statsModel
	account   accountModel

	help      help.Model
	status    string
	statusErr bool
}

// NewApp builds the UI over s. ready gates the first load; acct and
// syncState may be nil when sign-in is unavailable.
func NewApp(s cloudsync.Storage, ready *cloudsync.Readiness, acct Account, syncState func() string) App {
	h := help.New()
	h.ShowAll = false

	return App{
		store:      s,
		ready:      ready,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(s),
		todos:      newTodosModel(s),
		timer:      newTimerModel(s),
		routine:    newRoutineModel(s),
		stats:      newStatsModel(s),
		account:    newAccountModel(s, acct, syncState),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitReady(a.ready),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitReady(r *cloudsync.Readiness) tea.Cmd {
	return func() tea.Msg {
		if r != nil {
			<-r.Done()
		}
		return readyMsg{}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.todos.setSize(a.width, contentHeight)
		a.timer.setSize(a.width, contentHeight)
		a.routine.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.account.setSize(a.width, contentHeight)
		return a, nil

	case readyMsg:
		a.synced = true
		return a, a.refreshAll()

	case tea.KeyMsg:
		if !a.synced {
			if key.Matches(msg, keys.Quit) {
				return a, tea.Quit
			}
			return a, nil
		}

		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewTodos)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewTimer)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewRoutine)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewStats)
		case key.Matches(msg, keys.Tab6):
			return a.switchTo(viewAccount)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case themeMsg:
		applyTheme(msg.theme)
		a.stats.buildChart()
		return a, nil

	case accountChangedMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		return a, tea.Batch(cmd, a.refreshAll())

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil

	// Data loads go to their view whichever view is showing.
	case dashboardDataMsg:
		a.dashboard, _ = a.dashboard.update(msg)
		return a, nil
	case todosDataMsg:
		a.todos, _ = a.todos.update(msg)
		return a, nil
	case timerDataMsg:
		a.timer, _ = a.timer.update(msg)
		return a, nil
	case routineDataMsg:
		a.routine, _ = a.routine.update(msg)
		return a, nil
	case statsDataMsg:
		a.stats, _ = a.stats.update(msg)
		return a, nil
	case accountDataMsg:
		a.account, _ = a.account.update(msg)
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewTodos:
		a.todos, cmd = a.todos.update(msg)
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewRoutine:
		a.routine, cmd = a.routine.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewAccount:
		a.account, cmd = a.account.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTodos:
		return a.todos.formActive
	case viewTimer:
		return a.timer.formActive
	case viewRoutine:
		return a.routine.formActive
	case viewStats:
		return a.stats.formActive
	case viewAccount:
		return a.account.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.refresh()
	case viewTodos:
		return a.todos.refresh()
	case viewTimer:
		return a.timer.refresh()
	case viewRoutine:
		return a.routine.refresh()
	case viewStats:
		return a.stats.refresh()
	case viewAccount:
		return a.account.refresh()
	}
	return nil
}

func (a App) refreshAll() tea.Cmd {
	s := a.store
	return tea.Batch(
		func() tea.Msg { return themeMsg{theme: getAs[schema.Theme](s, schema.KeyTheme)} },
		a.dashboard.refresh(),
		a.todos.refresh(),
		a.timer.refresh(),
		a.routine.refresh(),
		a.stats.refresh(),
		a.account.refresh(),
	)
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch {
	case !a.synced:
		content = a.renderSyncing()
	case a.exportPicking:
		content = a.renderExportPicker()
	default:
		switch a.activeView {
		case viewDashboard:
			content = a.dashboard.view()
		case viewTodos:
			content = a.todos.view()
		case viewTimer:
			content = a.timer.view()
		case viewRoutine:
			content = a.routine.view()
		case viewStats:
			content = a.stats.view()
		case viewAccount:
			content = a.account.view()
		}
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderSyncing() string {
	w := a.width - 4
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Syncing your data..."),
		"",
		mutedStyle.Render("Your records will appear once the sync settles. Press q to quit."),
	))
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("studytrack")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	timerInfo := ""
	switch {
	case a.timer.running():
		timerInfo = successStyle.Render(" ● " + formatSeconds(a.timer.elapsed))
	case a.timer.paused():
		timerInfo = warningStyle.Render(" ⏸ " + formatSeconds(a.timer.elapsed))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"Sessions (CSV)", "Full backup (JSON)"}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export"))
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	s := a.store
	return func() tea.Msg {
		doc := loadDocument(s)

		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		dateStr := now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("studytrack-sessions-%s.csv", dateStr))
			if err := export.ToCSV(doc.TimeSessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("studytrack-backup-%s.json", dateStr))
			if err := export.ToJSON(doc, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
