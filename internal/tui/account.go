package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/schema"
)

const accountTimeout = 30 * time.Second

type accountModel struct {
	store     cloudsync.Storage
	account   Account
	syncState func() string
	width     int
	height    int

	username string
	email    string
	uid      string
	loggedIn bool
	theme    schema.Theme
	busy     bool

	formActive bool
	form       *huh.Form
	formEmail  *string
	formName   *string
}

func newAccountModel(s cloudsync.Storage, acct Account, syncState func() string) accountModel {
	email, name := "", ""
	return accountModel{
		store:     s,
		account:   acct,
		syncState: syncState,
		theme:     schema.ThemeLight,
		formEmail: &email,
		formName:  &name,
	}
}

func (a *accountModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

type accountDataMsg struct {
	username string
	email    string
	uid      string
	loggedIn bool
	theme    schema.Theme
}

func (a accountModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return accountDataMsg{
			username: getAs[string](a.store, schema.KeyUsername),
			email:    getAs[string](a.store, schema.KeyEmail),
			uid:      getAs[string](a.store, schema.KeyUID),
			loggedIn: getAs[bool](a.store, schema.KeyIsLoggedIn),
			theme:    getAs[schema.Theme](a.store, schema.KeyTheme),
		}
	}
}

func (a accountModel) update(msg tea.Msg) (accountModel, tea.Cmd) {
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case accountDataMsg:
		a.username = msg.username
		a.email = msg.email
		a.uid = msg.uid
		a.loggedIn = msg.loggedIn
		a.theme = msg.theme
		return a, nil

	case accountChangedMsg:
		a.busy = false
		return a, a.refresh()

	case tea.KeyMsg:
		if a.busy {
			return a, nil
		}
		switch {
		case key.Matches(msg, keys.Login):
			if a.account == nil {
				return a, func() tea.Msg { return statusMsg{text: "Sign-in is not available", isError: true} }
			}
			return a.showLoginForm()
		case key.Matches(msg, keys.Logout):
			if a.account == nil || !a.loggedIn {
				return a, status("Not signed in")
			}
			a.busy = true
			return a, a.logout()
		case key.Matches(msg, keys.Theme):
			a.theme = toggleTheme(a.theme)
			a.store.Set(schema.KeyTheme, a.theme)
			applyTheme(a.theme)
			return a, status(fmt.Sprintf("Theme: %s", a.theme))
		}
	}
	return a, nil
}

func toggleTheme(t schema.Theme) schema.Theme {
	if t == schema.ThemeDark {
		return schema.ThemeLight
	}
	return schema.ThemeDark
}

func (a accountModel) showLoginForm() (accountModel, tea.Cmd) {
	*a.formEmail = a.email
	*a.formName = a.username

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("E-mail").Value(a.formEmail).
				Validate(func(v string) error {
					if v == "" {
						return fmt.Errorf("e-mail is required")
					}
					return nil
				}),
			huh.NewInput().Title("Display name").Placeholder("optional").Value(a.formName),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a accountModel) updateForm(msg tea.Msg) (accountModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formActive = false
			a.form = nil
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateCompleted {
		a.formActive = false
		a.busy = true
		return a, a.login(*a.formEmail, *a.formName)
	}
	return a, cmd
}

func (a accountModel) login(email, name string) tea.Cmd {
	acct := a.account
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		p, err := acct.Login(ctx, email, name)
		if err != nil {
			return accountChangedMsg{text: fmt.Sprintf("Sign-in failed: %v", err), isError: true}
		}
		return accountChangedMsg{text: "Signed in as " + p.Email}
	}
}

func (a accountModel) logout() tea.Cmd {
	acct := a.account
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		if err := acct.Logout(ctx); err != nil {
			return accountChangedMsg{text: fmt.Sprintf("Sign-out failed: %v", err), isError: true}
		}
		return accountChangedMsg{text: "Signed out"}
	}
}

func (a accountModel) view() string {
	w := a.width - 4
	title := titleStyle.Render("Account")

	if a.formActive && a.form != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Sign in"), "", a.form.View()))
	}

	row := func(label, value string) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(14).Render(label), value)
	}

	var rows []string
	rows = append(rows, title, "")
	if a.loggedIn {
		rows = append(rows,
			row("Status", successStyle.Render("signed in")),
			row("Name", highlightStyle.Render(a.username)),
			row("E-mail", highlightStyle.Render(a.email)),
			row("User ID", mutedStyle.Render(a.uid)),
		)
	} else {
		rows = append(rows, row("Status", mutedStyle.Render("signed out, data stays on this device")))
	}
	if a.syncState != nil {
		rows = append(rows, row("Sync", highlightStyle.Render(a.syncState())))
	}
	rows = append(rows, row("Theme", highlightStyle.Render(string(a.theme))))

	rows = append(rows, "")
	if a.busy {
		rows = append(rows, warningStyle.Render("  Working..."))
	} else if a.loggedIn {
		rows = append(rows, mutedStyle.Render("  o: sign out  i: switch account  t: theme"))
	} else {
		rows = append(rows, mutedStyle.Render("  i: sign in  t: theme"))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
