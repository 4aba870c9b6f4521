package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/identity"
	"github.com/sadopc/studytrack/internal/schema"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewTodos
	viewTimer
	viewRoutine
	viewStats
	viewAccount
)

var viewNames = []string{"Dashboard", "To-dos", "Timer", "Routine", "Stats", "Account"}

// Account signs the user in and out on behalf of the account view.
type Account interface {
	Login(ctx context.Context, email, name string) (identity.Principal, error)
	Logout(ctx context.Context) error
}

// now is the clock every view reads.
var now = time.Now

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// readyMsg reports that the first merge settled (or timed out).
type readyMsg struct{}

type themeMsg struct {
	theme schema.Theme
}

type exportDoneMsg struct {
	path string
}

// accountChangedMsg follows a sign-in or sign-out attempt.
type accountChangedMsg struct {
	text    string
	isError bool
}

// --- Helpers ---

// getAs reads k from s as its canonical type, falling back to the default.
func getAs[T any](s cloudsync.Storage, k schema.Key) T {
	if v, ok := s.Get(k, schema.Default(k)).(T); ok {
		return v
	}
	v, _ := schema.Default(k).(T)
	return v
}

// loadDocument reads every record from s, substituting defaults.
func loadDocument(s cloudsync.Storage) schema.Document {
	doc := schema.Defaults()
	for _, k := range schema.Keys {
		doc.Set(k, s.Get(k, schema.Default(k)))
	}
	return doc
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}
