// Package tracker holds the pure domain operations behind the views: to-do
// bookkeeping, the study/break timer, the daily routine and statistics.
// Functions never mutate their inputs; they return updated copies.
package tracker

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/studytrack/internal/schema"
)

// PruneAfter is how long completed to-dos are kept.
const PruneAfter = 7 * 24 * time.Hour

// NewID generates identifiers for new to-dos and routine slots.
var NewID = uuid.NewString

// AddTodo puts a new open to-do at the front of the list. Blank text is
// rejected.
func AddTodo(todos []schema.Todo, text string, now time.Time) ([]schema.Todo, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return todos, false
	}
	t := schema.Todo{
		ID:        NewID(),
		Text:      text,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
	}
	out := make([]schema.Todo, 0, len(todos)+1)
	out = append(out, t)
	return append(out, todos...), true
}

// ToggleTodo flips the completion of the to-do with id, stamping or clearing
// its completion time.
func ToggleTodo(todos []schema.Todo, id string, now time.Time) []schema.Todo {
	out := make([]schema.Todo, len(todos))
	copy(out, todos)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		out[i].Completed = !out[i].Completed
		if out[i].Completed {
			at := now.UTC().Truncate(time.Millisecond)
			out[i].CompletedAt = &at
		} else {
			out[i].CompletedAt = nil
		}
	}
	return out
}

func EditTodo(todos []schema.Todo, id, text string) []schema.Todo {
	text = strings.TrimSpace(text)
	out := make([]schema.Todo, len(todos))
	copy(out, todos)
	for i := range out {
		if out[i].ID == id && text != "" {
			out[i].Text = text
		}
	}
	return out
}

func RemoveTodo(todos []schema.Todo, id string) []schema.Todo {
	out := make([]schema.Todo, 0, len(todos))
	for _, t := range todos {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// PruneCompleted drops to-dos completed more than PruneAfter before now.
// It reports whether anything was removed.
func PruneCompleted(todos []schema.Todo, now time.Time) ([]schema.Todo, bool) {
	cutoff := now.Add(-PruneAfter)
	out := make([]schema.Todo, 0, len(todos))
	for _, t := range todos {
		if t.Completed && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			continue
		}
		out = append(out, t)
	}
	return out, len(out) != len(todos)
}

// SortTodos orders open to-dos first, newest first within each group.
func SortTodos(todos []schema.Todo) []schema.Todo {
	out := make([]schema.Todo, len(todos))
	copy(out, todos)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return !out[i].Completed
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func CountTodos(todos []schema.Todo) (open, done int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			open++
		}
	}
	return open, done
}

// CompletedOn returns the to-dos completed on the calendar day of day, in
// day's location.
func CompletedOn(todos []schema.Todo, day time.Time) []schema.Todo {
	start := StartOfDay(day)
	end := start.AddDate(0, 0, 1)
	var out []schema.Todo
	for _, t := range todos {
		if !t.Completed || t.CompletedAt == nil {
			continue
		}
		at := t.CompletedAt.In(day.Location())
		if !at.Before(start) && at.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

// RecentCompleted returns up to n completed to-dos, most recently completed
// first.
func RecentCompleted(todos []schema.Todo, n int) []schema.Todo {
	var out []schema.Todo
	for _, t := range todos {
		if t.Completed && t.CompletedAt != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
