package tracker

import (
	"strings"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

var defaultRoutine = []schema.Slot{
	{ID: "1", Time: "06:00 AM", Activity: "Wake up & Morning routine"},
	{ID: "2", Time: "07:00 AM", Activity: "Breakfast"},
	{ID: "3", Time: "08:00 AM", Activity: "Study Session 1"},
	{ID: "4", Time: "10:00 AM", Activity: "Break"},
	{ID: "5", Time: "10:30 AM", Activity: "Study Session 2"},
	{ID: "6", Time: "12:30 PM", Activity: "Lunch"},
	{ID: "7", Time: "02:00 PM", Activity: "Study Session 3"},
	{ID: "8", Time: "04:00 PM", Activity: "Exercise"},
	{ID: "9", Time: "05:00 PM", Activity: "Study Session 4"},
	{ID: "10", Time: "07:00 PM", Activity: "Dinner"},
	{ID: "11", Time: "08:00 PM", Activity: "Free time / Hobbies"},
	{ID: "12", Time: "10:00 PM", Activity: "Sleep preparation"},
}

// DefaultRoutine returns a fresh copy of the starter routine.
func DefaultRoutine() []schema.Slot {
	out := make([]schema.Slot, len(defaultRoutine))
	copy(out, defaultRoutine)
	return out
}

// EffectiveRoutine returns stored, or the default routine when stored is
// empty or carries no usable slot (older payloads normalize to blank slots).
func EffectiveRoutine(stored []schema.Slot) ([]schema.Slot, bool) {
	for _, s := range stored {
		if s.Time != "" || s.Activity != "" {
			return stored, false
		}
	}
	return DefaultRoutine(), true
}

func AddSlot(routine []schema.Slot, clock, activity string) ([]schema.Slot, bool) {
	clock = strings.TrimSpace(clock)
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return routine, false
	}
	out := make([]schema.Slot, 0, len(routine)+1)
	out = append(out, routine...)
	return append(out, schema.Slot{ID: NewID(), Time: clock, Activity: activity}), true
}

func UpdateSlot(routine []schema.Slot, id, clock, activity string) []schema.Slot {
	out := make([]schema.Slot, len(routine))
	copy(out, routine)
	for i := range out {
		if out[i].ID == id {
			out[i].Time = strings.TrimSpace(clock)
			out[i].Activity = strings.TrimSpace(activity)
		}
	}
	return out
}

func RemoveSlot(routine []schema.Slot, id string) []schema.Slot {
	out := make([]schema.Slot, 0, len(routine))
	for _, s := range routine {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

var clockLayouts = []string{"03:04 PM", "3:04 PM", "03:04PM", "3:04PM", "15:04"}

// ParseClock converts a slot label such as "06:00 AM" or "18:30" to minutes
// after midnight.
func ParseClock(label string) (int, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// CurrentSlot returns the index of the slot in progress at now: the latest
// slot whose clock time is not after now. It returns -1 when none applies.
func CurrentSlot(routine []schema.Slot, now time.Time) int {
	minutes := now.Hour()*60 + now.Minute()
	best, bestAt := -1, -1
	for i, s := range routine {
		at, ok := ParseClock(s.Time)
		if !ok || at > minutes {
			continue
		}
		if at >= bestAt {
			best, bestAt = i, at
		}
	}
	return best
}
