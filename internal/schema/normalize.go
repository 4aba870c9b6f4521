package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Normalizer coerces raw values into canonical records. Now and NewID are
// injectable so tests can pin the substituted timestamps and identifiers.
type Normalizer struct {
	Now   func() time.Time
	NewID func() string
}

var std = Normalizer{Now: time.Now, NewID: uuid.NewString}

// DefaultNormalizer returns the normalizer used by the package-level helpers.
func DefaultNormalizer() Normalizer { return std }

// Normalize converts a raw document (decoded JSON or typed values) into a
// canonical Document. Absent or malformed keys take their defaults.
func Normalize(raw map[string]any) Document { return std.Normalize(raw) }

// NormalizeValue returns the canonical value for k. Unknown keys are passed
// through in their generic JSON form.
func NormalizeValue(k Key, v any) any { return std.Value(k, v) }

// Field aliases accepted from older payloads, first match wins.
var (
	todoTextAliases     = []string{"text", "title", "name"}
	slotTimeAliases     = []string{"time", "at"}
	slotActivityAliases = []string{"activity", "name", "title", "text"}
	sessionTaskAliases  = []string{"task", "subject"}
)

func (n Normalizer) Normalize(raw map[string]any) Document {
	doc := Defaults()
	for _, k := range Keys {
		v, ok := raw[string(k)]
		if !ok {
			continue
		}
		doc.Set(k, n.Value(k, v))
	}
	return doc
}

func (n Normalizer) Value(k Key, v any) any {
	g := generic(v)
	switch k {
	case KeyTodos:
		return n.Todos(g)
	case KeyRoutine:
		return n.Routine(g)
	case KeyTimeSessions:
		return n.Sessions(g)
	case KeyTimerState:
		return n.TimerState(g)
	case KeyCurrentStatsPeriod:
		s, _ := g.(string)
		if p := Period(s); p.Valid() {
			return p
		}
		return PeriodToday
	case KeyTheme:
		s, _ := g.(string)
		if Theme(s) == ThemeDark {
			return ThemeDark
		}
		return ThemeLight
	case KeyUsername, KeyEmail, KeyUID:
		s, _ := g.(string)
		return s
	case KeyIsLoggedIn:
		b, _ := g.(bool)
		return b
	}
	return g
}

// Todos normalizes a todo list. Entries that share an id after the first
// one receive a fresh id.
func (n Normalizer) Todos(v any) []Todo {
	list, _ := generic(v).([]any)
	out := make([]Todo, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		t := n.Todo(e)
		for seen[t.ID] {
			t.ID = n.NewID()
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func (n Normalizer) Todo(v any) Todo {
	m, _ := generic(v).(map[string]any)
	now := n.now()

	t := Todo{
		ID:        idOf(m["id"]),
		Text:      firstString(m, todoTextAliases...),
		Completed: truthy(m["completed"]),
	}
	if t.ID == "" {
		t.ID = n.NewID()
	}
	if ts, ok := toTime(m["createdAt"]); ok {
		t.CreatedAt = ts
	} else {
		t.CreatedAt = now
	}
	if t.Completed {
		if ts, ok := toTime(m["completedAt"]); ok {
			t.CompletedAt = &ts
		} else {
			t.CompletedAt = &now
		}
	}
	return t
}

func (n Normalizer) Routine(v any) []Slot {
	list, _ := generic(v).([]any)
	out := make([]Slot, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		s := n.Slot(e)
		for seen[s.ID] {
			s.ID = n.NewID()
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func (n Normalizer) Slot(v any) Slot {
	m, _ := generic(v).(map[string]any)
	s := Slot{
		ID:       idOf(m["id"]),
		Time:     firstString(m, slotTimeAliases...),
		Activity: firstString(m, slotActivityAliases...),
	}
	if s.ID == "" {
		s.ID = n.NewID()
	}
	return s
}

func (n Normalizer) Sessions(v any) []Session {
	list, _ := generic(v).([]any)
	out := make([]Session, 0, len(list))
	for _, e := range list {
		out = append(out, n.Session(e))
	}
	return out
}

func (n Normalizer) Session(v any) Session {
	m, _ := generic(v).(map[string]any)
	s := Session{
		Duration: toInt(m["duration"]),
		Type:     SessionStudy,
	}
	if ts, ok := toTime(m["date"]); ok {
		s.Date = ts
	} else {
		s.Date = n.now()
	}
	if s.Duration < 0 {
		s.Duration = 0
	}
	if typ, _ := m["type"].(string); SessionType(typ) == SessionBreak {
		s.Type = SessionBreak
	}
	if s.Type == SessionStudy {
		s.Task = firstString(m, sessionTaskAliases...)
	}
	return s
}

// TimerState normalizes the persisted timer. A running timer without a start
// time is anchored so that the elapsed time equals Seconds; a paused timer
// never carries a start time.
func (n Normalizer) TimerState(v any) TimerState {
	m, _ := generic(v).(map[string]any)
	ts := TimerState{
		Seconds:     toInt(m["seconds"]),
		IsRunning:   truthy(m["isRunning"]),
		IsBreak:     truthy(m["isBreak"]),
		CurrentTask: firstString(m, "currentTask"),
	}
	if ts.Seconds < 0 {
		ts.Seconds = 0
	}
	if !ts.IsRunning {
		return ts
	}
	if ms, ok := toMillis(m["startTime"]); ok {
		ts.StartTime = &ms
	} else {
		ms := n.now().UnixMilli() - ts.Seconds*1000
		ts.StartTime = &ms
	}
	return ts
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return canonicalTime(time.Now())
	}
	return canonicalTime(n.Now())
}

// generic converts v into the shape encoding/json produces when decoding
// into an interface: nil, bool, float64, string, []any or map[string]any.
func generic(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string, []any, map[string]any:
		return v
	case json.RawMessage:
		var out any
		if err := json.Unmarshal(x, &out); err != nil {
			return nil
		}
		return out
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func canonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// maxMillis is the last millisecond of year 9999, the largest instant
// encoding/json can write.
var maxMillis = time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()

func encodable(t time.Time) bool {
	return t.Year() >= 0 && t.Year() <= 9999
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toTime accepts RFC 3339 style strings, epoch milliseconds and time values.
func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() || !encodable(x) {
			return time.Time{}, false
		}
		return canonicalTime(x), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return toTime(*x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 || x > float64(maxMillis) {
			return time.Time{}, false
		}
		return canonicalTime(time.UnixMilli(int64(x))), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil && !t.IsZero() && encodable(t) {
				return canonicalTime(t), true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toTime(f)
		}
	}
	return time.Time{}, false
}

func toMillis(v any) (int64, bool) {
	switch v.(type) {
	case float64, string:
		if t, ok := toTime(v); ok {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func toInt(v any) int64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return int64(math.Floor(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return toInt(f)
	}
	return 0
}

func idOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return ""
}

// truthy follows loose boolean coercion: zero values and empty strings are
// false, every other present value is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	}
	return true
}
