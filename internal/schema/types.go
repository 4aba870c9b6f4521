package schema

import "time"

type Todo struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"` // non-nil exactly when Completed
}

// Slot is one line of the daily routine. Time is a free-form clock label.
type Slot struct {
	ID       string `json:"id"`
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

type SessionType string

const (
	SessionStudy SessionType = "study"
	SessionBreak SessionType = "break"
)

type Session struct {
	Date     time.Time   `json:"date"`
	Duration int64       `json:"duration"` // seconds
	Type     SessionType `json:"type"`
	Task     string      `json:"task,omitempty"` // study sessions only
}

// TimerState is the persisted study/break timer. Seconds holds the elapsed
// time while paused; StartTime (epoch millis) is set only while running.
type TimerState struct {
	Seconds     int64  `json:"seconds"`
	IsRunning   bool   `json:"isRunning"`
	IsBreak     bool   `json:"isBreak"`
	CurrentTask string `json:"currentTask"`
	StartTime   *int64 `json:"startTime"`
}

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

var Periods = []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}

func (p Period) Valid() bool {
	switch p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Document is the canonical form of a full record set, one field per Key.
type Document struct {
	Todos              []Todo     `json:"todos"`
	Routine            []Slot     `json:"routine"`
	TimeSessions       []Session  `json:"timeSessions"`
	TimerState         TimerState `json:"timerState"`
	CurrentStatsPeriod Period     `json:"currentStatsPeriod"`
	Username           string     `json:"username"`
	IsLoggedIn         bool       `json:"isLoggedIn"`
	Theme              Theme      `json:"theme"`
	Email              string     `json:"email"`
	UID                string     `json:"uid"`
}

// Value returns the typed value stored under k.
func (d Document) Value(k Key) (any, bool) {
	switch k {
	case KeyTodos:
		return d.Todos, true
	case KeyRoutine:
		return d.Routine, true
	case KeyTimeSessions:
		return d.TimeSessions, true
	case KeyTimerState:
		return d.TimerState, true
	case KeyCurrentStatsPeriod:
		return d.CurrentStatsPeriod, true
	case KeyUsername:
		return d.Username, true
	case KeyIsLoggedIn:
		return d.IsLoggedIn, true
	case KeyTheme:
		return d.Theme, true
	case KeyEmail:
		return d.Email, true
	case KeyUID:
		return d.UID, true
	}
	return nil, false
}

// Set stores an already-canonical value. Values of the wrong type are ignored.
func (d *Document) Set(k Key, v any) {
	switch k {
	case KeyTodos:
		if x, ok := v.([]Todo); ok {
			d.Todos = x
		}
	case KeyRoutine:
		if x, ok := v.([]Slot); ok {
			d.Routine = x
		}
	case KeyTimeSessions:
		if x, ok := v.([]Session); ok {
			d.TimeSessions = x
		}
	case KeyTimerState:
		if x, ok := v.(TimerState); ok {
			d.TimerState = x
		}
	case KeyCurrentStatsPeriod:
		if x, ok := v.(Period); ok {
			d.CurrentStatsPeriod = x
		}
	case KeyUsername:
		if x, ok := v.(string); ok {
			d.Username = x
		}
	case KeyIsLoggedIn:
		if x, ok := v.(bool); ok {
			d.IsLoggedIn = x
		}
	case KeyTheme:
		if x, ok := v.(Theme); ok {
			d.Theme = x
		}
	case KeyEmail:
		if x, ok := v.(string); ok {
			d.Email = x
		}
	case KeyUID:
		if x, ok := v.(string); ok {
			d.UID = x
		}
	}
}

// Fields returns every record of d keyed by Key.
func (d Document) Fields() map[Key]any {
	out := make(map[Key]any, len(Keys))
	for _, k := range Keys {
		v, _ := d.Value(k)
		out[k] = v
	}
	return out
}

// NonDefault returns the records of d that differ from their defaults.
func (d Document) NonDefault() map[Key]any {
	out := make(map[Key]any)
	for _, k := range Keys {
		v, _ := d.Value(k)
		if !IsDefault(k, v) {
			out[k] = v
		}
	}
	return out
}
