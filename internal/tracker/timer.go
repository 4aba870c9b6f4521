package tracker

import (
	"fmt"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

// Elapsed returns the whole seconds on the timer at now.
func Elapsed(ts schema.TimerState, now time.Time) int64 {
	if !ts.IsRunning || ts.StartTime == nil {
		return ts.Seconds
	}
	ms := now.UnixMilli() - *ts.StartTime
	if ms < 0 {
		return 0
	}
	return ms / 1000
}

// StartTimer starts or resumes the timer so that it continues from the
// seconds already on it.
func StartTimer(ts schema.TimerState, now time.Time) schema.TimerState {
	if ts.IsRunning {
		return ts
	}
	start := now.UnixMilli() - ts.Seconds*1000
	ts.IsRunning = true
	ts.StartTime = &start
	return ts
}

// PauseTimer folds the running time into Seconds.
func PauseTimer(ts schema.TimerState, now time.Time) schema.TimerState {
	if !ts.IsRunning {
		return ts
	}
	ts.Seconds = Elapsed(ts, now)
	ts.IsRunning = false
	ts.StartTime = nil
	return ts
}

// ResetTimer clears the clock but keeps the mode and task.
func ResetTimer(ts schema.TimerState) schema.TimerState {
	ts.Seconds = 0
	ts.IsRunning = false
	ts.StartTime = nil
	return ts
}

func SetTask(ts schema.TimerState, task string) schema.TimerState {
	ts.CurrentTask = task
	return ts
}

// EndSession records the time on the timer as a session and resets the
// clock. Nothing is recorded when no time has elapsed; the returned session
// is nil in that case.
func EndSession(ts schema.TimerState, sessions []schema.Session, now time.Time) (schema.TimerState, []schema.Session, *schema.Session) {
	elapsed := Elapsed(ts, now)
	ts = ResetTimer(ts)
	if elapsed <= 0 {
		return ts, sessions, nil
	}

	s := schema.Session{
		Date:     now.UTC().Truncate(time.Millisecond),
		Duration: elapsed,
		Type:     schema.SessionStudy,
	}
	if ts.IsBreak {
		s.Type = schema.SessionBreak
	} else {
		s.Task = ts.CurrentTask
	}

	out := make([]schema.Session, 0, len(sessions)+1)
	out = append(out, sessions...)
	out = append(out, s)
	return ts, out, &s
}

// ToggleBreak ends the current session and switches between study and
// break mode with a cleared clock.
func ToggleBreak(ts schema.TimerState, sessions []schema.Session, now time.Time) (schema.TimerState, []schema.Session) {
	ts, sessions, _ = EndSession(ts, sessions, now)
	ts.IsBreak = !ts.IsBreak
	return ts, sessions
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// FormatShort renders seconds as "1h 5m", "12m" or "40s".
func FormatShort(secs int64) string {
	h := secs / 3600
	m := (secs / 60) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
