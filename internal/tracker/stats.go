package tracker

import (
	"sort"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

// UntaggedSubject labels study sessions recorded without a task.
const UntaggedSubject = "Untagged Session"

const dayLayout = "2006-01-02"

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PeriodStart returns the first instant of p containing now, in now's
// location. Weeks start on Sunday.
func PeriodStart(p schema.Period, now time.Time) time.Time {
	day := StartOfDay(now)
	switch p {
	case schema.PeriodWeek:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case schema.PeriodMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case schema.PeriodYear:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

type Summary struct {
	Total   int64 // seconds
	Count   int
	Average int64 // seconds per session
}

// Summarize totals the study sessions of period p up to now.
func Summarize(sessions []schema.Session, p schema.Period, now time.Time) Summary {
	start := PeriodStart(p, now)
	var s Summary
	for _, sess := range sessions {
		if sess.Type != schema.SessionStudy || sess.Date.Before(start) {
			continue
		}
		s.Total += sess.Duration
		s.Count++
	}
	if s.Count > 0 {
		s.Average = s.Total / int64(s.Count)
	}
	return s
}

// TodayTotals returns the study and break seconds recorded today.
func TodayTotals(sessions []schema.Session, now time.Time) (study, brk int64) {
	start := StartOfDay(now)
	end := start.AddDate(0, 0, 1)
	for _, s := range sessions {
		if s.Date.Before(start) || !s.Date.Before(end) {
			continue
		}
		if s.Type == schema.SessionBreak {
			brk += s.Duration
		} else {
			study += s.Duration
		}
	}
	return study, brk
}

type DayTotal struct {
	Day   time.Time
	Study int64
	Break int64
}

// LastDays returns per-day totals for the n days ending today, oldest first.
func LastDays(sessions []schema.Session, n int, now time.Time) []DayTotal {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(now)
	out := make([]DayTotal, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		d := today.AddDate(0, 0, i-n+1)
		out[i].Day = d
		index[d.Format(dayLayout)] = i
	}
	for _, s := range sessions {
		i, ok := index[s.Date.In(now.Location()).Format(dayLayout)]
		if !ok {
			continue
		}
		if s.Type == schema.SessionBreak {
			out[i].Break += s.Duration
		} else {
			out[i].Study += s.Duration
		}
	}
	return out
}

type SubjectTotal struct {
	Subject string
	Seconds int64
	Count   int
}

// BySubject groups study time by task, largest first.
func BySubject(sessions []schema.Session) []SubjectTotal {
	totals := make(map[string]*SubjectTotal)
	for _, s := range sessions {
		if s.Type != schema.SessionStudy {
			continue
		}
		name := s.Task
		if name == "" {
			name = UntaggedSubject
		}
		st, ok := totals[name]
		if !ok {
			st = &SubjectTotal{Subject: name}
			totals[name] = st
		}
		st.Seconds += s.Duration
		st.Count++
	}

	out := make([]SubjectTotal, 0, len(totals))
	for _, st := range totals {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

// RenameSubject retags every study session of from as to.
func RenameSubject(sessions []schema.Session, from, to string) []schema.Session {
	out := make([]schema.Session, len(sessions))
	copy(out, sessions)
	for i := range out {
		if out[i].Type == schema.SessionStudy && subjectOf(out[i]) == from {
			out[i].Task = to
		}
	}
	return out
}

// DeleteSubject removes every study session of subject.
func DeleteSubject(sessions []schema.Session, subject string) []schema.Session {
	out := make([]schema.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Type == schema.SessionStudy && subjectOf(s) == subject {
			continue
		}
		out = append(out, s)
	}
	return out
}

func subjectOf(s schema.Session) string {
	if s.Task == "" {
		return UntaggedSubject
	}
	return s.Task
}

type DayReport struct {
	Day       time.Time
	Study     int64
	Break     int64
	Sessions  []schema.Session
	Completed []schema.Todo
}

// Day reports the sessions and completed to-dos of the calendar day of day.
func Day(sessions []schema.Session, todos []schema.Todo, day time.Time) DayReport {
	start := StartOfDay(day)
	end := start.AddDate(0, 0, 1)
	r := DayReport{Day: start, Completed: CompletedOn(todos, day)}
	for _, s := range sessions {
		if s.Date.Before(start) || !s.Date.Before(end) {
			continue
		}
		r.Sessions = append(r.Sessions, s)
		if s.Type == schema.SessionBreak {
			r.Break += s.Duration
		} else {
			r.Study += s.Duration
		}
	}
	return r
}

// Activity maps each day with study time to its total study seconds, with
// days keyed "2006-01-02" in loc.
func Activity(sessions []schema.Session, loc *time.Location) map[string]int64 {
	out := make(map[string]int64)
	for _, s := range sessions {
		if s.Type != schema.SessionStudy || s.Duration <= 0 {
			continue
		}
		out[s.Date.In(loc).Format(dayLayout)] += s.Duration
	}
	return out
}

// YearActivity restricts Activity to one calendar year.
func YearActivity(activity map[string]int64, year int) map[string]int64 {
	out := make(map[string]int64)
	for day, secs := range activity {
		t, err := time.Parse(dayLayout, day)
		if err == nil && t.Year() == year {
			out[day] = secs
		}
	}
	return out
}

// Level buckets a day's study time for the activity grid: 0 for none, then
// one level per started hour up to 4.
func Level(secs int64) int {
	hours := float64(secs) / 3600
	switch {
	case secs <= 0:
		return 0
	case hours < 1:
		return 1
	case hours < 2:
		return 2
	case hours < 3:
		return 3
	default:
		return 4
	}
}

// Streaks returns the run of consecutive active days ending today (zero when
// today has no study) and the longest run ever.
func Streaks(activity map[string]int64, now time.Time) (current, longest int) {
	day := StartOfDay(now)
	for activity[day.Format(dayLayout)] > 0 {
		current++
		day = day.AddDate(0, 0, -1)
	}

	days := make([]time.Time, 0, len(activity))
	for d, secs := range activity {
		if secs <= 0 {
			continue
		}
		if t, err := time.Parse(dayLayout, d); err == nil {
			days = append(days, t)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 0
	for i, d := range days {
		if i > 0 && d.Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return current, longest
}

// Years lists the years present in sessions plus the current year, newest
// first.
func Years(sessions []schema.Session, now time.Time) []int {
	seen := map[int]bool{now.Year(): true}
	for _, s := range sessions {
		seen[s.Date.In(now.Location()).Year()] = true
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
