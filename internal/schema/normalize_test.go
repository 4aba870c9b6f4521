package schema

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testNormalizer() Normalizer {
	n := 0
	return Normalizer{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
	}
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeDefaults(t *testing.T) {
	doc := Normalize(nil)
	assert.Equal(t, Defaults(), doc)
	assert.NotNil(t, doc.Todos)
	assert.NotNil(t, doc.Routine)
	assert.NotNil(t, doc.TimeSessions)
	assert.Equal(t, PeriodToday, doc.CurrentStatsPeriod)
	assert.Equal(t, ThemeLight, doc.Theme)
	assert.Empty(t, doc.NonDefault())
}

func TestNormalizeWrongShapes(t *testing.T) {
	n := testNormalizer()
	raw := map[string]any{
		"todos":              "not a list",
		"routine":            42.0,
		"timeSessions":       map[string]any{"a": 1},
		"timerState":         []any{1, 2},
		"currentStatsPeriod": "decade",
		"username":           7.0,
		"isLoggedIn":         "yes",
		"theme":              "sepia",
		"email":              nil,
		"uid":                true,
	}
	assert.Equal(t, Defaults(), n.Normalize(raw))
}

func TestNormalizeTodos(t *testing.T) {
	n := testNormalizer()

	t.Run("numeric id becomes string", func(t *testing.T) {
		todos := n.Todos(decode(t, `[{"id": 1700000000000, "text": "read"}]`))
		require.Len(t, todos, 1)
		assert.Equal(t, "1700000000000", todos[0].ID)
		assert.Equal(t, "read", todos[0].Text)
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		todos := n.Todos(decode(t, `[{}]`))
		require.Len(t, todos, 1)
		assert.NotEmpty(t, todos[0].ID)
		assert.False(t, todos[0].Completed)
		assert.Equal(t, fixedNow, todos[0].CreatedAt)
		assert.Nil(t, todos[0].CompletedAt)
	})

	t.Run("completed without completedAt is stamped", func(t *testing.T) {
		todos := n.Todos(decode(t, `[{"id":"a","text":"x","completed":1}]`))
		require.Len(t, todos, 1)
		assert.True(t, todos[0].Completed)
		require.NotNil(t, todos[0].CompletedAt)
		assert.Equal(t, fixedNow, *todos[0].CompletedAt)
	})

	t.Run("open todo drops completedAt", func(t *testing.T) {
		todos := n.Todos(decode(t, `[{"id":"a","completed":false,"completedAt":"2024-01-01T00:00:00Z"}]`))
		require.Len(t, todos, 1)
		assert.Nil(t, todos[0].CompletedAt)
	})

	t.Run("duplicate ids are replaced", func(t *testing.T) {
		todos := n.Todos(decode(t, `[{"id":"a"},{"id":"a"},{"id":"b"}]`))
		require.Len(t, todos, 3)
		assert.Equal(t, "a", todos[0].ID)
		assert.NotEqual(t, "a", todos[1].ID)
		assert.Equal(t, "b", todos[2].ID)
	})

	t.Run("timestamps accept epoch millis and offsets", func(t *testing.T) {
		todos := n.Todos(decode(t, `[
			{"id":"a","createdAt":1704067200000},
			{"id":"b","createdAt":"2024-01-01T02:00:00+02:00"}
		]`))
		require.Len(t, todos, 2)
		want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.True(t, want.Equal(todos[0].CreatedAt))
		assert.True(t, want.Equal(todos[1].CreatedAt))
	})
}

func TestNormalizeRoutineAliases(t *testing.T) {
	n := testNormalizer()
	slots := n.Routine(decode(t, `[
		{"id":"1","time":"06:00 AM","activity":"Wake up"},
		{"id":2,"at":"07:00 AM","name":"Breakfast"},
		{"title":"Study"}
	]`))
	require.Len(t, slots, 3)
	assert.Equal(t, Slot{ID: "1", Time: "06:00 AM", Activity: "Wake up"}, slots[0])
	assert.Equal(t, Slot{ID: "2", Time: "07:00 AM", Activity: "Breakfast"}, slots[1])
	assert.Equal(t, "Study", slots[2].Activity)
	assert.NotEmpty(t, slots[2].ID)
}

func TestNormalizeSessions(t *testing.T) {
	n := testNormalizer()
	sessions := n.Sessions(decode(t, `[
		{"date":"2024-03-01T09:00:00.000Z","duration":125.9,"type":"study","task":"Math"},
		{"date":"2024-03-01T10:00:00.000Z","duration":-5,"type":"break","task":"ignored"},
		{"duration":"60","subject":"Physics"}
	]`))
	require.Len(t, sessions, 3)

	assert.Equal(t, int64(125), sessions[0].Duration)
	assert.Equal(t, SessionStudy, sessions[0].Type)
	assert.Equal(t, "Math", sessions[0].Task)

	assert.Equal(t, int64(0), sessions[1].Duration)
	assert.Equal(t, SessionBreak, sessions[1].Type)
	assert.Empty(t, sessions[1].Task)

	assert.Equal(t, int64(60), sessions[2].Duration)
	assert.Equal(t, SessionStudy, sessions[2].Type)
	assert.Equal(t, "Physics", sessions[2].Task)
	assert.Equal(t, fixedNow, sessions[2].Date)
}

func TestNormalizeTimerState(t *testing.T) {
	n := testNormalizer()

	t.Run("running without start is anchored", func(t *testing.T) {
		ts := n.TimerState(decode(t, `{"seconds":90,"isRunning":true}`))
		require.NotNil(t, ts.StartTime)
		assert.Equal(t, fixedNow.UnixMilli()-90_000, *ts.StartTime)
	})

	t.Run("paused drops start", func(t *testing.T) {
		ts := n.TimerState(decode(t, `{"seconds":30,"isRunning":false,"startTime":1700000000000}`))
		assert.Nil(t, ts.StartTime)
		assert.Equal(t, int64(30), ts.Seconds)
	})

	t.Run("running keeps start", func(t *testing.T) {
		ts := n.TimerState(decode(t, `{"seconds":0,"isRunning":true,"isBreak":true,"currentTask":"Math","startTime":1700000000000}`))
		require.NotNil(t, ts.StartTime)
		assert.Equal(t, int64(1700000000000), *ts.StartTime)
		assert.True(t, ts.IsBreak)
		assert.Equal(t, "Math", ts.CurrentTask)
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	n := testNormalizer()
	raw := decode(t, `{
		"todos":[{"id":1,"text":"a","completed":true},{"id":1,"text":"b"}],
		"routine":[{"time":"06:00 AM","activity":"Wake"}],
		"timeSessions":[{"date":"2024-03-01T09:00:00Z","duration":10.5,"type":"study","task":"x"}],
		"timerState":{"seconds":12,"isRunning":true},
		"currentStatsPeriod":"week",
		"username":"ana",
		"isLoggedIn":true,
		"theme":"dark",
		"email":"ana@example.com",
		"uid":"u1",
		"extra":"ignored"
	}`).(map[string]any)

	once := n.Normalize(raw)

	b, err := json.Marshal(once)
	require.NoError(t, err)
	var again map[string]any
	require.NoError(t, json.Unmarshal(b, &again))
	twice := n.Normalize(again)

	assert.Equal(t, once, twice)

	// typed input takes the same path as decoded JSON
	typed := make(map[string]any)
	for k, v := range once.Fields() {
		typed[string(k)] = v
	}
	assert.Equal(t, once, n.Normalize(typed))
}

func TestHasData(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want bool
	}{
		{"nil document", nil, false},
		{"empty document", map[string]any{}, false},
		{"defaults only", map[string]any{"todos": []any{}, "theme": "light", "currentStatsPeriod": "today"}, false},
		{"unknown keys only", map[string]any{"legacy": "x"}, false},
		{"dark theme", map[string]any{"theme": "dark"}, true},
		{"one todo", map[string]any{"todos": []any{map[string]any{"text": "x"}}}, true},
		{"logged in flag", map[string]any{"isLoggedIn": true}, true},
		{"null values", map[string]any{"todos": nil, "uid": nil}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasData(tt.raw))
		})
	}
}

func TestDocumentNonDefault(t *testing.T) {
	doc := Defaults()
	doc.Theme = ThemeDark
	doc.Username = "ana"

	nd := doc.NonDefault()
	assert.Len(t, nd, 2)
	assert.Equal(t, ThemeDark, nd[KeyTheme])
	assert.Equal(t, "ana", nd[KeyUsername])
	assert.Len(t, doc.Fields(), len(Keys))
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("timerState")
	assert.True(t, ok)
	assert.Equal(t, KeyTimerState, k)

	_, ok = ParseKey("pomodoro")
	assert.False(t, ok)
}

func TestNormalizeValueUnknownKey(t *testing.T) {
	assert.Equal(t, "x", NormalizeValue(Key("legacy"), "x"))
	assert.Equal(t, 3.0, NormalizeValue(Key("legacy"), 3))
}

func TestNormalizeOutOfRangeTimestamps(t *testing.T) {
	n := testNormalizer()
	raw := decode(t, `{
		"todos":[{"id":"ok","text":"keep me"},{"id":"bad","text":"micros","createdAt":1700000000000000,"completed":true,"completedAt":"1e16"}],
		"timeSessions":[{"date":"1e16","duration":60,"type":"study","task":"Math"},{"date":"2024-03-01T09:00:00Z","duration":30}],
		"timerState":{"seconds":5,"isRunning":true,"startTime":1700000000000000}
	}`).(map[string]any)

	once := n.Normalize(raw)
	require.Len(t, once.Todos, 2)
	require.Len(t, once.TimeSessions, 2)
	assert.Equal(t, fixedNow, once.Todos[1].CreatedAt)
	assert.Equal(t, fixedNow, once.TimeSessions[0].Date)
	require.NotNil(t, once.TimerState.StartTime)
	assert.Equal(t, fixedNow.UnixMilli()-5_000, *once.TimerState.StartTime)

	b, err := json.Marshal(once)
	require.NoError(t, err)

	fields := make(map[string]any)
	for k, v := range once.Fields() {
		fields[string(k)] = v
	}
	twice := n.Normalize(fields)
	assert.Equal(t, once, twice)
	assert.Len(t, twice.Todos, 2)
	assert.Len(t, twice.TimeSessions, 2)

	var again map[string]any
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, once, n.Normalize(again))
}

func TestToTimeRejectsUnencodable(t *testing.T) {
	for _, v := range []any{
		1700000000000000.0,
		"1e16",
		time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		_, ok := toTime(v)
		assert.False(t, ok, "%v", v)
	}
	ts, ok := toTime(253402300799999.0)
	require.True(t, ok)
	assert.Equal(t, 9999, ts.Year())
}
