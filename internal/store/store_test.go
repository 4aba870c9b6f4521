package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sadopc/studytrack/internal/schema"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewMemory(opts...)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putRaw writes a payload without normalization, as an older build would have.
func putRaw(t *testing.T, s *Store, key, payload string) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO records (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, payload,
	)
	if err != nil {
		t.Fatalf("insert raw record: %v", err)
	}
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/studytrack.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Set(schema.KeyUsername, "ana")
	s.Close()

	// Reopen: data survives and migrations do not run again
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got := s2.Get(schema.KeyUsername, ""); got != "ana" {
		t.Fatalf("expected username to survive reopen, got %v", got)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestSeededRecords(t *testing.T) {
	s := newTestStore(t)
	if got := s.Get(schema.KeyTheme, nil); got != schema.ThemeLight {
		t.Fatalf("expected seeded theme light, got %v", got)
	}
	if got := s.Get(schema.KeyCurrentStatsPeriod, nil); got != schema.PeriodToday {
		t.Fatalf("expected seeded period today, got %v", got)
	}
}

// ============================================================
// Get / Set
// ============================================================

func TestGetMissingReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	if got := s.Get(schema.KeyUsername, "guest"); got != "guest" {
		t.Fatalf("expected default, got %v", got)
	}
	if got := s.Get(schema.KeyTodos, nil); got != nil {
		t.Fatalf("expected nil default, got %v", got)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	todos := []any{
		map[string]any{"id": 1.0, "text": "read chapter 3"},
		map[string]any{"id": "b", "text": "review", "completed": true},
	}
	s.Set(schema.KeyTodos, todos)

	got, ok := s.Get(schema.KeyTodos, nil).([]schema.Todo)
	if !ok {
		t.Fatalf("expected []schema.Todo, got %T", s.Get(schema.KeyTodos, nil))
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(got))
	}
	if got[0].ID != "1" {
		t.Fatalf("expected numeric id to be stringified, got %q", got[0].ID)
	}
	if got[1].CompletedAt == nil {
		t.Fatal("expected completed todo to carry completedAt")
	}

	// stored values are already canonical
	again := schema.NormalizeValue(schema.KeyTodos, got)
	if !reflect.DeepEqual(again, got) {
		t.Fatalf("stored todos are not canonical:\n%v\n%v", got, again)
	}
}

func TestOutOfRangeTimestampsKeepRecords(t *testing.T) {
	s := newTestStore(t)

	todos := []any{
		map[string]any{"id": "ok", "text": "keep me"},
		map[string]any{"id": "bad", "text": "micros", "createdAt": 1700000000000000.0},
	}
	sessions := []any{
		map[string]any{"date": "1e16", "duration": 60.0, "type": "study", "task": "Math"},
		map[string]any{"date": "2024-03-01T09:00:00Z", "duration": 30.0},
	}
	s.Set(schema.KeyTodos, todos)
	s.Set(schema.KeyTimeSessions, sessions)

	gotTodos, _ := s.Get(schema.KeyTodos, nil).([]schema.Todo)
	if len(gotTodos) != 2 {
		t.Fatalf("expected 2 todos after set, got %d", len(gotTodos))
	}
	gotSessions, _ := s.Get(schema.KeyTimeSessions, nil).([]schema.Session)
	if len(gotSessions) != 2 {
		t.Fatalf("expected 2 sessions after set, got %d", len(gotSessions))
	}

	doc := schema.Normalize(map[string]any{"todos": todos, "timeSessions": sessions})
	if err := s.PutAll(doc.Fields()); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Document()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Todos) != 2 || len(snap.TimeSessions) != 2 {
		t.Fatalf("expected 2 todos and 2 sessions after PutAll, got %d and %d", len(snap.Todos), len(snap.TimeSessions))
	}
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)
	s.Set(schema.KeyTheme, "dark")
	s.Set(schema.KeyTheme, "light")
	if got := s.Get(schema.KeyTheme, nil); got != schema.ThemeLight {
		t.Fatalf("expected light, got %v", got)
	}
}

func TestMalformedPayloadFallsBack(t *testing.T) {
	s := newTestStore(t)
	putRaw(t, s, "todos", "{not json")

	if got := s.Get(schema.KeyTodos, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for malformed payload, got %v", got)
	}
	if _, _, err := s.Lookup(schema.KeyTodos); err == nil {
		t.Fatal("expected Lookup to report malformed payload")
	}
}

func TestLegacyPayloadUpgradedOnRead(t *testing.T) {
	s := newTestStore(t)
	putRaw(t, s, "timerState", `{"seconds": 12.7, "isRunning": false, "startTime": 1700000000000}`)

	ts, ok := s.Get(schema.KeyTimerState, nil).(schema.TimerState)
	if !ok {
		t.Fatal("expected schema.TimerState")
	}
	if ts.Seconds != 12 || ts.StartTime != nil {
		t.Fatalf("unexpected timer state %+v", ts)
	}
}

func TestWithNormalizerRepairsIDs(t *testing.T) {
	norm := schema.DefaultNormalizer()
	norm.NewID = func() string { return "fixed-id" }
	s := newTestStore(t, WithNormalizer(norm))
	putRaw(t, s, "todos", `[{"title": "Read chapter 4", "completed": false}]`)

	todos, ok := s.Get(schema.KeyTodos, nil).([]schema.Todo)
	if !ok || len(todos) != 1 {
		t.Fatalf("expected one todo, got %#v", s.Get(schema.KeyTodos, nil))
	}
	if todos[0].ID != "fixed-id" || todos[0].Text != "Read chapter 4" {
		t.Fatalf("unexpected todo %+v", todos[0])
	}
}

// ============================================================
// Put / PutAll / Snapshot
// ============================================================

func TestPutReturnsCanonical(t *testing.T) {
	s := newTestStore(t)
	v, err := s.Put(schema.KeyTheme, "neon")
	if err != nil {
		t.Fatal(err)
	}
	if v != schema.ThemeLight {
		t.Fatalf("expected invalid theme to normalize to light, got %v", v)
	}
}

func TestPutAllAndSnapshot(t *testing.T) {
	s := newTestStore(t)
	err := s.PutAll(map[schema.Key]any{
		schema.KeyUsername:   "ana",
		schema.KeyIsLoggedIn: true,
		schema.KeyUID:        "u1",
	})
	if err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap["username"] != "ana" || snap["isLoggedIn"] != true || snap["uid"] != "u1" {
		t.Fatalf("unexpected snapshot %v", snap)
	}

	doc, err := s.Document()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Username != "ana" || !doc.IsLoggedIn || doc.UID != "u1" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestSnapshotSkipsMalformed(t *testing.T) {
	s := newTestStore(t)
	putRaw(t, s, "routine", "[[[")
	s.Set(schema.KeyEmail, "a@b.c")

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap["routine"]; ok {
		t.Fatal("expected malformed routine to be skipped")
	}
	if snap["email"] != "a@b.c" {
		t.Fatalf("expected email in snapshot, got %v", snap["email"])
	}
}

func TestSnapshotSkipsUnknownKeys(t *testing.T) {
	s := newTestStore(t)
	putRaw(t, s, "pomodoroSettings", `{"work":25}`)

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap["pomodoroSettings"]; ok {
		t.Fatal("expected unknown record to be left out")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	s.Set(schema.KeyUsername, "ana")

	records, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range records {
		if r.Key == schema.KeyUsername {
			found = true
			if r.Value != `"ana"` {
				t.Fatalf("unexpected payload %s", r.Value)
			}
			if r.UpdatedAt.IsZero() {
				t.Fatal("expected updated_at to be set")
			}
		}
	}
	if !found {
		t.Fatal("username record not listed")
	}

}

// Records are only ever overwritten, never removed by key.
func TestNoKeyDeletion(t *testing.T) {
	if _, ok := reflect.TypeOf(&Store{}).MethodByName("Delete"); ok {
		t.Fatal("Store must not expose Delete")
	}
	s := newTestStore(t)
	s.Set(schema.KeyUsername, "ana")
	s.Set(schema.KeyUsername, "")
	records, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		if r.Key == schema.KeyUsername {
			return
		}
	}
	t.Fatal("resetting a record to its default should keep the row")
}

// ============================================================
// Quota
// ============================================================

func TestQuotaExceeded(t *testing.T) {
	s := newTestStore(t, WithQuota(200))

	long := make([]any, 0, 20)
	for i := 0; i < 20; i++ {
		long = append(long, map[string]any{"id": float64(i), "text": "a fairly long todo text"})
	}
	_, err := s.Put(schema.KeyTodos, long)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// Set swallows the failure and the record stays absent
	s.Set(schema.KeyTodos, long)
	if got := s.Get(schema.KeyTodos, nil); got != nil {
		t.Fatalf("expected no todos after rejected write, got %v", got)
	}

	// small writes still fit
	if _, err := s.Put(schema.KeyUsername, "ana"); err != nil {
		t.Fatalf("small write: %v", err)
	}
}
