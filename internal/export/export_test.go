package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

func sampleSessions() []schema.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return []schema.Session{
		{Date: now.Add(-2 * time.Hour), Duration: 3600, Type: schema.SessionStudy, Task: "Calculus"},
		{Date: now.Add(-1 * time.Hour), Duration: 600, Type: schema.SessionBreak},
		{Date: now.Add(-30 * time.Minute), Duration: 1800, Type: schema.SessionStudy},
	}
}

func sampleDocument() schema.Document {
	doc := schema.Defaults()
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	doc.Todos = []schema.Todo{{ID: "t1", Text: "Read chapter 4", CreatedAt: created}}
	doc.TimeSessions = sampleSessions()
	doc.Username = "ada"
	doc.IsLoggedIn = true
	doc.Theme = schema.ThemeDark
	return doc
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")

	if err := ToCSV(sampleSessions(), path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	header := records[0]
	expectedHeader := []string{"Date", "Type", "Subject", "Duration (s)", "Duration"}
	for i, h := range expectedHeader {
		if header[i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], h)
		}
	}

	row := records[1]
	if row[1] != "study" {
		t.Fatalf("Type = %q, want study", row[1])
	}
	if row[2] != "Calculus" {
		t.Fatalf("Subject = %q, want Calculus", row[2])
	}
	if row[3] != "3600" {
		t.Fatalf("Duration (s) = %q, want 3600", row[3])
	}
	if row[4] != "01:00:00" {
		t.Fatalf("Duration = %q, want 01:00:00", row[4])
	}
	if _, err := time.Parse(time.RFC3339, row[0]); err != nil {
		t.Fatalf("Date is not RFC3339: %q", row[0])
	}

	if records[2][1] != "break" || records[2][2] != "" {
		t.Fatalf("break row = %v, want type break with no subject", records[2])
	}
	if records[3][2] != "Untagged Session" {
		t.Fatalf("untagged study subject = %q", records[3][2])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := ToCSV(nil, path); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, path); len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVBadPath(t *testing.T) {
	if err := ToCSV(nil, "/nonexistent/dir/file.csv"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToCSVSpecialCharacters(t *testing.T) {
	sessions := []schema.Session{
		{Date: time.Now(), Duration: 60, Type: schema.SessionStudy, Task: `Physics "lab", part 2`},
	}
	path := filepath.Join(t.TempDir(), "special.csv")

	if err := ToCSV(sessions, path); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, path)
	if records[1][2] != `Physics "lab", part 2` {
		t.Fatalf("subject mangled: %q", records[1][2])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")

	if err := ToJSON(sampleDocument(), path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var result jsonBackup
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Version != backupVersion {
		t.Fatalf("version = %d, want %d", result.Version, backupVersion)
	}
	if result.Sessions != 3 {
		t.Fatalf("session_count = %d, want 3", result.Sessions)
	}
	if len(result.Data) != len(schema.Keys) {
		t.Fatalf("data has %d keys, want %d", len(result.Data), len(schema.Keys))
	}
	if result.Data["username"] != "ada" {
		t.Fatalf("username = %v, want ada", result.Data["username"])
	}
	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}
}

func TestToJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	if err := ToJSON(schema.Defaults(), path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n  ") {
		t.Fatal("JSON should be indented with spaces")
	}
}

func TestToJSONBadPath(t *testing.T) {
	if err := ToJSON(schema.Defaults(), "/nonexistent/dir/file.json"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestReadJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	want := sampleDocument()
	if err := ToJSON(want, path); err != nil {
		t.Fatal(err)
	}

	raw, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	got := schema.Normalize(raw)

	if got.Username != want.Username || got.Theme != want.Theme || !got.IsLoggedIn {
		t.Fatalf("scalar records differ: got %+v", got)
	}
	if len(got.TimeSessions) != 3 || got.TimeSessions[0].Task != "Calculus" {
		t.Fatalf("sessions = %+v", got.TimeSessions)
	}
	if !got.TimeSessions[0].Date.Equal(want.TimeSessions[0].Date) {
		t.Fatalf("session date = %v, want %v", got.TimeSessions[0].Date, want.TimeSessions[0].Date)
	}
	if len(got.Todos) != 1 || got.Todos[0].ID != "t1" {
		t.Fatalf("todos = %+v", got.Todos)
	}
}

func TestReadJSONRejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{nope"},
		{"no data", `{"version": 1}`},
		{"future version", `{"version": 99, "data": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadJSON(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := ReadJSON(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
