package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/studytrack/internal/identity"
	"github.com/sadopc/studytrack/internal/remote"
	"github.com/sadopc/studytrack/internal/schema"
	"github.com/sadopc/studytrack/internal/store"
)

// execute runs the command line with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func seedStore(t *testing.T, dir string, fields map[schema.Key]any) {
	t.Helper()
	s, err := store.New(filepath.Join(dir, "studytrack.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.PutAll(fields))
}

func readStore(t *testing.T, dir string) schema.Document {
	t.Helper()
	s, err := store.New(filepath.Join(dir, "studytrack.db"))
	require.NoError(t, err)
	defer s.Close()
	doc, err := s.Document()
	require.NoError(t, err)
	return doc
}

func TestRootRejectsUnknownFlags(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "--goal", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootRequiresTerminal(t *testing.T) {
	orig := isTerminal
	isTerminal = func(uintptr) bool { return false }
	t.Cleanup(func() { isTerminal = orig })

	_, err := execute(t, "--data-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a terminal")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "--log-level", "loud", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestStatusFreshDataDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--data-dir", dir, "status")
	require.NoError(t, err)

	assert.Contains(t, out, dir)
	assert.Contains(t, out, "none (local only)")
	assert.Contains(t, out, "signed out")
	assert.Contains(t, out, "0 open, 0 done")
	assert.FileExists(t, filepath.Join(dir, "studytrack.db"))
}

func TestStatusSummarizesLocalData(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	seedStore(t, dir, map[schema.Key]any{
		schema.KeyTimeSessions: []schema.Session{
			{Date: now, Duration: 1800, Type: schema.SessionStudy, Task: "Math"},
		},
		schema.KeyTodos: []schema.Todo{
			{ID: "1", Text: "Read", CreatedAt: now},
		},
	})

	out, err := execute(t, "--data-dir", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "30m study")
	assert.Contains(t, out, "1 open, 0 done")
}

func TestLoginLogoutWithoutRemote(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--data-dir", dir, "login", "ada@example.com", "--name", "Ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada@example.com")

	doc := readStore(t, dir)
	assert.Equal(t, "Ada", doc.Username)
	assert.True(t, doc.IsLoggedIn)
	assert.Equal(t, identity.UIDForEmail("ada@example.com"), doc.UID)

	out, err = execute(t, "--data-dir", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")

	out, err = execute(t, "--data-dir", dir, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	doc = readStore(t, dir)
	assert.False(t, doc.IsLoggedIn)
	assert.Empty(t, doc.Username)
	assert.Equal(t, "ada@example.com", doc.Email, "e-mail is kept after sign-out")

	out, err = execute(t, "--data-dir", dir, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestLoginRejectsBlankEmail(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "login", "  ")
	assert.Error(t, err)
}

func TestLoginWithRedisMirrorsAccount(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	t.Setenv("STUDYTRACK_REMOTE_REDIS_ADDR", mr.Addr())

	now := time.Now()
	seedStore(t, dir, map[schema.Key]any{
		schema.KeyTimeSessions: []schema.Session{
			{Date: now, Duration: 600, Type: schema.SessionStudy, Task: "Latin"},
		},
	})

	out, err := execute(t, "--data-dir", dir, "--backend", "redis", "login", "ada@example.com", "--name", "Ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada@example.com")
	assert.Contains(t, out, "push")

	rem, err := remote.NewRedis(&redis.Options{Addr: mr.Addr()}, "studytrack", nil)
	require.NoError(t, err)
	defer rem.Close()

	raw, err := rem.Fetch(context.Background(), identity.UIDForEmail("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "Ada", raw["username"])
	assert.Equal(t, true, raw["isLoggedIn"])
	assert.Len(t, schema.Normalize(raw).TimeSessions, 1)

	out, err = execute(t, "--data-dir", dir, "--backend", "redis", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "redis "+mr.Addr())
	assert.NotContains(t, out, "unreachable")
}

func TestSyncPullsIntoFreshDevice(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("STUDYTRACK_REMOTE_REDIS_ADDR", mr.Addr())

	first := t.TempDir()
	seedStore(t, first, map[schema.Key]any{
		schema.KeyTodos: []schema.Todo{{ID: "1", Text: "Flashcards", CreatedAt: time.Now()}},
	})
	_, err := execute(t, "--data-dir", first, "--backend", "redis", "login", "ada@example.com")
	require.NoError(t, err)

	// A second device signed in as the same user.
	second := t.TempDir()
	session, err := os.ReadFile(filepath.Join(first, "session.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(second, "session.yaml"), session, 0o600))

	out, err := execute(t, "--data-dir", second, "--backend", "redis", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "pull")

	doc := readStore(t, second)
	require.Len(t, doc.Todos, 1)
	assert.Equal(t, "Flashcards", doc.Todos[0].Text)
}

func TestLoginWarnsWhenMergeFails(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("STUDYTRACK_REMOTE_REDIS_ADDR", mr.Addr())
	mr.Close()

	out, err := execute(t, "--data-dir", t.TempDir(), "--backend", "redis", "login", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada@example.com")
	assert.Contains(t, out, "Merge failed")
}

func TestSyncReportsUnreachableRemote(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	t.Setenv("STUDYTRACK_REMOTE_REDIS_ADDR", mr.Addr())

	_, err := execute(t, "--data-dir", dir, "--backend", "redis", "login", "ada@example.com")
	require.NoError(t, err)

	mr.Close()

	out, err := execute(t, "--data-dir", dir, "--backend", "redis", "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge failed")
	assert.NotContains(t, out, "Synced")
}

func TestSyncWhenSignedOut(t *testing.T) {
	out, err := execute(t, "--data-dir", t.TempDir(), "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := t.TempDir()
	now := time.Now()
	seedStore(t, src, map[schema.Key]any{
		schema.KeyTimeSessions: []schema.Session{
			{Date: now.Add(-time.Hour), Duration: 1500, Type: schema.SessionStudy, Task: "Biology"},
			{Date: now, Duration: 300, Type: schema.SessionBreak},
		},
		schema.KeyTodos:    []schema.Todo{{ID: "1", Text: "Lab report", CreatedAt: now}},
		schema.KeyTheme:    schema.ThemeDark,
		schema.KeyUsername: "grace",
	})

	backup := filepath.Join(t.TempDir(), "backup.json")
	out, err := execute(t, "--data-dir", src, "export", "--format", "json", "--output", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to "+backup)

	dst := t.TempDir()
	out, err = execute(t, "--data-dir", dst, "import", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 sessions)")

	doc := readStore(t, dst)
	assert.Len(t, doc.TimeSessions, 2)
	require.Len(t, doc.Todos, 1)
	assert.Equal(t, "Lab report", doc.Todos[0].Text)
	assert.Equal(t, schema.ThemeDark, doc.Theme)
	assert.Empty(t, doc.Username, "profile records are not restored")
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir, map[schema.Key]any{
		schema.KeyTimeSessions: []schema.Session{{Date: time.Now(), Duration: 60, Type: schema.SessionStudy}},
	})

	path := filepath.Join(t.TempDir(), "sessions.csv")
	_, err := execute(t, "--data-dir", dir, "export", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Untagged Session")
}

func TestExportDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := defaultExportPath(formatJSON, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "studytrack-backup-2024-05-01.json"), path)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "export", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestImportMissingFile(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "import", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--data-dir", dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "config.yaml"))
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	_, err = execute(t, "--data-dir", dir, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "--data-dir", dir, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "--data-dir", dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: none")

	out, err = execute(t, "--data-dir", dir, "--backend", "redis", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: redis", "flags override the config file")
}

func TestConfigShowMasksPassword(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STUDYTRACK_REMOTE_REDIS_PASSWORD", "hunter2")

	out, err := execute(t, "--data-dir", dir, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "********")
}
