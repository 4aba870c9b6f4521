package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}
	}
	return r.events[len(r.events)-1]
}

func TestMemorySubscribeDeliversCurrentState(t *testing.T) {
	m := NewMemory()
	m.SignIn(Principal{UID: "u1", Email: "ana@example.com"})

	var rec recorder
	unsub := m.Subscribe(rec.record)
	defer unsub()

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SignedIn, events[0].Kind)
	assert.Equal(t, "u1", events[0].Principal.UID)
}

func TestMemoryPublishAndUnsubscribe(t *testing.T) {
	m := NewMemory()
	var rec recorder
	unsub := m.Subscribe(rec.record)

	m.SignIn(Principal{UID: "u1"})
	m.SignOut()
	unsub()
	m.SignIn(Principal{UID: "u2"})

	events := rec.all()
	require.Len(t, events, 3)
	assert.Equal(t, SignedOut, events[0].Kind)
	assert.Equal(t, SignedIn, events[1].Kind)
	assert.Equal(t, SignedOut, events[2].Kind)
}

func TestMemoryToken(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Token(ctx)
	assert.True(t, errors.Is(err, ErrNotSignedIn))

	m.SignIn(Principal{UID: "u1"})
	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestUIDForEmail(t *testing.T) {
	assert.Equal(t, UIDForEmail("Ana@Example.com"), UIDForEmail(" ana@example.com "))
	assert.NotEqual(t, UIDForEmail("ana@example.com"), UIDForEmail("bob@example.com"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "signed in", SignedIn.String())
	assert.Equal(t, "signed out", SignedOut.String())
	assert.Equal(t, "unknown", Kind(9).String())
}

func newTestFileProvider(t *testing.T, path string) *FileProvider {
	t.Helper()
	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestFileProviderSignInPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studytrack", "session.yaml")
	p := newTestFileProvider(t, path)
	assert.Equal(t, SignedOut, p.Current().Kind)

	pr, err := p.SignIn("ana@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, UIDForEmail("ana@example.com"), pr.UID)
	assert.Equal(t, "ana", pr.Name)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second provider on the same file sees the session
	p2 := newTestFileProvider(t, path)
	cur := p2.Current()
	assert.Equal(t, SignedIn, cur.Kind)
	assert.Equal(t, pr, cur.Principal)

	tok1, err := p.Token(context.Background())
	require.NoError(t, err)
	tok2, err := p2.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
}

func TestFileProviderRejectsBadEmail(t *testing.T) {
	p := newTestFileProvider(t, filepath.Join(t.TempDir(), "session.yaml"))
	_, err := p.SignIn("not-an-email", "x")
	assert.Error(t, err)
}

func TestFileProviderSignOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	p := newTestFileProvider(t, path)

	var rec recorder
	defer p.Subscribe(rec.record)()

	_, err := p.SignIn("ana@example.com", "Ana")
	require.NoError(t, err)
	require.NoError(t, p.SignOut())
	require.NoError(t, p.SignOut()) // already gone

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, SignedOut, rec.last().Kind)
}

func TestFileProviderMalformedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uid: [unterminated"), 0o600))

	p := newTestFileProvider(t, path)
	assert.Equal(t, SignedOut, p.Current().Kind)
}

func TestFileProviderWatchSeesOtherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	ui := newTestFileProvider(t, path)
	cli := newTestFileProvider(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ui.Watch(ctx))
	assert.Error(t, ui.Watch(ctx), "second Watch should fail")

	var rec recorder
	defer ui.Subscribe(rec.record)()

	pr, err := cli.SignIn("ana@example.com", "Ana")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ev := rec.last()
		return ev.Kind == SignedIn && ev.Principal.UID == pr.UID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, cli.SignOut())

	require.Eventually(t, func() bool {
		return rec.last().Kind == SignedOut
	}, 2*time.Second, 10*time.Millisecond)
}
