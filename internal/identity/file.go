package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// uidNamespace scopes the name-based uids derived from e-mail addresses.
var uidNamespace = uuid.MustParse("5d6f1c39-8a1e-4c6b-9a53-0f3f4f2b7c11")

// UIDForEmail returns the stable uid for an e-mail address.
func UIDForEmail(email string) string {
	return uuid.NewSHA1(uidNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// Session is the persisted sign-in.
type Session struct {
	UID        string    `yaml:"uid"`
	Email      string    `yaml:"email"`
	Name       string    `yaml:"name"`
	Token      string    `yaml:"token"`
	SignedInAt time.Time `yaml:"signed_in_at"`
}

// FileProvider keeps the session in a YAML file so that every process
// sharing the config directory sees the same sign-in.
type FileProvider struct {
	hub

	path string
	log  *slog.Logger

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewFileProvider loads the session at path, if any. A missing or unreadable
// session means signed out.
func NewFileProvider(path string, log *slog.Logger) (*FileProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("session path cannot be empty")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &FileProvider{path: filepath.Clean(path), log: log}
	ev, token := p.load()
	p.set(ev, token)
	return p, nil
}

func (p *FileProvider) Path() string { return p.path }

// SignIn persists a session for email and notifies subscribers.
func (p *FileProvider) SignIn(email, name string) (Principal, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return Principal{}, fmt.Errorf("invalid e-mail %q", email)
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	sess := Session{
		UID:        UIDForEmail(email),
		Email:      email,
		Name:       name,
		Token:      uuid.NewString(),
		SignedInAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := p.write(sess); err != nil {
		return Principal{}, err
	}

	pr := Principal{UID: sess.UID, Email: sess.Email, Name: sess.Name}
	p.publish(Event{Kind: SignedIn, Principal: pr}, sess.Token)
	return pr, nil
}

// SignOut removes the session and notifies subscribers.
func (p *FileProvider) SignOut() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	p.publish(Event{Kind: SignedOut}, "")
	return nil
}

// Watch follows changes made to the session file by other processes until
// ctx is done or Close is called.
func (p *FileProvider) Watch(ctx context.Context) error {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	if p.watcher != nil {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	p.watcher = w

	p.wg.Add(1)
	go p.processEvents(ctx, w)
	return nil
}

func (p *FileProvider) processEvents(ctx context.Context, w *fsnotify.Watcher) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != p.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			p.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.log.Warn("session watcher", "err", err)
		}
	}
}

// reload publishes the on-disk state when it differs from the current one.
func (p *FileProvider) reload() {
	ev, token := p.load()
	cur := p.Current()
	if ev.Kind == cur.Kind && ev.Principal.UID == cur.Principal.UID {
		p.set(ev, token)
		return
	}
	p.log.Info("session changed on disk", "state", ev.Kind.String(), "uid", ev.Principal.UID)
	p.publish(ev, token)
}

// Close stops the watcher, if running.
func (p *FileProvider) Close() error {
	p.watchMu.Lock()
	w := p.watcher
	p.watcher = nil
	p.watchMu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	p.wg.Wait()
	return err
}

func (p *FileProvider) load() (Event, string) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn("read session", "path", p.path, "err", err)
		}
		return Event{Kind: SignedOut}, ""
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		p.log.Warn("parse session", "path", p.path, "err", err)
		return Event{Kind: SignedOut}, ""
	}
	if sess.UID == "" {
		return Event{Kind: SignedOut}, ""
	}
	return Event{
		Kind:      SignedIn,
		Principal: Principal{UID: sess.UID, Email: sess.Email, Name: sess.Name},
	}, sess.Token
}

// write replaces the session file atomically.
func (p *FileProvider) write(sess Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("install session: %w", err)
	}
	return nil
}
