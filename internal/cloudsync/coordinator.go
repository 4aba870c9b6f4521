// Package cloudsync keeps the local replica and the signed-in user's remote
// document in step.
//
// On every sign-in the coordinator merges once: if the remote document holds
// data it replaces the local records (pull), otherwise the local records seed
// the remote document (push). From then on every write made through the
// Handle is mirrored to the remote document until the user signs out.
// Conflicts are not reconciled; the last write wins.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/studytrack/internal/identity"
	"github.com/sadopc/studytrack/internal/remote"
	"github.com/sadopc/studytrack/internal/schema"
)

type State int

const (
	Uninitialized State = iota
	AwaitingIdentity
	Merging
	Synced
	LocalOnly
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case AwaitingIdentity:
		return "awaiting identity"
	case Merging:
		return "merging"
	case Synced:
		return "synced"
	case LocalOnly:
		return "local only"
	default:
		return "unknown"
	}
}

type Direction int

const (
	DirectionNone Direction = iota
	DirectionPull
	DirectionPush
)

func (d Direction) String() string {
	switch d {
	case DirectionPull:
		return "pull"
	case DirectionPush:
		return "push"
	default:
		return "none"
	}
}

// MergeResult describes the last completed merge.
type MergeResult struct {
	UID       string
	Direction Direction
	Keys      int // records pulled or pushed
	Err       error
	Started   time.Time
	Finished  time.Time
}

type Options struct {
	// ReadinessTimeout forces readiness up if identity or a merge is slow.
	ReadinessTimeout time.Duration
	FetchTimeout     time.Duration
	WriteTimeout     time.Duration
	// DrainTimeout bounds how long queued mirror writes may finish on detach.
	DrainTimeout time.Duration
	QueueSize    int
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		ReadinessTimeout: 5 * time.Second,
		FetchTimeout:     10 * time.Second,
		WriteTimeout:     10 * time.Second,
		DrainTimeout:     2 * time.Second,
		QueueSize:        256,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReadinessTimeout <= 0 {
		o.ReadinessTimeout = d.ReadinessTimeout
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = d.DrainTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}

type Coordinator struct {
	local  LocalReplica
	remote remote.Replica
	idp    identity.Provider
	opts   Options
	log    *slog.Logger

	handle *Handle
	ready  *Readiness

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	uid         string
	gen         uint64 // bumped on every sign-in, sign-out and close
	cancelMerge context.CancelFunc
	mirror      *Mirror
	timer       *time.Timer
	unsubscribe func()
	last        *MergeResult
	closed      bool
}

// New creates a coordinator. A nil remote behaves as remote.Disabled.
func New(local LocalReplica, rem remote.Replica, idp identity.Provider, opts Options) (*Coordinator, error) {
	if local == nil {
		return nil, fmt.Errorf("local replica cannot be nil")
	}
	if idp == nil {
		return nil, fmt.Errorf("identity provider cannot be nil")
	}
	if rem == nil {
		rem = remote.Disabled{}
	}
	opts = opts.withDefaults()

	return &Coordinator{
		local:  local,
		remote: rem,
		idp:    idp,
		opts:   opts,
		log:    opts.Logger,
		handle: NewHandle(local),
		ready:  NewReadiness(),
	}, nil
}

// Start subscribes to the identity provider. The current identity state is
// handled before Start returns; merges run in the background.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("coordinator closed")
	}
	if c.state != Uninitialized {
		c.mu.Unlock()
		return errors.New("coordinator already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.state = AwaitingIdentity
	c.timer = c.armReadinessLocked(c.gen)
	c.mu.Unlock()

	c.log.Info("sync coordinator starting")
	unsub := c.idp.Subscribe(c.handleEvent)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsub()
		return nil
	}
	c.unsubscribe = unsub
	c.mu.Unlock()
	return nil
}

// Close detaches any mirror, cancels an in-flight merge and waits for it.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	unsub := c.unsubscribe
	c.unsubscribe = nil
	old := c.detachLocked()
	c.stopTimerLocked()
	cancel := c.cancel
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if old != nil {
		old.Close(c.opts.DrainTimeout)
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.log.Info("sync coordinator stopped")
	return nil
}

// Storage returns the handle every consumer reads and writes through.
func (c *Coordinator) Storage() *Handle { return c.handle }

func (c *Coordinator) Readiness() *Readiness { return c.ready }

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UID returns the uid being merged or mirrored, if any.
func (c *Coordinator) UID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

func (c *Coordinator) LastMerge() (MergeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return MergeResult{}, false
	}
	return *c.last, true
}

// Flush waits for queued mirror writes. It is a no-op when not synced.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	m := c.mirror
	c.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.Flush(ctx)
}

func (c *Coordinator) handleEvent(ev identity.Event) {
	switch ev.Kind {
	case identity.SignedIn:
		if ev.Principal.UID == "" {
			c.log.Warn("ignoring sign-in without uid")
			return
		}
		c.signIn(ev.Principal)
	case identity.SignedOut:
		c.signOut()
	}
}

func (c *Coordinator) signIn(p identity.Principal) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.uid == p.UID && (c.state == Merging || c.state == Synced) {
		c.mu.Unlock()
		c.log.Debug("duplicate sign-in ignored", "uid", p.UID)
		return
	}

	old := c.detachLocked()
	c.gen++
	gen := c.gen
	c.uid = p.UID
	c.state = Merging
	c.ready.Reset()
	c.stopTimerLocked()
	c.timer = c.armReadinessLocked(gen)

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelMerge = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	if old != nil {
		old.Close(c.opts.DrainTimeout)
	}
	c.log.Info("signed in, merging", "uid", p.UID)
	go c.merge(ctx, gen, p.UID)
}

func (c *Coordinator) signOut() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	old := c.detachLocked()
	c.gen++
	prev := c.uid
	c.uid = ""
	c.state = LocalOnly
	c.stopTimerLocked()
	c.ready.Raise()
	c.mu.Unlock()

	if old != nil {
		old.Close(c.opts.DrainTimeout)
	}
	if prev != "" {
		c.log.Info("signed out, local only", "uid", prev)
	} else {
		c.log.Info("no user signed in, local only")
	}
}

func (c *Coordinator) merge(ctx context.Context, gen uint64, uid string) {
	defer c.wg.Done()

	res := MergeResult{UID: uid, Started: time.Now()}

	fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	raw, err := c.remote.Fetch(fctx, uid)
	cancel()

	switch {
	case err != nil:
		res.Err = fmt.Errorf("fetch remote document: %w", err)
	case schema.HasData(raw):
		res.Direction = DirectionPull
		doc := schema.Normalize(raw)

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			c.log.Debug("stale merge discarded before pull", "uid", uid)
			return
		}
		fields := doc.Fields()
		if err := c.local.PutAll(fields); err != nil {
			res.Err = fmt.Errorf("apply remote document: %w", err)
		} else {
			res.Keys = len(fields)
		}
		c.mu.Unlock()
	default:
		res.Direction = DirectionPush
		res.Keys, res.Err = c.push(ctx, uid)
	}

	c.finish(gen, res)
}

func (c *Coordinator) push(ctx context.Context, uid string) (int, error) {
	snap, err := c.local.Snapshot()
	if err != nil {
		return 0, fmt.Errorf("snapshot local replica: %w", err)
	}
	fields := schema.Normalize(snap).NonDefault()
	if len(fields) == 0 {
		return 0, nil
	}

	wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	if err := c.remote.Write(wctx, uid, fields); err != nil {
		return 0, fmt.Errorf("seed remote document: %w", err)
	}
	return len(fields), nil
}

// finish binds the mirror and raises readiness, unless the merge went stale.
func (c *Coordinator) finish(gen uint64, res MergeResult) {
	res.Finished = time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		c.log.Debug("stale merge discarded", "uid", res.UID)
		return
	}
	if c.cancelMerge != nil {
		c.cancelMerge()
		c.cancelMerge = nil
	}
	c.last = &res
	c.mirror = newMirror(c.local, c.remote, res.UID, c.opts)
	c.handle.swap(c.mirror)
	c.state = Synced
	c.stopTimerLocked()
	c.ready.Raise()

	if res.Err != nil {
		c.log.Warn("merge failed, mirroring anyway", "uid", res.UID, "direction", res.Direction.String(), "err", res.Err)
		return
	}
	c.log.Info("merge complete", "uid", res.UID, "direction", res.Direction.String(), "keys", res.Keys,
		"took", res.Finished.Sub(res.Started).Round(time.Millisecond))
}

// detachLocked cancels the in-flight merge and points the handle back at the
// local replica. The returned mirror must be closed outside the lock.
func (c *Coordinator) detachLocked() *Mirror {
	if c.cancelMerge != nil {
		c.cancelMerge()
		c.cancelMerge = nil
	}
	m := c.mirror
	c.mirror = nil
	c.handle.swap(c.local)
	return m
}

func (c *Coordinator) armReadinessLocked(gen uint64) *time.Timer {
	return time.AfterFunc(c.opts.ReadinessTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || c.closed {
			return
		}
		if c.ready.Raise() {
			c.log.Warn("readiness forced after timeout", "state", c.state.String())
		}
	})
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
