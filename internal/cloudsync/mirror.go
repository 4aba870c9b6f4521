package cloudsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/studytrack/internal/remote"
	"github.com/sadopc/studytrack/internal/schema"
)

type pendingWrite struct {
	key   schema.Key
	value any
}

// Mirror writes through to the local replica and forwards each stored value
// to the remote document of one user. Remote writes are best effort: one
// ordered worker, no retry, failures logged.
type Mirror struct {
	local   LocalReplica
	remote  remote.Replica
	uid     string
	log     *slog.Logger
	timeout time.Duration

	queue  chan pendingWrite
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	pending int
	idle    chan struct{} // closed while pending == 0
}

func newMirror(local LocalReplica, rem remote.Replica, uid string, opts Options) *Mirror {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	m := &Mirror{
		local:   local,
		remote:  rem,
		uid:     uid,
		log:     opts.Logger.With("uid", uid),
		timeout: opts.WriteTimeout,
		queue:   make(chan pendingWrite, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		idle:    idle,
	}
	go m.run()
	return m
}

func (m *Mirror) UID() string { return m.uid }

func (m *Mirror) Get(key schema.Key, def any) any {
	return m.local.Get(key, def)
}

// Set stores value locally and queues the stored form for the remote.
// A write the local replica rejects is not sent.
func (m *Mirror) Set(key schema.Key, value any) {
	stored, err := m.local.Put(key, value)
	if err != nil {
		m.log.Error("write record", "key", key, "err", err)
		return
	}
	m.enqueue(key, stored)
}

func (m *Mirror) enqueue(key schema.Key, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	select {
	case m.queue <- pendingWrite{key: key, value: value}:
		if m.pending == 0 {
			m.idle = make(chan struct{})
		}
		m.pending++
	default:
		m.log.Warn("mirror queue full, dropping remote write", "key", key)
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		select {
		case w := <-m.queue:
			m.push(w)
			m.settle()
		case <-m.ctx.Done():
			for {
				select {
				case w := <-m.queue:
					m.log.Warn("dropping remote write on detach", "key", w.key)
					m.settle()
				default:
					return
				}
			}
		}
	}
}

func (m *Mirror) push(w pendingWrite) {
	if m.ctx.Err() != nil {
		m.log.Warn("dropping remote write on detach", "key", w.key)
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	if err := m.remote.Write(ctx, m.uid, map[schema.Key]any{w.key: w.value}); err != nil {
		m.log.Warn("remote write failed", "key", w.key, "err", err)
		return
	}
	m.log.Debug("remote write", "key", w.key)
}

func (m *Mirror) settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.pending == 0 {
		close(m.idle)
	}
}

// Flush waits until every queued write has been attempted.
func (m *Mirror) Flush(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes, lets queued writes drain for up to drain,
// then cancels whatever is left. No remote call is made after Close returns.
func (m *Mirror) Close(drain time.Duration) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), drain)
	if err := m.Flush(ctx); err != nil {
		m.log.Warn("mirror drain timed out")
	}
	cancel()

	m.cancel()
	<-m.done
}
