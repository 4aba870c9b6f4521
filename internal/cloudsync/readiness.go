package cloudsync

import (
	"context"
	"sync"
)

// Readiness is a latched flag with change notification. It is raised once
// the local replica reflects the merged state (or a timeout gave up waiting)
// and lowered only when a new sign-in merge starts.
type Readiness struct {
	mu    sync.Mutex
	ready bool
	done  chan struct{}
	obs   map[uint64]func()
	next  uint64
}

func NewReadiness() *Readiness {
	return &Readiness{
		done: make(chan struct{}),
		obs:  make(map[uint64]func()),
	}
}

// Raise sets the flag and reports whether it was previously lowered.
// Observers run on their own goroutines, once per raise.
func (r *Readiness) Raise() bool {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		return false
	}
	r.ready = true
	close(r.done)
	fns := make([]func(), 0, len(r.obs))
	for _, fn := range r.obs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		go fn()
	}
	return true
}

// Reset lowers the flag. Channels returned by Done before the reset stay
// closed.
func (r *Readiness) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		r.ready = false
		r.done = make(chan struct{})
	}
}

func (r *Readiness) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Done returns a channel closed at the next (or current) raise.
func (r *Readiness) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Wait blocks until the flag is raised or ctx is done.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnReady registers fn for every future raise. If the flag is already up,
// fn is also scheduled immediately.
func (r *Readiness) OnReady(fn func()) (cancel func()) {
	r.mu.Lock()
	id := r.next
	r.next++
	r.obs[id] = fn
	ready := r.ready
	r.mu.Unlock()

	if ready {
		go fn()
	}
	return func() {
		r.mu.Lock()
		delete(r.obs, id)
		r.mu.Unlock()
	}
}
