// Package identity provides the sign-in state the sync coordinator follows.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrNotSignedIn = errors.New("not signed in")

type Kind int

const (
	SignedOut Kind = iota
	SignedIn
)

func (k Kind) String() string {
	switch k {
	case SignedOut:
		return "signed out"
	case SignedIn:
		return "signed in"
	default:
		return "unknown"
	}
}

type Principal struct {
	UID   string
	Email string
	Name  string
}

type Event struct {
	Kind      Kind
	Principal Principal
}

// Provider publishes sign-in state changes.
type Provider interface {
	// Subscribe registers fn and immediately delivers the current state to
	// it. fn must not call Subscribe.
	Subscribe(fn func(Event)) (unsubscribe func())
	// Token returns the bearer credential of the signed-in principal.
	Token(ctx context.Context) (string, error)
}

// hub fans events out to subscribers in publication order.
type hub struct {
	emit sync.Mutex // serializes deliveries

	mu      sync.Mutex
	current Event
	token   string
	subs    map[uint64]func(Event)
	next    uint64
}

func (h *hub) Subscribe(fn func(Event)) func() {
	h.emit.Lock()
	defer h.emit.Unlock()

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(Event))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	cur := h.current
	h.mu.Unlock()

	fn(cur)

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current.Kind != SignedIn || h.token == "" {
		return "", ErrNotSignedIn
	}
	return h.token, nil
}

// Current returns the latest published state.
func (h *hub) Current() Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// set records a new state without notifying anyone.
func (h *hub) set(ev Event, token string) {
	h.mu.Lock()
	h.current = ev
	h.token = token
	h.mu.Unlock()
}

func (h *hub) publish(ev Event, token string) {
	h.emit.Lock()
	defer h.emit.Unlock()

	h.mu.Lock()
	h.current = ev
	h.token = token
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Memory is a provider driven directly by the caller.
type Memory struct {
	hub
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SignIn(p Principal) {
	m.publish(Event{Kind: SignedIn, Principal: p}, uuid.NewString())
}

func (m *Memory) SignOut() {
	m.publish(Event{Kind: SignedOut}, "")
}
