// Package remote implements clients for the per-user remote document.
//
// A remote document is a flat object keyed by schema key. Writes merge: the
// fields named in a write are replaced, every other field is left untouched.
package remote

import (
	"context"
	"errors"

	"github.com/sadopc/studytrack/internal/schema"
)

var (
	// ErrUnavailable wraps transport and server failures.
	ErrUnavailable = errors.New("remote unavailable")
	// ErrUnauthorized is returned when the credential is missing or rejected.
	ErrUnauthorized = errors.New("remote rejected credentials")
)

// Replica is the remote side of the sync.
type Replica interface {
	// Fetch returns the raw document for uid, or nil with a nil error when
	// no document exists.
	Fetch(ctx context.Context, uid string) (map[string]any, error)
	// Write merges fields into the document for uid, creating it if needed.
	Write(ctx context.Context, uid string, fields map[schema.Key]any) error
}

// Disabled is the replica used when no backend is configured. Every user has
// an empty document and writes go nowhere.
type Disabled struct{}

func (Disabled) Fetch(context.Context, string) (map[string]any, error) { return nil, nil }

func (Disabled) Write(context.Context, string, map[schema.Key]any) error { return nil }

var errEmptyUID = errors.New("uid cannot be empty")
