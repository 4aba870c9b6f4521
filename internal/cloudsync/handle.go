package cloudsync

import (
	"sync"

	"github.com/sadopc/studytrack/internal/schema"
)

// Storage is the read/write surface views use.
type Storage interface {
	Get(key schema.Key, def any) any
	Set(key schema.Key, value any)
}

// LocalReplica is the local store as the coordinator needs it.
type LocalReplica interface {
	Storage
	Put(key schema.Key, value any) (any, error)
	PutAll(fields map[schema.Key]any) error
	Snapshot() (map[string]any, error)
}

// Handle is the stable storage reference handed to consumers. The
// coordinator retargets it between the local replica and a mirror.
type Handle struct {
	mu     sync.RWMutex
	target Storage
}

func NewHandle(s Storage) *Handle {
	return &Handle{target: s}
}

func (h *Handle) Get(key schema.Key, def any) any {
	return h.current().Get(key, def)
}

func (h *Handle) Set(key schema.Key, value any) {
	h.current().Set(key, value)
}

// Document reads every tracked record, substituting defaults.
func (h *Handle) Document() schema.Document {
	s := h.current()
	doc := schema.Defaults()
	for _, k := range schema.Keys {
		doc.Set(k, s.Get(k, schema.Default(k)))
	}
	return doc
}

func (h *Handle) current() Storage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.target
}

func (h *Handle) swap(s Storage) Storage {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.target
	h.target = s
	return old
}
