package store

import (
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

// Record is one stored row. Value is the JSON payload as persisted.
type Record struct {
	Key       schema.Key
	Value     string
	UpdatedAt time.Time
}

// Known reports whether the record belongs to the tracked key set.
func (r Record) Known() bool {
	return r.Key.Known()
}
