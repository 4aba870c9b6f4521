package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sadopc/studytrack/internal/schema"
)

// Redis stores each user document as one hash. Every schema key is a hash
// field holding the JSON encoding of its value, so HSET gives field-level
// merge writes.
type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

// NewRedis creates a Redis-backed replica. All keys are namespaced with prefix.
func NewRedis(opts *redis.Options, prefix string, log *slog.Logger) (*Redis, error) {
	if prefix == "" {
		return nil, fmt.Errorf("key prefix cannot be empty")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Redis{
		rdb:    redis.NewClient(opts),
		prefix: prefix,
		log:    log,
	}, nil
}

// UserKey returns the hash key for a user document.
// Pattern: {prefix}:user:{uid}
func UserKey(prefix, uid string) string {
	return fmt.Sprintf("%s:user:%s", prefix, uid)
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Fetch(ctx context.Context, uid string) (map[string]any, error) {
	if uid == "" {
		return nil, errEmptyUID
	}

	hash, err := r.rdb.HGetAll(ctx, UserKey(r.prefix, uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: fetch user document: %w", ErrUnavailable, err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return nil, nil
	}

	doc := make(map[string]any, len(hash))
	for field, payload := range hash {
		var v any
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			r.log.Warn("skip malformed remote field", "uid", uid, "field", field, "err", err)
			continue
		}
		doc[field] = v
	}
	return doc, nil
}

func (r *Redis) Write(ctx context.Context, uid string, fields map[schema.Key]any) error {
	if uid == "" {
		return errEmptyUID
	}
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", k, err)
		}
		values[string(k)] = string(b)
	}

	if err := r.rdb.HSet(ctx, UserKey(r.prefix, uid), values).Err(); err != nil {
		return fmt.Errorf("%w: write user document: %w", ErrUnavailable, err)
	}
	return nil
}
