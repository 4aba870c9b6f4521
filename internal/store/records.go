package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

// Get returns the canonical value stored under key, or def when the record
// is missing or unreadable. It never fails.
func (s *Store) Get(key schema.Key, def any) any {
	v, ok, err := s.Lookup(key)
	if err != nil {
		s.log.Warn("read record", "key", key, "err", err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

// Set normalizes and durably stores value under key. Failures are logged and
// swallowed.
func (s *Store) Set(key schema.Key, value any) {
	if _, err := s.Put(key, value); err != nil {
		s.log.Error("write record", "key", key, "err", err)
	}
}

// Lookup returns the canonical value stored under key and whether a record
// exists. Payloads that are not valid JSON are reported as errors.
func (s *Store) Lookup(key schema.Key) (any, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, string(key)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get record %q: %w", key, err)
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, false, fmt.Errorf("decode record %q: %w", key, err)
	}
	return s.norm.Value(key, raw), true, nil
}

// Put normalizes value, stores it under key and returns the stored value.
// On failure the normalized value is still returned alongside the error.
func (s *Store) Put(key schema.Key, value any) (any, error) {
	v := s.norm.Value(key, value)
	if err := s.PutAll(map[schema.Key]any{key: v}); err != nil {
		return v, err
	}
	return v, nil
}

// PutAll stores several records in one transaction. Values are normalized
// first; either every record is written or none is.
func (s *Store) PutAll(fields map[schema.Key]any) error {
	payloads := make(map[schema.Key]string, len(fields))
	var size int64
	for k, v := range fields {
		b, err := json.Marshal(s.norm.Value(k, v))
		if err != nil {
			return fmt.Errorf("encode record %q: %w", k, err)
		}
		payloads[k] = string(b)
		size += int64(len(k) + len(b))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		used, err := usageExcluding(tx, payloads)
		if err != nil {
			return err
		}
		if used+size > s.quota {
			return fmt.Errorf("put %d record(s): %w", len(payloads), ErrQuotaExceeded)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for k, p := range payloads {
		_, err := tx.Exec(
			`INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			string(k), p, now,
		)
		if err != nil {
			return fmt.Errorf("put record %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// usageExcluding sums the stored size of every record not about to be
// replaced.
func usageExcluding(tx *sql.Tx, replacing map[schema.Key]string) (int64, error) {
	rows, err := tx.Query(`SELECT key, LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB)) FROM records`)
	if err != nil {
		return 0, fmt.Errorf("measure records: %w", err)
	}
	defer rows.Close()

	var used int64
	for rows.Next() {
		var (
			key  string
			size int64
		)
		if err := rows.Scan(&key, &size); err != nil {
			return 0, err
		}
		if _, ok := replacing[schema.Key(key)]; ok {
			continue
		}
		used += size
	}
	return used, rows.Err()
}

// Snapshot returns every stored record decoded into generic JSON values.
// Malformed payloads are skipped and logged.
func (s *Store) Snapshot() (map[string]any, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(records))
	for _, r := range records {
		if !r.Known() {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(r.Value), &v); err != nil {
			s.log.Warn("skip malformed record", "key", r.Key, "err", err)
			continue
		}
		out[string(r.Key)] = v
	}
	return out, nil
}

// Document reads every tracked record into a canonical document.
func (s *Store) Document() (schema.Document, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return schema.Defaults(), err
	}
	return s.norm.Normalize(snap), nil
}

func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM records ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			key     string
			updated string
		)
		if err := rows.Scan(&key, &r.Value, &updated); err != nil {
			return nil, err
		}
		r.Key = schema.Key(key)
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		records = append(records, r)
	}
	return records, rows.Err()
}
