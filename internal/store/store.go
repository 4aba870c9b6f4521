package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sadopc/studytrack/internal/schema"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

// ErrQuotaExceeded is returned by writes that would grow the replica past
// its configured capacity.
var ErrQuotaExceeded = errors.New("local storage quota exceeded")

// Store is the local replica: one JSON record per schema key in SQLite.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	quota int64
	norm  schema.Normalizer
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithQuota bounds the total size in bytes of all stored records.
// Zero disables the bound.
func WithQuota(bytes int64) Option {
	return func(s *Store) { s.quota = bytes }
}

func WithNormalizer(n schema.Normalizer) Option {
	return func(s *Store) { s.norm = n }
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:   db,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		norm: schema.DefaultNormalizer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(opts ...Option) (*Store, error) {
	return New(":memory:", opts...)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS records (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// migrateV2 seeds the records every fresh replica starts with.
func (s *Store) migrateV2() error {
	const seed = `
	INSERT OR IGNORE INTO records (key, value) VALUES
		('currentStatsPeriod', '"today"'),
		('theme',              '"light"');
	`
	_, err := s.db.Exec(seed)
	return err
}

// DefaultDBPath returns ~/.config/studytrack/studytrack.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "studytrack", "studytrack.db"), nil
}
