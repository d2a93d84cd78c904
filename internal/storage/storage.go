// Package storage persists story maps in SQLite and serves route animations
// to the playback engine.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/storyplay/internal/logger"
)

// ErrNotFound is returned when a map or record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is a SQLite-backed story store.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Options tunes the SQLite connection.
type Options struct {
	BusyTimeout time.Duration
	Synchronous string
	CacheSize   int
}

// Open opens (and migrates) the database at path. ":memory:" is accepted.
func Open(path string, options Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection and a :memory: database exists only on the
	// connection that created it.
	db.SetMaxOpenConns(1)

	synchronous := options.Synchronous
	if synchronous == "" {
		synchronous = "NORMAL"
	}
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", synchronous),
		fmt.Sprintf("PRAGMA busy_timeout=%d", int(options.BusyTimeout/time.Millisecond)),
		"PRAGMA temp_store=MEMORY",
	}
	if options.CacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=%d", options.CacheSize))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, log: logger.Named("storage")}
	if err := store.MigrateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	store.log.Debug("database opened", zap.String("path", path))
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
