package storage

import "fmt"

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);`

const schemaMaps = `
CREATE TABLE IF NOT EXISTS maps (
	id TEXT PRIMARY KEY,
	title TEXT,
	version TEXT
);`

const schemaSegments = `
CREATE TABLE IF NOT EXISTS segments (
	id TEXT PRIMARY KEY,
	map_id TEXT NOT NULL REFERENCES maps(id) ON DELETE CASCADE,
	sort_order INTEGER NOT NULL,
	name TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0 CHECK (duration_ms >= 0),
	camera TEXT,
	auto_advance INTEGER NOT NULL DEFAULT 1,
	require_user_action INTEGER NOT NULL DEFAULT 0,
	overlay_content TEXT,
	trigger_button_text TEXT
);`

const schemaLocations = `
CREATE TABLE IF NOT EXISTS locations (
	id TEXT PRIMARY KEY,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT,
	lng REAL NOT NULL,
	lat REAL NOT NULL,
	description TEXT
);`

const schemaRouteAnimations = `
CREATE TABLE IF NOT EXISTS route_animations (
	id TEXT PRIMARY KEY,
	map_id TEXT NOT NULL,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	name TEXT,
	display_order INTEGER NOT NULL DEFAULT 0,
	start_time_ms INTEGER,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	follow_camera INTEGER NOT NULL DEFAULT 0,
	follow_camera_zoom REAL,
	path TEXT,
	created_at INTEGER NOT NULL
);`

const schemaIndexes = `
CREATE INDEX IF NOT EXISTS idx_segments_map ON segments(map_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_locations_segment ON locations(segment_id, position);
CREATE INDEX IF NOT EXISTS idx_route_animations_segment ON route_animations(map_id, segment_id);
`

type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			schemaMaps,
			schemaSegments,
			schemaLocations,
			schemaRouteAnimations,
		},
	},
	{
		version:    2,
		statements: []string{schemaIndexes},
	},
}

// MigrateSchema applies every migration newer than the recorded schema version.
func (s *Store) MigrateSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	if _, err := s.db.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("storage: create schema_migrations table: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return err
		}
		current = m.version
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("storage: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) applyMigration(m migration) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: start migration %d: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, statement := range m.statements {
		if _, err = tx.Exec(statement); err != nil {
			return fmt.Errorf("storage: migration %d failed: %w", m.version, err)
		}
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("storage: record migration %d: %w", m.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit migration %d: %w", m.version, err)
	}
	return nil
}
