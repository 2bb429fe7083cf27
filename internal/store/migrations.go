package store

import (
	"fmt"
)

// migrations are applied in order; PRAGMA user_version tracks the last
// applied index + 1. Never edit an entry after release; append instead.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id               TEXT PRIMARY KEY,
		collection_id    TEXT NOT NULL DEFAULT '',
		title            TEXT NOT NULL DEFAULT '',
		content          TEXT NOT NULL DEFAULT '',
		position         INTEGER NOT NULL DEFAULT 0,
		remote_revision  INTEGER NOT NULL DEFAULT 0,
		dirty            INTEGER NOT NULL DEFAULT 0,
		conflict         INTEGER NOT NULL DEFAULT 0,
		server_title     TEXT,
		server_content   TEXT,
		server_revision  INTEGER,
		updated_local_at DATETIME NOT NULL,
		last_snapshot_at DATETIME,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection_id);`,

	`CREATE TABLE IF NOT EXISTS operations (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		document_id TEXT NOT NULL,
		enqueued_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE TABLE IF NOT EXISTS snapshots (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		label       TEXT NOT NULL DEFAULT '',
		title       TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document_id);`,

	`CREATE TABLE IF NOT EXISTS sync_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

// migrate applies any pending migrations.
func (s *Store) migrate() error {
	var version int
	if err := s.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.conn.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("bump user_version to %d: %w", i+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the current PRAGMA user_version.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}
