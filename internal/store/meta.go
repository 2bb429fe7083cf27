package store

import (
	"database/sql"
	"errors"
	"time"
)

const lastSyncKey = "last_synced_at"

// SetLastSyncedAt records the time of the last confirmed sync. Used by
// higher-level backup features and the status display.
func (s *Store) SetLastSyncedAt(t time.Time) error {
	return s.exec("set last sync", `
		INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)`,
		lastSyncKey, formatTime(t),
	)
}

// LastSyncedAt returns the last confirmed sync time, or nil if no sync has
// ever completed.
func (s *Store) LastSyncedAt() (*time.Time, error) {
	var value string
	err := s.queryRow("get last sync", `SELECT value FROM sync_meta WHERE key = ?`,
		func(row *sql.Row) error { return row.Scan(&value) }, lastSyncKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := parseTimestamp(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
