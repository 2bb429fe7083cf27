package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nathanj/quill/internal/models"
)

// PutSnapshot persists an immutable snapshot. Snapshots are never mutated
// or deleted by the sync engine.
func (s *Store) PutSnapshot(snap *models.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("put snapshot: empty id")
	}
	return s.exec("put snapshot", `
		INSERT OR REPLACE INTO snapshots (id, document_id, label, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DocumentID, snap.Label, snap.Title, snap.Content,
		formatTime(snap.CreatedAt),
	)
}

// GetSnapshot loads a snapshot by id. Returns ErrNotFound if absent.
func (s *Store) GetSnapshot(id string) (*models.Snapshot, error) {
	var snap models.Snapshot
	var createdAt string

	err := s.queryRow("get snapshot", `
		SELECT id, document_id, label, title, content, created_at
		FROM snapshots WHERE id = ?`,
		func(row *sql.Row) error {
			return row.Scan(&snap.ID, &snap.DocumentID, &snap.Label,
				&snap.Title, &snap.Content, &createdAt)
		}, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if snap.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// DeleteSnapshot removes a snapshot record. Only explicit user action calls
// this; the sync engine never deletes snapshots. Missing ids are a no-op.
func (s *Store) DeleteSnapshot(id string) error {
	return s.exec("delete snapshot", `DELETE FROM snapshots WHERE id = ?`, id)
}

// ListSnapshots returns snapshots for a document, most recent first.
func (s *Store) ListSnapshots(documentID string) ([]models.Snapshot, error) {
	rows, err := s.query("list snapshots", `
		SELECT id, document_id, label, title, content, created_at
		FROM snapshots WHERE document_id = ? ORDER BY created_at DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.DocumentID, &snap.Label,
			&snap.Title, &snap.Content, &createdAt); err != nil {
			return nil, &StoreError{Op: "list snapshots", Err: err}
		}
		if snap.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list snapshots", Err: err}
	}
	return snaps, nil
}
