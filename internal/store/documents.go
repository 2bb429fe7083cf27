package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nathanj/quill/internal/models"
)

// PutDocument inserts or replaces a document record. The write is atomic:
// it either fully commits or leaves prior state unchanged.
func (s *Store) PutDocument(doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("put document: empty id")
	}

	var serverTitle, serverContent sql.NullString
	var serverRevision sql.NullInt64
	if doc.ServerCopy != nil {
		serverTitle = sql.NullString{String: doc.ServerCopy.Title, Valid: true}
		serverContent = sql.NullString{String: doc.ServerCopy.Content, Valid: true}
		serverRevision = sql.NullInt64{Int64: doc.ServerCopy.Revision, Valid: true}
	}

	var lastSnapshot sql.NullString
	if doc.LastSnapshotAt != nil {
		lastSnapshot = sql.NullString{String: formatTime(*doc.LastSnapshotAt), Valid: true}
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = doc.UpdatedLocalAt
	}

	return s.exec("put document", `
		INSERT OR REPLACE INTO documents
			(id, collection_id, title, content, position, remote_revision,
			 dirty, conflict, server_title, server_content, server_revision,
			 updated_local_at, last_snapshot_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.CollectionID, doc.Title, doc.Content, doc.Position,
		doc.RemoteRevision, boolToInt(doc.Dirty), boolToInt(doc.Conflict),
		serverTitle, serverContent, serverRevision,
		formatTime(doc.UpdatedLocalAt), lastSnapshot, formatTime(createdAt),
	)
}

// GetDocument loads a document by id. Returns ErrNotFound if absent.
func (s *Store) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	var dirty, conflict int
	var serverTitle, serverContent sql.NullString
	var serverRevision sql.NullInt64
	var updatedAt, createdAt string
	var lastSnapshot sql.NullString

	err := s.queryRow("get document", `
		SELECT id, collection_id, title, content, position, remote_revision,
		       dirty, conflict, server_title, server_content, server_revision,
		       updated_local_at, last_snapshot_at, created_at
		FROM documents WHERE id = ?`,
		func(row *sql.Row) error {
			return row.Scan(&doc.ID, &doc.CollectionID, &doc.Title, &doc.Content,
				&doc.Position, &doc.RemoteRevision, &dirty, &conflict,
				&serverTitle, &serverContent, &serverRevision,
				&updatedAt, &lastSnapshot, &createdAt)
		}, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Dirty = dirty != 0
	doc.Conflict = conflict != 0
	if serverRevision.Valid {
		doc.ServerCopy = &models.ServerCopy{
			Title:    serverTitle.String,
			Content:  serverContent.String,
			Revision: serverRevision.Int64,
		}
	}

	if doc.UpdatedLocalAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	if doc.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	if lastSnapshot.Valid {
		t, err := parseTimestamp(lastSnapshot.String)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		doc.LastSnapshotAt = &t
	}

	return &doc, nil
}

// ListDocuments returns all documents. Row order carries no meaning;
// callers that need ordering sort explicitly.
func (s *Store) ListDocuments() ([]models.Document, error) {
	rows, err := s.query("list documents", `SELECT id FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &StoreError{Op: "list documents", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list documents", Err: err}
	}

	docs := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetDocument(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // deleted between queries
			}
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// DeleteDocument removes a document record. Deleting a missing id is a no-op.
func (s *Store) DeleteDocument(id string) error {
	return s.exec("delete document", `DELETE FROM documents WHERE id = ?`, id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
