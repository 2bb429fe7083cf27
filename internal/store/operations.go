package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nathanj/quill/internal/models"
)

// PutOperation persists a queued operation.
func (s *Store) PutOperation(op *models.Operation) error {
	if op.ID == "" {
		return fmt.Errorf("put operation: empty id")
	}
	if !models.IsValidOpKind(op.Kind) {
		return fmt.Errorf("put operation: invalid kind %q", op.Kind)
	}
	return s.exec("put operation", `
		INSERT OR REPLACE INTO operations (id, kind, document_id, enqueued_at)
		VALUES (?, ?, ?, ?)`,
		op.ID, string(op.Kind), op.DocumentID, formatTime(op.EnqueuedAt),
	)
}

// GetOperation loads an operation by id. Returns ErrNotFound if absent.
func (s *Store) GetOperation(id string) (*models.Operation, error) {
	var op models.Operation
	var kind, enqueuedAt string

	err := s.queryRow("get operation", `
		SELECT id, kind, document_id, enqueued_at FROM operations WHERE id = ?`,
		func(row *sql.Row) error {
			return row.Scan(&op.ID, &kind, &op.DocumentID, &enqueuedAt)
		}, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	op.Kind = models.OpKind(kind)
	if op.EnqueuedAt, err = parseTimestamp(enqueuedAt); err != nil {
		return nil, fmt.Errorf("operation %s: %w", id, err)
	}
	return &op, nil
}

// ListOperations returns all queued operations ordered by id. Operation ids
// start with a zero-padded enqueue timestamp, so id order is enqueue order.
func (s *Store) ListOperations() ([]models.Operation, error) {
	rows, err := s.query("list operations", `
		SELECT id, kind, document_id, enqueued_at FROM operations ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var op models.Operation
		var kind, enqueuedAt string
		if err := rows.Scan(&op.ID, &kind, &op.DocumentID, &enqueuedAt); err != nil {
			return nil, &StoreError{Op: "list operations", Err: err}
		}
		op.Kind = models.OpKind(kind)
		if op.EnqueuedAt, err = parseTimestamp(enqueuedAt); err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.ID, err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list operations", Err: err}
	}
	return ops, nil
}

// DeleteOperation removes a processed operation. Missing ids are a no-op.
func (s *Store) DeleteOperation(id string) error {
	return s.exec("delete operation", `DELETE FROM operations WHERE id = ?`, id)
}

// CountOperations returns the number of queued operations.
func (s *Store) CountOperations() (int64, error) {
	var count int64
	err := s.queryRow("count operations", `SELECT COUNT(*) FROM operations`,
		func(row *sql.Row) error { return row.Scan(&count) })
	return count, err
}
