// Package outbox is a durable, ordered log of pending mutation intents.
//
// Operations are intents, not payload snapshots: the sync engine re-reads
// the document's live state at drain time, so a later edit to the same
// document supersedes the payload of an earlier still-queued operation
// without any de-duplication logic here.
package outbox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/store"
)

// Queue is the durable outbox backed by the local store.
type Queue struct {
	store *store.Store
	now   func() time.Time
}

// NewQueue creates an outbox queue over the given store.
func NewQueue(s *store.Store) *Queue {
	return &Queue{store: s, now: time.Now}
}

// newOpID builds an operation id from the enqueue time plus a random
// suffix. The zero-padded nanosecond prefix keeps lexical order equal to
// enqueue order; the suffix avoids collisions within one nanosecond.
func (q *Queue) newOpID() (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	return fmt.Sprintf("op-%019d-%s", q.now().UTC().UnixNano(), hex.EncodeToString(suffix)), nil
}

// Enqueue creates and persists a new upsert intent for the document.
func (q *Queue) Enqueue(documentID string) (*models.Operation, error) {
	if documentID == "" {
		return nil, fmt.Errorf("enqueue: empty document id")
	}

	id, err := q.newOpID()
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", documentID, err)
	}

	op := &models.Operation{
		ID:         id,
		Kind:       models.OpUpsertDocument,
		DocumentID: documentID,
		EnqueuedAt: q.now().UTC(),
	}
	if err := q.store.PutOperation(op); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", documentID, err)
	}
	return op, nil
}

// DrainSnapshot returns all currently queued operations in enqueue order.
// The queue never reorders or collapses operations.
func (q *Queue) DrainSnapshot() ([]models.Operation, error) {
	ops, err := q.store.ListOperations()
	if err != nil {
		return nil, fmt.Errorf("drain snapshot: %w", err)
	}
	return ops, nil
}

// Remove deletes a processed operation. Removing a missing id is a no-op.
func (q *Queue) Remove(opID string) error {
	if err := q.store.DeleteOperation(opID); err != nil {
		return fmt.Errorf("remove %s: %w", opID, err)
	}
	return nil
}

// Pending returns the number of queued operations.
func (q *Queue) Pending() (int64, error) {
	return q.store.CountOperations()
}
