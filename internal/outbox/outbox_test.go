package outbox

import (
	"testing"
	"time"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/store"
)

func setupQueue(t *testing.T) *Queue {
	t.Helper()
	s, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewQueue(s)
}

func TestEnqueue_PreservesOrder(t *testing.T) {
	q := setupQueue(t)

	// Force strictly increasing timestamps so id order is deterministic
	// even if the wall clock does not tick between calls.
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	q.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	docs := []string{"doc-c", "doc-a", "doc-b", "doc-a"}
	for _, id := range docs {
		if _, err := q.Enqueue(id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	ops, err := q.DrainSnapshot()
	if err != nil {
		t.Fatalf("drain snapshot: %v", err)
	}
	if len(ops) != len(docs) {
		t.Fatalf("ops: got %d, want %d", len(ops), len(docs))
	}
	for i, op := range ops {
		if op.DocumentID != docs[i] {
			t.Errorf("position %d: got %s, want %s", i, op.DocumentID, docs[i])
		}
		if op.Kind != models.OpUpsertDocument {
			t.Errorf("position %d: kind %s", i, op.Kind)
		}
	}
}

func TestEnqueue_IntentOnlyNoPayload(t *testing.T) {
	q := setupQueue(t)

	op, err := q.Enqueue("doc-1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// The operation references the document, nothing more; the payload is
	// re-read from the store at drain time.
	if op.DocumentID != "doc-1" || op.Kind != models.OpUpsertDocument {
		t.Errorf("operation: %+v", op)
	}
	if op.EnqueuedAt.IsZero() {
		t.Error("enqueued_at should be stamped")
	}
}

func TestEnqueue_DuplicatesAllowed(t *testing.T) {
	q := setupQueue(t)

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue("doc-1"); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	pending, err := q.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 3 {
		t.Errorf("pending: got %d, want 3", pending)
	}
}

func TestRemove(t *testing.T) {
	q := setupQueue(t)

	op, err := q.Enqueue("doc-1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Remove(op.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	pending, err := q.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending: got %d, want 0", pending)
	}

	// Removing an unknown id is a no-op.
	if err := q.Remove("op-unknown"); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
}

func TestEnqueue_EmptyIDRejected(t *testing.T) {
	q := setupQueue(t)

	if _, err := q.Enqueue(""); err == nil {
		t.Fatal("expected error for empty document id")
	}
}
