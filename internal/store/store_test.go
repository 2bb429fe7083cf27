package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nathanj/quill/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MissingDatabase(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error opening missing database")
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	s := setupStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	doc := &models.Document{
		ID:             "doc-abc12345",
		CollectionID:   "col-1",
		Title:          "Notes",
		Content:        "# Hello",
		Position:       3,
		RemoteRevision: 7,
		Dirty:          true,
		UpdatedLocalAt: now,
		CreatedAt:      now,
	}
	if err := s.PutDocument(doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetDocument("doc-abc12345")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Notes" || got.Content != "# Hello" || got.CollectionID != "col-1" {
		t.Errorf("fields mismatch: %+v", got)
	}
	if got.RemoteRevision != 7 || !got.Dirty || got.Conflict {
		t.Errorf("flags mismatch: %+v", got)
	}
	if got.ServerCopy != nil {
		t.Errorf("server copy should be nil, got %+v", got.ServerCopy)
	}
	if !got.UpdatedLocalAt.Equal(now) {
		t.Errorf("updated_local_at: got %v, want %v", got.UpdatedLocalAt, now)
	}
}

func TestDocument_ServerCopyNullability(t *testing.T) {
	s := setupStore(t)

	now := time.Now().UTC()
	doc := &models.Document{
		ID:             "doc-1",
		Title:          "local",
		Dirty:          true,
		Conflict:       true,
		ServerCopy:     &models.ServerCopy{Title: "server", Content: "theirs", Revision: 4},
		UpdatedLocalAt: now,
		CreatedAt:      now,
	}
	if err := s.PutDocument(doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ServerCopy == nil || got.ServerCopy.Revision != 4 || got.ServerCopy.Content != "theirs" {
		t.Fatalf("server copy: got %+v", got.ServerCopy)
	}

	// Clearing the copy must null all three columns
	got.Conflict = false
	got.ServerCopy = nil
	if err := s.PutDocument(got); err != nil {
		t.Fatalf("put cleared: %v", err)
	}
	got2, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get cleared: %v", err)
	}
	if got2.ServerCopy != nil {
		t.Errorf("server copy should be cleared, got %+v", got2.ServerCopy)
	}
}

func TestDocument_PutIsIdempotentReplace(t *testing.T) {
	s := setupStore(t)

	now := time.Now().UTC()
	doc := &models.Document{ID: "doc-1", Title: "v1", UpdatedLocalAt: now, CreatedAt: now}
	if err := s.PutDocument(doc); err != nil {
		t.Fatalf("put v1: %v", err)
	}
	doc.Title = "v2"
	if err := s.PutDocument(doc); err != nil {
		t.Fatalf("put v2: %v", err)
	}

	got, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "v2" {
		t.Errorf("title: got %q, want v2", got.Title)
	}

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("documents: got %d, want 1", len(docs))
	}
}

func TestDocument_NotFoundAndDelete(t *testing.T) {
	s := setupStore(t)

	if _, err := s.GetDocument("doc-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: got %v, want ErrNotFound", err)
	}

	now := time.Now().UTC()
	if err := s.PutDocument(&models.Document{ID: "doc-1", UpdatedLocalAt: now, CreatedAt: now}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.DeleteDocument("doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument("doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op
	if err := s.DeleteDocument("doc-1"); err != nil {
		t.Fatalf("delete again: %v", err)
	}
}

func TestOperations_OrderByID(t *testing.T) {
	s := setupStore(t)

	base := time.Now().UTC()
	ids := []string{
		"op-0000000000000000003-aa",
		"op-0000000000000000001-bb",
		"op-0000000000000000002-cc",
	}
	for i, id := range ids {
		op := &models.Operation{
			ID:         id,
			Kind:       models.OpUpsertDocument,
			DocumentID: "doc-1",
			EnqueuedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.PutOperation(op); err != nil {
			t.Fatalf("put op %s: %v", id, err)
		}
	}

	ops, err := s.ListOperations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("ops: got %d, want 3", len(ops))
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].ID >= ops[i].ID {
			t.Errorf("ops not in id order: %s before %s", ops[i-1].ID, ops[i].ID)
		}
	}

	if err := s.DeleteOperation(ops[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, err := s.CountOperations()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count: got %d, want 2", count)
	}
}

func TestOperations_InvalidKindRejected(t *testing.T) {
	s := setupStore(t)

	op := &models.Operation{ID: "op-1", Kind: "delete_document", DocumentID: "doc-1", EnqueuedAt: time.Now()}
	if err := s.PutOperation(op); err == nil {
		t.Fatal("expected error for invalid op kind")
	}
}

func TestSnapshots_ListMostRecentFirst(t *testing.T) {
	s := setupStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		snap := &models.Snapshot{
			ID:         string(rune('a'+i)) + "-snap",
			DocumentID: "doc-1",
			Title:      "t",
			Content:    "c",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.PutSnapshot(snap); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
	}

	snaps, err := s.ListSnapshots("doc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("snapshots: got %d, want 3", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].CreatedAt.Before(snaps[i].CreatedAt) {
			t.Errorf("snapshots not most-recent-first at %d", i)
		}
	}

	other, err := s.ListSnapshots("doc-2")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("doc-2 snapshots: got %d, want 0", len(other))
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := setupStore(t)

	// Two in-process writers, as in watch mode where the ingest loop and
	// the scheduler's drain goroutine both write. Writes must serialize on
	// the lock file without sharing locker state.
	const perWriter = 50
	now := time.Now().UTC()

	var wg sync.WaitGroup
	errs := make(chan error, 2*perWriter)
	for _, id := range []string{"doc-a", "doc-b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				doc := &models.Document{
					ID:             id,
					Title:          fmt.Sprintf("rev %d", i),
					UpdatedLocalAt: now,
					CreatedAt:      now,
				}
				if err := s.PutDocument(doc); err != nil {
					errs <- err
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent put: %v", err)
	}

	for _, id := range []string{"doc-a", "doc-b"} {
		doc, err := s.GetDocument(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if doc.Title != fmt.Sprintf("rev %d", perWriter-1) {
			t.Errorf("%s title: got %q", id, doc.Title)
		}
	}
}

func TestDeleteSnapshot(t *testing.T) {
	s := setupStore(t)

	snap := &models.Snapshot{
		ID:         "snap-1",
		DocumentID: "doc-1",
		Title:      "t",
		Content:    "c",
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.PutSnapshot(snap); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.DeleteSnapshot("snap-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSnapshot("snap-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op
	if err := s.DeleteSnapshot("snap-1"); err != nil {
		t.Fatalf("delete again: %v", err)
	}
}

func TestLastSyncedAt(t *testing.T) {
	s := setupStore(t)

	got, err := s.LastSyncedAt()
	if err != nil {
		t.Fatalf("get unset: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil before first sync, got %v", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.SetLastSyncedAt(now); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = s.LastSyncedAt()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || !got.Equal(now) {
		t.Errorf("last sync: got %v, want %v", got, now)
	}
}

func TestMigrate_Reentrant(t *testing.T) {
	dir := t.TempDir()
	s, err := Initialize(dir)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	v1, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	s.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v2, err := s2.SchemaVersion()
	if err != nil {
		t.Fatalf("version after reopen: %v", err)
	}
	if v1 != v2 || v1 != len(migrations) {
		t.Errorf("schema version: got %d then %d, want %d", v1, v2, len(migrations))
	}
}
