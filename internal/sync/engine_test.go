package sync

import (
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/outbox"
	"github.com/nathanj/quill/internal/remote"
	"github.com/nathanj/quill/internal/store"
)

type pushedUpdate struct {
	DocumentID string
	Title      string
	Content    string
	Base       int64
}

// fakeRemote is an in-memory document server with the same conditional
// update contract as the HTTP client.
type fakeRemote struct {
	mu         gosync.Mutex
	docs       map[string]remote.RemoteDocument
	offline    bool
	fetchFails bool
	updates    []pushedUpdate
	fetches    int

	// gate, when non-nil, blocks ConditionalUpdate until closed.
	gate chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]remote.RemoteDocument)}
}

func (f *fakeRemote) ConditionalUpdate(documentID, title, content string, baseRevision int64) (int64, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.offline {
		return 0, &remote.TransportError{Err: errors.New("connection refused")}
	}
	f.updates = append(f.updates, pushedUpdate{documentID, title, content, baseRevision})

	cur := f.docs[documentID]
	if cur.Revision != baseRevision {
		return 0, remote.ErrRevisionConflict
	}
	cur.Title = title
	cur.Content = content
	cur.Revision++
	f.docs[documentID] = cur
	return cur.Revision, nil
}

func (f *fakeRemote) FetchDocument(documentID string) (*remote.RemoteDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	if f.fetchFails {
		return nil, &remote.TransportError{Err: errors.New("connection refused")}
	}
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &doc, nil
}

func setupEngine(t *testing.T) (*Engine, *store.Store, *outbox.Queue, *fakeRemote) {
	t.Helper()
	s, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	q := outbox.NewQueue(s)
	f := newFakeRemote()
	return NewEngine(s, q, f), s, q, f
}

func putDoc(t *testing.T, s *store.Store, doc *models.Document) {
	t.Helper()
	now := time.Now().UTC()
	if doc.UpdatedLocalAt.IsZero() {
		doc.UpdatedLocalAt = now
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if err := s.PutDocument(doc); err != nil {
		t.Fatalf("put document: %v", err)
	}
}

func TestDrain_PushAdvancesRevisionAndClearsDirty(t *testing.T) {
	engine, s, q, _ := setupEngine(t)

	putDoc(t, s, &models.Document{ID: "doc-1", Title: "T", Content: "body", Dirty: true})
	if _, err := q.Enqueue("doc-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	results, err := engine.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != models.OutcomeSynced || results[0].NewRevision != 1 {
		t.Fatalf("results: %+v", results)
	}

	doc, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Dirty || doc.Conflict || doc.RemoteRevision != 1 {
		t.Errorf("document after sync: %+v", doc)
	}

	pending, _ := q.Pending()
	if pending != 0 {
		t.Errorf("pending: got %d, want 0", pending)
	}

	last, err := s.LastSyncedAt()
	if err != nil || last == nil {
		t.Errorf("last synced at not stamped: %v %v", last, err)
	}
}

func TestDrain_LaterEditSupersedesQueuedPayload(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	putDoc(t, s, &models.Document{ID: "doc-1", Content: "first edit", Dirty: true})
	if _, err := q.Enqueue("doc-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Second edit lands before the first op is drained.
	doc, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	doc.Content = "second edit"
	putDoc(t, s, doc)
	if _, err := q.Enqueue("doc-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := engine.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	// The stale payload must never reach the server: both pushes carry the
	// state read at drain time.
	for _, u := range f.updates {
		if u.Content != "second edit" {
			t.Errorf("server received stale content %q", u.Content)
		}
	}
	if f.docs["doc-1"].Content != "second edit" {
		t.Errorf("server content: %q", f.docs["doc-1"].Content)
	}
}

func TestDrain_ReapplyIsIdempotent(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	putDoc(t, s, &models.Document{ID: "doc-1", Content: "body", Dirty: true})
	q.Enqueue("doc-1")
	q.Enqueue("doc-1")

	results, err := engine.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	// Both ops push the same content; the second re-applies with the
	// advanced base and succeeds without a conflict.
	if len(results) != 2 {
		t.Fatalf("results: %+v", results)
	}
	for _, r := range results {
		if r.Outcome != models.OutcomeSynced {
			t.Errorf("outcome: %+v", r)
		}
	}
	if f.docs["doc-1"].Content != "body" || f.docs["doc-1"].Revision != 2 {
		t.Errorf("server state: %+v", f.docs["doc-1"])
	}
}

func TestDrain_ConflictMaterializesServerCopy(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	// Server moved ahead: another device pushed revision 4.
	f.docs["doc-1"] = remote.RemoteDocument{Title: "theirs", Content: "their text", Revision: 4}
	putDoc(t, s, &models.Document{ID: "doc-1", Title: "mine", Content: "my text", RemoteRevision: 3, Dirty: true})
	q.Enqueue("doc-1")

	results, err := engine.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != models.OutcomeConflict {
		t.Fatalf("results: %+v", results)
	}

	doc, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !doc.Conflict || !doc.Dirty {
		t.Errorf("flags: %+v", doc)
	}
	if doc.Title != "mine" || doc.Content != "my text" || doc.RemoteRevision != 3 {
		t.Errorf("local content must survive a conflict: %+v", doc)
	}
	if doc.ServerCopy == nil || doc.ServerCopy.Revision != 4 || doc.ServerCopy.Content != "their text" {
		t.Errorf("server copy: %+v", doc.ServerCopy)
	}

	pending, _ := q.Pending()
	if pending != 0 {
		t.Errorf("conflicted op should leave the queue, pending=%d", pending)
	}
}

func TestDrain_ExistingServerCopySurvivesSecondConflict(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	f.docs["doc-1"] = remote.RemoteDocument{Title: "theirs v2", Content: "newer", Revision: 5}
	putDoc(t, s, &models.Document{
		ID:             "doc-1",
		Title:          "mine",
		Content:        "my text",
		RemoteRevision: 3,
		Dirty:          true,
		Conflict:       true,
		ServerCopy:     &models.ServerCopy{Title: "theirs", Content: "their text", Revision: 4},
	})
	q.Enqueue("doc-1")

	if _, err := engine.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	doc, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// The unresolved copy still reflects state the user has not acted on.
	if doc.ServerCopy == nil || doc.ServerCopy.Revision != 4 {
		t.Errorf("held server copy was replaced: %+v", doc.ServerCopy)
	}
	if f.fetches != 0 {
		t.Errorf("fetch count: got %d, want 0", f.fetches)
	}
}

func TestDrain_ConflictFetchFailureKeepsOpQueued(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	f.docs["doc-1"] = remote.RemoteDocument{Revision: 4}
	f.fetchFails = true
	putDoc(t, s, &models.Document{ID: "doc-1", RemoteRevision: 3, Dirty: true})
	q.Enqueue("doc-1")

	results, err := engine.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results: %+v", results)
	}

	pending, _ := q.Pending()
	if pending != 1 {
		t.Errorf("op should stay queued for retry, pending=%d", pending)
	}
	doc, _ := s.GetDocument("doc-1")
	if doc.Conflict {
		t.Error("conflict must not be recorded without a server copy")
	}
}

func TestDrain_MissingDocumentDropsOp(t *testing.T) {
	engine, _, q, f := setupEngine(t)

	q.Enqueue("doc-gone")

	results, err := engine.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != models.OutcomeDropped {
		t.Fatalf("results: %+v", results)
	}
	if len(f.updates) != 0 {
		t.Errorf("stale intent must not reach the server: %+v", f.updates)
	}
	pending, _ := q.Pending()
	if pending != 0 {
		t.Errorf("pending: got %d, want 0", pending)
	}
}

func TestDrain_TransportFailureKeepsOpQueued(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	f.offline = true
	putDoc(t, s, &models.Document{ID: "doc-1", Content: "body", Dirty: true})
	q.Enqueue("doc-1")

	results, err := engine.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results: %+v", results)
	}
	pending, _ := q.Pending()
	if pending != 1 {
		t.Errorf("pending: got %d, want 1", pending)
	}
	doc, _ := s.GetDocument("doc-1")
	if !doc.Dirty || doc.RemoteRevision != 0 {
		t.Errorf("document must be untouched after transport failure: %+v", doc)
	}

	// Connectivity returns; the same op drains cleanly.
	f.offline = false
	results, err = engine.Drain()
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != models.OutcomeSynced {
		t.Fatalf("second drain results: %+v", results)
	}
}

func TestDrain_SingleFlight(t *testing.T) {
	engine, s, q, f := setupEngine(t)

	putDoc(t, s, &models.Document{ID: "doc-1", Dirty: true})
	q.Enqueue("doc-1")

	f.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := engine.Drain()
		done <- err
	}()

	// Wait for the first drain to be inside the blocked push.
	deadline := time.After(2 * time.Second)
	for !engine.draining.Load() {
		select {
		case <-deadline:
			t.Fatal("first drain never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := engine.Drain(); !errors.Is(err, ErrDrainInProgress) {
		t.Errorf("overlapping drain: got %v, want ErrDrainInProgress", err)
	}

	close(f.gate)
	if err := <-done; err != nil {
		t.Fatalf("first drain: %v", err)
	}

	// The guard releases once the drain finishes.
	if _, err := engine.Drain(); err != nil {
		t.Errorf("drain after release: %v", err)
	}
}

func TestDrain_AutoSnapshotAfterSync(t *testing.T) {
	engine, s, q, _ := setupEngine(t)
	engine.SnapshotEvery = time.Hour

	putDoc(t, s, &models.Document{ID: "doc-1", Title: "T", Content: "body", Dirty: true})
	q.Enqueue("doc-1")
	if _, err := engine.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	snaps, err := s.ListSnapshots("doc-1")
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots: got %d, want 1", len(snaps))
	}
	if snaps[0].Content != "body" {
		t.Errorf("snapshot content: %q", snaps[0].Content)
	}

	doc, _ := s.GetDocument("doc-1")
	if doc.LastSnapshotAt == nil {
		t.Fatal("last_snapshot_at not stamped")
	}

	// A second sync inside the window takes no new snapshot.
	doc.Content = "body 2"
	doc.Dirty = true
	putDoc(t, s, doc)
	q.Enqueue("doc-1")
	if _, err := engine.Drain(); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	snaps, _ = s.ListSnapshots("doc-1")
	if len(snaps) != 1 {
		t.Errorf("snapshots after second sync: got %d, want 1", len(snaps))
	}
}

func TestDrain_SnapshotDisabledByDefault(t *testing.T) {
	engine, s, q, _ := setupEngine(t)

	putDoc(t, s, &models.Document{ID: "doc-1", Dirty: true})
	q.Enqueue("doc-1")
	if _, err := engine.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	snaps, err := s.ListSnapshots("doc-1")
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("snapshots: got %d, want 0", len(snaps))
	}
}
