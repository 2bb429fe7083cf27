// Package sync drains the outbox against the remote document server using
// revision-based optimistic concurrency, and exposes the two conflict
// resolution actions plus the drain scheduler.
package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/outbox"
	"github.com/nathanj/quill/internal/remote"
	"github.com/nathanj/quill/internal/store"
)

// ErrDrainInProgress is returned when Drain is invoked while a previous
// drain is still in flight. Triggers that hit it coalesce: the in-flight
// drain already covers the queued work.
var ErrDrainInProgress = errors.New("drain already in progress")

// RemoteAdapter is the server-side primitive surface the engine consumes.
// ConditionalUpdate applies the write and returns the new revision iff the
// server's stored revision still equals baseRevision; otherwise it returns
// remote.ErrRevisionConflict without mutating server state.
type RemoteAdapter interface {
	ConditionalUpdate(documentID, title, content string, baseRevision int64) (int64, error)
	FetchDocument(documentID string) (*remote.RemoteDocument, error)
}

// Engine drains queued operations strictly in enqueue order, one at a time.
type Engine struct {
	store  *store.Store
	queue  *outbox.Queue
	remote RemoteAdapter

	// SnapshotEvery enables auto-snapshots after a successful sync when the
	// document's last snapshot is older than this. Zero disables.
	SnapshotEvery time.Duration

	draining atomic.Bool
	now      func() time.Time
}

// NewEngine creates a sync engine over the given store, queue and adapter.
func NewEngine(s *store.Store, q *outbox.Queue, r RemoteAdapter) *Engine {
	return &Engine{store: s, queue: q, remote: r, now: time.Now}
}

// Drain processes all currently queued operations and returns one result
// per determined outcome. Operations that hit a transport failure stay
// queued and produce no result; they are retried on the next drain.
//
// Only one drain may be in flight at a time: overlapping calls return
// ErrDrainInProgress without touching the queue. Store errors abort the
// drain and propagate; outcomes determined before the failure are returned
// alongside the error.
func (e *Engine) Drain() ([]models.SyncResult, error) {
	if !e.draining.CompareAndSwap(false, true) {
		return nil, ErrDrainInProgress
	}
	defer e.draining.Store(false)

	ops, err := e.queue.DrainSnapshot()
	if err != nil {
		return nil, err
	}

	var results []models.SyncResult
	for _, op := range ops {
		res, err := e.processOne(op)
		if err != nil {
			return results, err
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

// processOne determines the outcome of a single operation. A nil result
// with nil error means the op stays queued (transport failure).
func (e *Engine) processOne(op models.Operation) (*models.SyncResult, error) {
	doc, err := e.store.GetDocument(op.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		// Stale intent: the document was deleted after enqueue.
		if err := e.queue.Remove(op.ID); err != nil {
			return nil, err
		}
		return &models.SyncResult{DocumentID: op.DocumentID, Outcome: models.OutcomeDropped}, nil
	}
	if err != nil {
		return nil, err
	}

	newRev, err := e.remote.ConditionalUpdate(doc.ID, doc.Title, doc.Content, doc.RemoteRevision)
	switch {
	case err == nil:
		return e.commitSynced(op, doc, newRev)
	case errors.Is(err, remote.ErrRevisionConflict):
		return e.materializeConflict(op, doc)
	default:
		// Transport (or auth) failure: leave the op queued, no outcome.
		slog.Debug("sync: push failed, will retry", "doc", doc.ID, "err", err)
		return nil, nil
	}
}

// commitSynced records a confirmed server acceptance: revision advances,
// flags clear, the op leaves the queue.
func (e *Engine) commitSynced(op models.Operation, doc *models.Document, newRev int64) (*models.SyncResult, error) {
	doc.RemoteRevision = newRev
	doc.Dirty = false
	doc.Conflict = false
	doc.ServerCopy = nil
	e.maybeAutoSnapshot(doc)

	if err := e.store.PutDocument(doc); err != nil {
		return nil, err
	}
	if err := e.queue.Remove(op.ID); err != nil {
		return nil, err
	}
	if err := e.store.SetLastSyncedAt(e.now().UTC()); err != nil {
		return nil, err
	}

	slog.Debug("sync: pushed", "doc", doc.ID, "revision", newRev)
	return &models.SyncResult{DocumentID: doc.ID, Outcome: models.OutcomeSynced, NewRevision: newRev}, nil
}

// materializeConflict fetches the authoritative copy and stores it next to
// the untouched local content so the user's unsent edits are preserved. An
// already-recorded unresolved conflict keeps its server copy: it still
// reflects a state the user has not acted on.
func (e *Engine) materializeConflict(op models.Operation, doc *models.Document) (*models.SyncResult, error) {
	if doc.ServerCopy == nil {
		srv, err := e.remote.FetchDocument(doc.ID)
		if err != nil {
			// Conflict is certain but not yet materializable; keep the op
			// queued so the fetch is retried next drain.
			slog.Debug("sync: conflict fetch failed, will retry", "doc", doc.ID, "err", err)
			return nil, nil
		}
		doc.ServerCopy = &models.ServerCopy{
			Title:    srv.Title,
			Content:  srv.Content,
			Revision: srv.Revision,
		}
	}

	doc.Conflict = true
	doc.Dirty = true

	if err := e.store.PutDocument(doc); err != nil {
		return nil, err
	}
	if err := e.queue.Remove(op.ID); err != nil {
		return nil, err
	}

	slog.Info("sync: conflict detected", "doc", doc.ID, "server_revision", doc.ServerCopy.Revision)
	return &models.SyncResult{DocumentID: doc.ID, Outcome: models.OutcomeConflict}, nil
}

// maybeAutoSnapshot takes a post-sync snapshot when the last one is older
// than SnapshotEvery. Snapshot failures are logged, never fatal: the sync
// outcome is already committed and the policy retries after the next sync.
func (e *Engine) maybeAutoSnapshot(doc *models.Document) {
	if e.SnapshotEvery <= 0 {
		return
	}
	now := e.now().UTC()
	if doc.LastSnapshotAt != nil && now.Sub(*doc.LastSnapshotAt) < e.SnapshotEvery {
		return
	}

	id, err := store.NewSnapshotID()
	if err != nil {
		slog.Warn("sync: snapshot id", "doc", doc.ID, "err", err)
		return
	}
	snap := &models.Snapshot{
		ID:         id,
		DocumentID: doc.ID,
		Label:      fmt.Sprintf("auto %s", now.Format("2006-01-02 15:04")),
		Title:      doc.Title,
		Content:    doc.Content,
		CreatedAt:  now,
	}
	if err := e.store.PutSnapshot(snap); err != nil {
		slog.Warn("sync: auto-snapshot", "doc", doc.ID, "err", err)
		return
	}
	doc.LastSnapshotAt = &now
}
