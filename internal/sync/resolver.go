package sync

import (
	"fmt"
	"time"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/store"
)

// ErrNotConflicted is returned by resolver actions when the target document
// has no unresolved conflict.
var ErrNotConflicted = fmt.Errorf("document is not in conflict")

// Resolver exposes the two conflict resolution actions. Both require the
// target document to currently be in conflict.
type Resolver struct {
	store *store.Store
	now   func() time.Time
}

// NewResolver creates a resolver over the given store.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s, now: time.Now}
}

// ReloadFromServer adopts the held server copy: local title/content are
// replaced, the revision jumps to the server copy's revision, and the
// conflict/dirty flags clear. Local unsynced edits are discarded.
func (r *Resolver) ReloadFromServer(documentID string) (*models.Document, error) {
	doc, err := r.store.GetDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", documentID, err)
	}
	if !doc.Conflict || doc.ServerCopy == nil {
		return nil, fmt.Errorf("reload %s: %w", documentID, ErrNotConflicted)
	}

	doc.Title = doc.ServerCopy.Title
	doc.Content = doc.ServerCopy.Content
	doc.RemoteRevision = doc.ServerCopy.Revision
	doc.Conflict = false
	doc.Dirty = false
	doc.ServerCopy = nil
	doc.UpdatedLocalAt = r.now().UTC()

	if err := r.store.PutDocument(doc); err != nil {
		return nil, fmt.Errorf("reload %s: %w", documentID, err)
	}
	return doc, nil
}

// DuplicateLocal forks the conflicting local content into a brand-new
// document with a fresh id and revision 0. The original document and its
// server copy are left exactly as they were; the user resolves the
// original separately if desired.
func (r *Resolver) DuplicateLocal(documentID, collectionID string) (*models.Document, error) {
	doc, err := r.store.GetDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", documentID, err)
	}
	if !doc.Conflict || doc.ServerCopy == nil {
		return nil, fmt.Errorf("duplicate %s: %w", documentID, ErrNotConflicted)
	}

	newID, err := store.NewDocumentID()
	if err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", documentID, err)
	}

	now := r.now().UTC()
	dup := &models.Document{
		ID:             newID,
		CollectionID:   collectionID,
		Title:          doc.Title,
		Content:        doc.Content,
		Position:       doc.Position,
		RemoteRevision: 0,
		Dirty:          true, // never confirmed by the server
		UpdatedLocalAt: now,
		CreatedAt:      now,
	}
	if err := r.store.PutDocument(dup); err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", documentID, err)
	}
	return dup, nil
}
