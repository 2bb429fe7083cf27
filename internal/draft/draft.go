// Package draft captures local edits into the store, marking documents
// dirty and stamping local edit time. It never talks to the network and
// never enqueues sync work itself.
package draft

import (
	"errors"
	"fmt"
	"time"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/store"
)

// Patch holds the fields of a document a caller wants to change. Nil
// pointers leave the stored value untouched.
type Patch struct {
	Title        *string
	Content      *string
	CollectionID *string
	Position     *int
}

// Manager writes drafts into the local store.
type Manager struct {
	store *store.Store
	now   func() time.Time
}

// NewManager creates a draft manager over the given store.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s, now: time.Now}
}

// SaveDraft merges the patch onto the stored document, or onto a fresh
// empty document if none exists for the id. The result is always dirty and
// stamped with the local edit time. An active conflict and its server copy
// are preserved untouched: resolution is explicit, editing never clears it.
//
// SaveDraft does not enqueue a sync operation; callers that want eventual
// delivery enqueue separately.
func (m *Manager) SaveDraft(documentID string, patch Patch) (*models.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("save draft: empty document id")
	}

	doc, err := m.store.GetDocument(documentID)
	if errors.Is(err, store.ErrNotFound) {
		doc = &models.Document{ID: documentID, CreatedAt: m.now().UTC()}
	} else if err != nil {
		return nil, fmt.Errorf("save draft %s: %w", documentID, err)
	}

	if patch.Title != nil {
		doc.Title = *patch.Title
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	if patch.CollectionID != nil {
		doc.CollectionID = *patch.CollectionID
	}
	if patch.Position != nil {
		doc.Position = *patch.Position
	}

	doc.Dirty = true
	doc.UpdatedLocalAt = m.now().UTC()

	if err := m.store.PutDocument(doc); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", documentID, err)
	}
	return doc, nil
}
