package models

import (
	"time"
)

// OpKind represents the kind of a queued outbox operation.
type OpKind string

const (
	// OpUpsertDocument pushes a document's current local state to the server.
	OpUpsertDocument OpKind = "upsert_document"
)

// IsValidOpKind checks if an operation kind is valid.
func IsValidOpKind(k OpKind) bool {
	return k == OpUpsertDocument
}

// ServerCopy is a snapshot of the authoritative remote state of a document,
// held locally only while the document is in conflict.
type ServerCopy struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Revision int64  `json:"revision"`
}

// Document is the unit of editable content.
//
// RemoteRevision is the last server-confirmed revision and is only advanced
// by the sync engine after the server accepts a conditional update. Dirty
// means local content has not been confirmed by the server. Conflict means a
// competing server write was detected; while it is set, ServerCopy holds the
// authoritative remote state and Dirty stays true.
type Document struct {
	ID             string      `json:"id"`
	CollectionID   string      `json:"collection_id,omitempty"`
	Title          string      `json:"title"`
	Content        string      `json:"content,omitempty"`
	Position       int         `json:"position,omitempty"`
	RemoteRevision int64       `json:"remote_revision"`
	Dirty          bool        `json:"dirty"`
	Conflict       bool        `json:"conflict"`
	ServerCopy     *ServerCopy `json:"server_copy,omitempty"`
	UpdatedLocalAt time.Time   `json:"updated_local_at"`
	LastSnapshotAt *time.Time  `json:"last_snapshot_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Operation is a queued intent to push a document's live local state.
// It carries no payload: the sync engine re-reads the document at drain
// time, so a later edit supersedes the payload of an earlier queued op.
type Operation struct {
	ID         string    `json:"id"`
	Kind       OpKind    `json:"kind"`
	DocumentID string    `json:"document_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Snapshot is an immutable point-in-time copy of a document's content.
type Snapshot struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Label      string    `json:"label,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Outcome classifies the result of draining one queued operation.
type Outcome string

const (
	// OutcomeSynced means the server accepted the conditional update.
	OutcomeSynced Outcome = "synced"
	// OutcomeConflict means the server's revision advanced independently.
	OutcomeConflict Outcome = "conflict"
	// OutcomeDropped means the target document no longer exists locally.
	OutcomeDropped Outcome = "dropped"
)

// SyncResult is the per-document outcome of one drained operation.
type SyncResult struct {
	DocumentID  string  `json:"document_id"`
	Outcome     Outcome `json:"outcome"`
	NewRevision int64   `json:"new_revision,omitempty"` // set for OutcomeSynced
}
