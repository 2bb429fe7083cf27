package store

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	docIDPrefix  = "doc-"
	snapIDPrefix = "snap-"
)

// NormalizeDocumentID ensures a document ID has the doc- prefix.
// Accepts bare hex IDs like "a1b2c3d4" and returns "doc-a1b2c3d4".
func NormalizeDocumentID(id string) string {
	if id == "" {
		return id
	}
	if !strings.HasPrefix(id, docIDPrefix) {
		return docIDPrefix + id
	}
	return id
}

// NewDocumentID generates a unique document ID.
func NewDocumentID() (string, error) {
	bytes := make([]byte, 4) // 8 hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return docIDPrefix + hex.EncodeToString(bytes), nil
}

// NewSnapshotID generates a unique snapshot ID.
func NewSnapshotID() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return snapIDPrefix + hex.EncodeToString(bytes), nil
}
