// Package storage persists conversation turns and ingestion history.
//
// Backends hide behind ConversationStorage and DocumentStorage so a
// session can run against memory in tests and SQLite on disk.
package storage

import (
	"context"
	"time"

	"github.com/richinex/docvoice/model"
)

// ConversationStorage stores the turn history of sessions.
type ConversationStorage interface {
	// Save replaces the stored history of a session.
	Save(ctx context.Context, sessionID string, history []model.Turn) error

	// Load returns the history of a session.
	// Returns an empty slice (not nil) if the session doesn't exist.
	// Returns error only for storage failures, not missing sessions.
	Load(ctx context.Context, sessionID string) ([]model.Turn, error)

	// Delete removes a session and everything recorded for it.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs, most recently updated first.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// DocumentRecord notes one successful ingestion.
type DocumentRecord struct {
	SessionID      string
	Name           string
	Fingerprint    uint64
	Chunks         int
	EmbeddingModel string
	IngestedAt     time.Time
}

// DocumentStorage keeps the ingestion history of sessions.
type DocumentStorage interface {
	// RecordDocument appends an ingestion record.
	RecordDocument(ctx context.Context, rec DocumentRecord) error

	// ListDocuments returns a session's ingestions, oldest first.
	ListDocuments(ctx context.Context, sessionID string) ([]DocumentRecord, error)
}

// Store is a backend providing both histories.
type Store interface {
	ConversationStorage
	DocumentStorage
}
