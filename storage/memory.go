package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/docvoice/model"
)

// InMemoryStorage implements Store with maps. Data is lost when the
// process exits.
type InMemoryStorage struct {
	mu        sync.RWMutex
	sessions  map[string][]model.Turn
	updated   map[string]time.Time
	documents map[string][]DocumentRecord
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		sessions:  make(map[string][]model.Turn),
		updated:   make(map[string]time.Time),
		documents: make(map[string][]DocumentRecord),
	}
}

// Save saves conversation history for a session.
func (s *InMemoryStorage) Save(ctx context.Context, sessionID string, history []model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append([]model.Turn{}, history...)
	s.updated[sessionID] = time.Now()
	return nil
}

// Load loads conversation history for a session.
func (s *InMemoryStorage) Load(ctx context.Context, sessionID string) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Turn{}, s.sessions[sessionID]...), nil
}

// Delete deletes a session, its turns and its documents.
func (s *InMemoryStorage) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.updated, sessionID)
	delete(s.documents, sessionID)
	return nil
}

// ListSessions lists all session IDs, most recently updated first.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.updated))
	for id := range s.updated {
		sessions = append(sessions, id)
	}
	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := s.updated[sessions[i]], s.updated[sessions[j]]
		if ti.Equal(tj) {
			return sessions[i] < sessions[j]
		}
		return ti.After(tj)
	})
	return sessions, nil
}

// Exists checks if a session exists.
func (s *InMemoryStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.updated[sessionID]
	return ok, nil
}

// RecordDocument appends an ingestion record and registers the session.
func (s *InMemoryStorage) RecordDocument(ctx context.Context, rec DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now()
	}
	s.documents[rec.SessionID] = append(s.documents[rec.SessionID], rec)
	s.updated[rec.SessionID] = time.Now()
	return nil
}

// ListDocuments returns a session's ingestions, oldest first.
func (s *InMemoryStorage) ListDocuments(ctx context.Context, sessionID string) ([]DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]DocumentRecord{}, s.documents[sessionID]...), nil
}

var _ Store = (*InMemoryStorage)(nil)
