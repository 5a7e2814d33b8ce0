package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/richinex/docvoice/model"
)

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewInMemoryStorage())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSqliteInMemory()
		if err != nil {
			t.Fatalf("Failed to create storage: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestSaveAndLoad(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		turns := []model.Turn{model.UserTurn("Hello"), model.AssistantTurn("Hi there")}

		if err := s.Save(ctx, "test-session", turns); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := s.Load(ctx, "test-session")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(loaded))
		}
		if loaded[0] != turns[0] || loaded[1] != turns[1] {
			t.Errorf("round trip changed turns: %+v", loaded)
		}
	})
}

func TestLoadNonexistentSession(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		loaded, err := s.Load(context.Background(), "nonexistent")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded == nil || len(loaded) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", loaded)
		}
	})
}

func TestSaveOverwritesHistory(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Save(ctx, "s", []model.Turn{model.UserTurn("First")}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		second := []model.Turn{model.UserTurn("Second"), model.AssistantTurn("Response")}
		if err := s.Save(ctx, "s", second); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := s.Load(ctx, "s")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded) != 2 || loaded[0].Content != "Second" {
			t.Errorf("expected second history, got %+v", loaded)
		}
	})
}

func TestSavedHistoryIsCopied(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		turns := []model.Turn{model.UserTurn("original")}
		if err := s.Save(ctx, "s", turns); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		turns[0].Content = "mutated"

		loaded, _ := s.Load(ctx, "s")
		if loaded[0].Content != "original" {
			t.Errorf("caller mutation leaked into storage: %q", loaded[0].Content)
		}
	})
}

func TestDeleteRemovesSessionAndDocuments(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Save(ctx, "s", []model.Turn{model.UserTurn("Test")}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := s.RecordDocument(ctx, DocumentRecord{SessionID: "s", Name: "a.pdf", Chunks: 3}); err != nil {
			t.Fatalf("RecordDocument failed: %v", err)
		}

		exists, err := s.Exists(ctx, "s")
		if err != nil || !exists {
			t.Fatalf("expected session to exist, got %v, %v", exists, err)
		}
		if err := s.Delete(ctx, "s"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		exists, err = s.Exists(ctx, "s")
		if err != nil || exists {
			t.Errorf("expected session gone, got %v, %v", exists, err)
		}
		turns, _ := s.Load(ctx, "s")
		docs, _ := s.ListDocuments(ctx, "s")
		if len(turns) != 0 || len(docs) != 0 {
			t.Errorf("expected cascade, got %d turns and %d documents", len(turns), len(docs))
		}
	})
}

func TestListSessions(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		turn := []model.Turn{model.UserTurn("Test")}
		if err := s.Save(ctx, "session-1", turn); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := s.Save(ctx, "session-2", turn); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		sessions, err := s.ListSessions(ctx)
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(sessions))
		}
	})
}

func TestRecordAndListDocuments(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		first := DocumentRecord{
			SessionID:      "s",
			Name:           "report.pdf",
			Fingerprint:    0xfeedfacecafebeef, // above MaxInt64
			Chunks:         12,
			EmbeddingModel: "text-embedding-3-small",
			IngestedAt:     at,
		}
		second := first
		second.Name = "appendix.pdf"
		second.Fingerprint = 42
		second.IngestedAt = at.Add(time.Minute)

		for _, rec := range []DocumentRecord{first, second} {
			if err := s.RecordDocument(ctx, rec); err != nil {
				t.Fatalf("RecordDocument failed: %v", err)
			}
		}

		docs, err := s.ListDocuments(ctx, "s")
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
		if docs[0].Name != "report.pdf" || docs[1].Name != "appendix.pdf" {
			t.Errorf("expected ingestion order, got %q then %q", docs[0].Name, docs[1].Name)
		}
		if docs[0].Fingerprint != first.Fingerprint || docs[0].Chunks != 12 || docs[0].EmbeddingModel != first.EmbeddingModel {
			t.Errorf("record changed in storage: %+v", docs[0])
		}
		if !docs[0].IngestedAt.Equal(at) {
			t.Errorf("expected %v, got %v", at, docs[0].IngestedAt)
		}

		exists, _ := s.Exists(ctx, "s")
		if !exists {
			t.Error("recording a document should register the session")
		}
	})
}

func TestOpenSqliteCreatesFileAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docvoice.db")
	ctx := context.Background()

	s, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	if err := s.Save(ctx, "s", []model.Turn{model.UserTurn("kept")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Content != "kept" {
		t.Errorf("expected persisted turn, got %+v", loaded)
	}
}
