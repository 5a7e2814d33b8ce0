package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/internal/testutil"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/tools"
)

type liveIndex struct {
	p atomic.Pointer[index.VectorIndex]
}

func (l *liveIndex) Current() *index.VectorIndex { return l.p.Load() }

func indexOf(t *testing.T, texts ...string) *index.VectorIndex {
	t.Helper()
	chunks := make([]index.Chunk, len(texts))
	vecs := make([][]float32, len(texts))
	for i, s := range texts {
		chunks[i] = index.Chunk{Text: s, Offset: i}
		vecs[i] = testutil.LetterVector(s)
	}
	x, err := index.NewVectorIndex("doc.pdf", 0, "letters-26", chunks, vecs)
	if err != nil {
		t.Fatalf("NewVectorIndex: %v", err)
	}
	return x
}

func TestSearchWithoutIndexReturnsSentinel(t *testing.T) {
	e := &testutil.LetterEmbedder{}
	tool := tools.NewSearchPDFTool(&liveIndex{}, e, 4)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"anything"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success() || result.Output != tools.NoDocumentMessage {
		t.Errorf("expected sentinel, got %+v", result)
	}
	if len(e.Calls()) != 0 {
		t.Error("embedder called without an index")
	}
}

func TestSearchJoinsTopKInOrder(t *testing.T) {
	src := &liveIndex{}
	src.p.Store(indexOf(t, "qqqq", "banana", "bandana", "cabana", "xyz", "apple"))
	tool := tools.NewSearchPDFTool(src, &testutil.LetterEmbedder{}, 4)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"banana"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := strings.Split(result.Output, "\n\n")
	if len(parts) != 4 {
		t.Fatalf("expected 4 passages, got %d: %q", len(parts), result.Output)
	}
	if parts[0] != "banana" {
		t.Errorf("expected best match first, got %q", parts[0])
	}
	for _, p := range parts {
		if p == "qqqq" || p == "xyz" {
			t.Errorf("unrelated passage %q ranked in top 4", p)
		}
	}
}

func TestSearchFewerPassagesThanK(t *testing.T) {
	src := &liveIndex{}
	src.p.Store(indexOf(t, "alpha", "beta"))
	tool := tools.NewSearchPDFTool(src, &testutil.LetterEmbedder{}, 4)

	result, _ := tool.Execute(context.Background(), json.RawMessage(`{"query":"alpha"}`))
	if got := strings.Count(result.Output, "\n\n"); got != 1 {
		t.Errorf("expected 2 passages, got %q", result.Output)
	}
}

func TestSearchEmbeddingFailureIsHard(t *testing.T) {
	src := &liveIndex{}
	src.p.Store(indexOf(t, "alpha"))
	tool := tools.NewSearchPDFTool(src, &testutil.LetterEmbedder{Err: errors.New("quota")}, 4)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"alpha"}`))
	if !errors.Is(err, model.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestSearchRejectsModelMismatch(t *testing.T) {
	src := &liveIndex{}
	src.p.Store(indexOf(t, "alpha"))
	tool := tools.NewSearchPDFTool(src, &testutil.LetterEmbedder{ModelID: "other"}, 4)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"alpha"}`))
	if !errors.Is(err, model.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestSearchValidate(t *testing.T) {
	tool := tools.NewSearchPDFTool(&liveIndex{}, nil, 0)

	tests := []struct {
		args    string
		wantErr bool
	}{
		{`{"query":"x"}`, false},
		{`"bare string"`, false},
		{`{"query":""}`, true},
		{`{}`, true},
		{`[1,2]`, true},
	}
	for _, tt := range tests {
		err := tool.Validate(json.RawMessage(tt.args))
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%s) error = %v, wantErr %v", tt.args, err, tt.wantErr)
		}
	}
}
