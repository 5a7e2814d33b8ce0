package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/richinex/docvoice/model"
	openai "github.com/sashabaranov/go-openai"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	config := openai.DefaultConfig("sk-test")
	config.BaseURL = srv.URL
	return NewOpenAIEmbedderWithConfig(config, "text-embedding-3-small")
}

func TestOpenAIEmbedBatchOrdersByIndex(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("unexpected model %q", req.Model)
		}
		// Reply out of order.
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
}

func TestOpenAIEmbedBatchWrapsProviderError(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	_, err := Embed(context.Background(), e, "hello")
	if !errors.Is(err, model.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(ProviderOpenAI, "  ", "")
	if !errors.Is(err, model.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	e, err := New(ProviderOpenAI, "sk-x", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e.Model() != "text-embedding-3-small" {
		t.Errorf("expected default model, got %s", e.Model())
	}
}

func TestParseProviderType(t *testing.T) {
	if p, err := ParseProviderType("Gemini"); err != nil || p != ProviderGemini {
		t.Errorf("expected gemini, got %v %v", p, err)
	}
	if _, err := ParseProviderType("cohere"); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
