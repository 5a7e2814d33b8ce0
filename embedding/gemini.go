package embedding

import (
	"context"
	"fmt"

	"github.com/richinex/docvoice/model"
	"google.golang.org/genai"
)

// GeminiEmbedder implements Embedder with the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a Gemini embedder.
func NewGeminiEmbedder(apiKey, modelName string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initialize gemini client: %w", model.ErrEmbeddingProvider, err)
	}
	return &GeminiEmbedder{client: client, model: modelName}, nil
}

// Name returns the provider name.
func (e *GeminiEmbedder) Name() string { return "gemini" }

// Model returns the embedding model id.
func (e *GeminiEmbedder) Model() string { return e.model }

// EmbedBatch embeds texts in one request.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed content: %w", model.ErrEmbeddingProvider, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs",
			model.ErrEmbeddingProvider, len(res.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		vecs[i] = emb.Values
	}
	return vecs, nil
}

var _ Embedder = (*GeminiEmbedder)(nil)
