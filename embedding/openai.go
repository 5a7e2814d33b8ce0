package embedding

import (
	"context"
	"fmt"

	"github.com/richinex/docvoice/model"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(apiKey, modelName string) *OpenAIEmbedder {
	return NewOpenAIEmbedderWithConfig(openai.DefaultConfig(apiKey), modelName)
}

// NewOpenAIEmbedderWithConfig creates an embedder for any OpenAI-compatible
// endpoint.
func NewOpenAIEmbedderWithConfig(config openai.ClientConfig, modelName string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  modelName,
	}
}

// Name returns the provider name.
func (e *OpenAIEmbedder) Name() string { return "openai" }

// Model returns the embedding model id.
func (e *OpenAIEmbedder) Model() string { return e.model }

// EmbedBatch embeds texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %w", model.ErrEmbeddingProvider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs",
			model.ErrEmbeddingProvider, len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", model.ErrEmbeddingProvider, d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
