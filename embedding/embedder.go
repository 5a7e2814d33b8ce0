// Package embedding turns text into vectors for similarity search.
//
// An Embedder is bound to one model id. Indexes remember the id they were
// built with so queries are embedded with the same model.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/docvoice/model"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Name returns the provider name.
	Name() string

	// Model returns the embedding model id.
	Model() string

	// EmbedBatch embeds texts, returning one vector per input in input order.
	// Failures wrap model.ErrEmbeddingProvider.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Embed embeds a single text.
func Embed(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", model.ErrEmbeddingProvider, len(vecs))
	}
	return vecs[0], nil
}

// ProviderType represents supported embedding providers.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

// DefaultModel returns the default embedding model for the provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return "text-embedding-004"
	default:
		return "text-embedding-3-small"
	}
}

// EnvVar returns the environment variable holding the provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// ParseProviderType parses a provider name (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "openai":
		return ProviderOpenAI, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("%w: unknown embedding provider: %s", model.ErrConfiguration, s)
	}
}

// New creates an embedder. An empty API key fails with
// model.ErrMissingCredentials before any client is created.
func New(provider ProviderType, apiKey, modelName string) (Embedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: %s not set", model.ErrMissingCredentials, provider.EnvVar())
	}
	if modelName == "" {
		modelName = provider.DefaultModel()
	}
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(apiKey, modelName), nil
	case ProviderGemini:
		return NewGeminiEmbedder(apiKey, modelName)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider: %s", model.ErrConfiguration, provider)
	}
}
