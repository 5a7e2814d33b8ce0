// Package testutil provides deterministic fakes for the model providers.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/richinex/docvoice/llm"
	"github.com/richinex/docvoice/model"
)

// LetterEmbedder embeds text as its a-z letter histogram, so texts sharing
// letters score close together.
type LetterEmbedder struct {
	ModelID string
	Err     error // returned by every call when set

	mu    sync.Mutex
	calls [][]string
}

// Name implements embedding.Embedder.
func (e *LetterEmbedder) Name() string { return "letters" }

// Model implements embedding.Embedder.
func (e *LetterEmbedder) Model() string {
	if e.ModelID == "" {
		return "letters-26"
	}
	return e.ModelID
}

// EmbedBatch implements embedding.Embedder.
func (e *LetterEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	e.mu.Unlock()

	if e.Err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrEmbeddingProvider, e.Err)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = LetterVector(t)
	}
	return out, nil
}

// Calls returns the batches embedded so far.
func (e *LetterEmbedder) Calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.calls...)
}

// LetterVector returns the letter histogram of text.
func LetterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

// ScriptedProvider replays canned replies in order and records every
// request. When the script runs out the last reply repeats.
type ScriptedProvider struct {
	ProviderName string
	ModelName    string
	Temp         float32
	Replies      []string
	Err          error // returned by every call when set

	mu       sync.Mutex
	requests [][]llm.ChatMessage
}

// NewScriptedProvider creates a provider that answers with replies in order.
func NewScriptedProvider(temperature float32, replies ...string) *ScriptedProvider {
	return &ScriptedProvider{ProviderName: "scripted", ModelName: "scripted-1", Temp: temperature, Replies: replies}
}

// Name implements llm.Provider.
func (p *ScriptedProvider) Name() string { return p.ProviderName }

// Model implements llm.Provider.
func (p *ScriptedProvider) Model() string { return p.ModelName }

// Temperature implements llm.Provider.
func (p *ScriptedProvider) Temperature() float32 { return p.Temp }

// Chat implements llm.Provider.
func (p *ScriptedProvider) Chat(_ context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, append([]llm.ChatMessage(nil), messages...))
	if p.Err != nil {
		return llm.LLMResponse{}, fmt.Errorf("%w: %w", model.ErrLanguageModel, p.Err)
	}
	if len(p.Replies) == 0 {
		return llm.LLMResponse{}, fmt.Errorf("%w: no scripted reply", model.ErrLanguageModel)
	}
	i := min(len(p.requests)-1, len(p.Replies)-1)
	return llm.LLMResponse{
		Content: p.Replies[i],
		Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// Requests returns the message lists sent so far.
func (p *ScriptedProvider) Requests() [][]llm.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.ChatMessage(nil), p.requests...)
}

// CallCount returns the number of Chat calls.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
