// Package llm provides LLM provider abstractions.
//
// Each provider hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
//
// A provider is created with a fixed sampling temperature. The research and
// answer stages of a crew hold two providers built from the same settings at
// different temperatures.
package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Temperature returns the sampling temperature every request is sent with.
	Temperature() float32

	// Chat sends a chat completion request. Failures wrap model.ErrLanguageModel.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)
}
