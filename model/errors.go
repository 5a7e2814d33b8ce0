package model

import "errors"

// Error kinds surfaced to callers. Wrap with fmt.Errorf("%w: ...") and test
// with errors.Is.
var (
	ErrMissingCredentials   = errors.New("missing API credentials")
	ErrDocumentParse        = errors.New("document parse failed")
	ErrEmbeddingProvider    = errors.New("embedding provider failed")
	ErrTranscriptionTimeout = errors.New("transcription timed out")
	ErrTranscriptionService = errors.New("transcription service failed")
	ErrLanguageModel        = errors.New("language model failed")
	ErrConfiguration        = errors.New("invalid configuration")
)

// UserMessage renders err as the single plain line shown to a user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "An API key is required. Set it in the environment or enter it when prompted."
	case errors.Is(err, ErrDocumentParse):
		return "Could not read that PDF: " + err.Error()
	case errors.Is(err, ErrEmbeddingProvider):
		return "Indexing failed while computing embeddings: " + err.Error()
	case errors.Is(err, ErrConfiguration):
		return "Configuration problem: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
