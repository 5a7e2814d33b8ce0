// Package config provides application settings loaded from environment
// variables and the crew definition loaded from YAML.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/docvoice/model"
)

// Settings holds all application configuration.
type Settings struct {
	LLM           LLMConfig
	Embedding     EmbeddingConfig
	Retrieval     RetrievalConfig
	Agent         AgentConfig
	Transcription TranscriptionConfig
	ConfigDir     string
}

// LLMConfig holds LLM provider configuration. Research and answer stages
// share the model but sample at different temperatures.
type LLMConfig struct {
	Provider            string
	Model               string
	MaxTokens           uint32
	ResearchTemperature float64
	AnswerTemperature   float64
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string
	Model     string
	BatchSize int
}

// RetrievalConfig holds chunking and search configuration.
type RetrievalConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxIterations int
	HistoryWindow int
}

// TranscriptionConfig holds the speech-to-text service endpoint.
type TranscriptionConfig struct {
	URL     string
	Timeout time.Duration
}

// DefaultTranscribeURL is where the local transcription service listens.
const DefaultTranscribeURL = "http://127.0.0.1:5001/transcribe"

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-haiku-4-5", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from
// environment variables. An empty provider reads LLM_PROVIDER, then falls
// back to openai. Errors wrap model.ErrConfiguration.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = getEnvString("LLM_PROVIDER", "openai")
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	collect(err)
	researchTemp, err := getEnvFloat64("RESEARCH_TEMPERATURE", 0)
	collect(err)
	answerTemp, err := getEnvFloat64("ANSWER_TEMPERATURE", 0.7)
	collect(err)
	batchSize, err := getEnvInt("EMBEDDING_BATCH_SIZE", 64)
	collect(err)
	chunkSize, err := getEnvInt("CHUNK_SIZE", 1000)
	collect(err)
	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 100)
	collect(err)
	topK, err := getEnvInt("RETRIEVAL_TOP_K", 4)
	collect(err)
	maxIterations, err := getEnvInt("AGENT_MAX_ITERATIONS", 10)
	collect(err)
	historyWindow, err := getEnvInt("HISTORY_WINDOW", 6)
	collect(err)
	timeoutSecs, err := getEnvInt("TRANSCRIBE_TIMEOUT_SECS", 30)
	collect(err)

	if len(errs) > 0 {
		return Settings{}, joinConfigErrors(errs)
	}

	s := Settings{
		LLM: LLMConfig{
			Provider:            provider,
			Model:               getEnvString(info.modelEnv, info.defaultModel),
			MaxTokens:           maxTokens,
			ResearchTemperature: researchTemp,
			AnswerTemperature:   answerTemp,
		},
		Embedding: EmbeddingConfig{
			Provider:  strings.ToLower(getEnvString("EMBEDDING_PROVIDER", "openai")),
			Model:     os.Getenv("EMBEDDING_MODEL"),
			BatchSize: batchSize,
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
			TopK:         topK,
		},
		Agent: AgentConfig{
			MaxIterations: maxIterations,
			HistoryWindow: historyWindow,
		},
		Transcription: TranscriptionConfig{
			URL:     getEnvString("TRANSCRIBE_URL", DefaultTranscribeURL),
			Timeout: time.Duration(timeoutSecs) * time.Second,
		},
		ConfigDir: getEnvString("DOCVOICE_CONFIG_DIR", "config"),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	var problems []string
	if s.Retrieval.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if s.Retrieval.ChunkOverlap < 0 || s.Retrieval.ChunkOverlap >= s.Retrieval.ChunkSize {
		problems = append(problems, "CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if s.Retrieval.TopK <= 0 {
		problems = append(problems, "RETRIEVAL_TOP_K must be positive")
	}
	if s.Agent.MaxIterations <= 0 {
		problems = append(problems, "AGENT_MAX_ITERATIONS must be positive")
	}
	if s.Agent.HistoryWindow <= 0 {
		problems = append(problems, "HISTORY_WINDOW must be positive")
	}
	if s.Embedding.BatchSize <= 0 {
		problems = append(problems, "EMBEDDING_BATCH_SIZE must be positive")
	}
	for name, t := range map[string]float64{
		"RESEARCH_TEMPERATURE": s.LLM.ResearchTemperature,
		"ANSWER_TEMPERATURE":   s.LLM.AnswerTemperature,
	} {
		if t < 0 || t > 2 {
			problems = append(problems, name+" must be in [0, 2]")
		}
	}
	if s.Transcription.Timeout <= 0 {
		problems = append(problems, "TRANSCRIBE_TIMEOUT_SECS must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(problems, "; "))
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("%w: unknown provider: %q", model.ErrConfiguration, provider)
	}
	return info, nil
}

// APIKeyEnv returns the environment variable holding provider's API key.
func APIKeyEnv(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}
	return info.apiKeyEnv, nil
}

// SupportedProviders returns the supported provider names, sorted.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func joinConfigErrors(errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(msgs, "; "))
}
