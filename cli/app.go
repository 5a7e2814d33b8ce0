// Package cli wires settings, providers and the session together for the
// docvoice commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/richinex/docvoice/config"
	"github.com/richinex/docvoice/embedding"
	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/llm"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/orchestration"
	"github.com/richinex/docvoice/session"
	"github.com/richinex/docvoice/storage"
	"github.com/richinex/docvoice/tools"
	"github.com/richinex/docvoice/transcribe"
)

// Options holds the global command flags.
type Options struct {
	Provider  string
	ConfigDir string
	Verbose   bool

	SessionID string // resume a stored session
	DBPath    string // empty disables persistence
	NoPrompt  bool   // never ask for a missing API key
}

// App is a fully wired session plus the pieces commands use directly.
type App struct {
	Settings    config.Settings
	Session     *session.Orchestrator
	Indexer     *index.Indexer // nil without credentials
	Transcriber *transcribe.Client
	Store       storage.Store // nil without DBPath

	closers []io.Closer
}

// Close releases the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewApp builds the app. Missing credentials are not fatal: the session
// is created without a pipeline or indexer and reports
// model.ErrMissingCredentials when used.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.ConfigDir != "" {
		settings.ConfigDir = opts.ConfigDir
	}

	crew, err := config.LoadCrew(settings.ConfigDir)
	if err != nil {
		return nil, err
	}

	app := &App{
		Settings:    settings,
		Transcriber: transcribe.NewClient(settings.Transcription.URL, settings.Transcription.Timeout,
			transcribe.WithVerbose(opts.Verbose)),
	}
	if opts.DBPath != "" {
		db, err := storage.OpenSqlite(opts.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.Store = db
		app.closers = append(app.closers, db)
	}

	live := &session.LiveIndex{}
	deps := session.Deps{Transcriber: app.Transcriber, Index: live, Store: app.Store}

	embedder, err := newEmbedder(settings, !opts.NoPrompt)
	if err != nil && !errors.Is(err, model.ErrMissingCredentials) {
		app.Close()
		return nil, err
	}
	if embedder != nil {
		splitter, err := index.NewSplitter(settings.Retrieval.ChunkSize, settings.Retrieval.ChunkOverlap)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Indexer, err = index.NewIndexer(embedder, splitter, index.WithBatchSize(settings.Embedding.BatchSize))
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Indexer = app.Indexer
	}

	strict, creative, err := newProviders(settings, !opts.NoPrompt)
	if err != nil && !errors.Is(err, model.ErrMissingCredentials) {
		app.Close()
		return nil, err
	}
	if strict != nil && embedder != nil {
		search := tools.NewSearchPDFTool(live, embedder, settings.Retrieval.TopK)
		pipeline, err := orchestration.NewCrew(crew, strict, creative, search, orchestration.Options{
			MaxIterations: settings.Agent.MaxIterations,
			Verbose:       opts.Verbose,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Pipeline = pipeline
	} else {
		log.Printf("[WARN] Missing API key; uploads and questions are disabled")
	}

	app.Session, err = session.New(ctx, deps, session.Options{
		SessionID:     opts.SessionID,
		HistoryWindow: settings.Agent.HistoryWindow,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// newProviders builds the research and answer clients. They share a
// model and differ only in temperature.
func newProviders(settings config.Settings, prompt bool) (strict, creative llm.Provider, err error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, nil, err
	}
	env, err := config.APIKeyEnv(settings.LLM.Provider)
	if err != nil {
		return nil, nil, err
	}
	key, err := apiKey(env, prompt)
	if err != nil {
		return nil, nil, err
	}

	build := func(temp float64) (llm.Provider, error) {
		return providerType.
			Model(settings.LLM.Model).
			MaxTokens(settings.LLM.MaxTokens).
			Temperature(float32(temp)).
			APIKey(key)
	}
	if strict, err = build(settings.LLM.ResearchTemperature); err != nil {
		return nil, nil, err
	}
	if creative, err = build(settings.LLM.AnswerTemperature); err != nil {
		return nil, nil, err
	}
	return strict, creative, nil
}

func newEmbedder(settings config.Settings, prompt bool) (embedding.Embedder, error) {
	providerType, err := embedding.ParseProviderType(settings.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	key, err := apiKey(providerType.EnvVar(), prompt)
	if err != nil {
		return nil, err
	}
	return embedding.New(providerType, key, settings.Embedding.Model)
}

// readFile reads a user-supplied path for upload or transcription.
func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}
