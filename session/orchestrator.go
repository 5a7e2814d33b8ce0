// Package session owns one user's conversation: its history, its live
// document index and the order in which submissions run.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/richinex/docvoice/index"
	"github.com/richinex/docvoice/model"
	"github.com/richinex/docvoice/storage"
	"github.com/richinex/docvoice/transcribe"
)

// DefaultHistoryWindow is how many trailing turns the answer stage sees.
const DefaultHistoryWindow = 6

// Pipeline answers a query given the rendered recent history.
type Pipeline interface {
	Run(ctx context.Context, query, chatHistory string) (string, error)
}

// Ingester builds an index from raw PDF bytes.
type Ingester interface {
	Ingest(ctx context.Context, name string, raw []byte) (*index.VectorIndex, error)
}

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (transcribe.Result, error)
}

// Deps are the collaborators of an Orchestrator. A nil Pipeline or
// Indexer means no credentials were supplied; the matching operations
// fail with model.ErrMissingCredentials before doing any work.
type Deps struct {
	Pipeline    Pipeline
	Indexer     Ingester
	Transcriber Transcriber
	Index       *LiveIndex    // shared with the retrieval tool; created if nil
	Store       storage.Store // optional persistence
}

// Options tunes an Orchestrator.
type Options struct {
	SessionID     string // resume this session from Store; empty starts a new one
	HistoryWindow int
}

// Reply is the outcome of one submission.
type Reply struct {
	Query     string
	Answer    string
	Dropped   bool // no query was resolved; history is unchanged
	Duplicate bool // dropped because the recording was already handled
	Elapsed   time.Duration
}

// Orchestrator serialises the submissions of one session.
type Orchestrator struct {
	deps   Deps
	window int

	submit sync.Mutex // held for the whole of a submission

	mu        sync.RWMutex
	id        string
	history   []model.Turn
	lastAudio uint64
	haveAudio bool
}

// New creates an orchestrator. With opts.SessionID set and a Store
// configured, the stored history is loaded.
func New(ctx context.Context, deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Index == nil {
		deps.Index = &LiveIndex{}
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}

	o := &Orchestrator{deps: deps, window: opts.HistoryWindow, id: opts.SessionID}
	if o.id == "" {
		o.id = uuid.NewString()
		return o, nil
	}

	if deps.Store != nil {
		history, err := deps.Store.Load(ctx, o.id)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", o.id, err)
		}
		o.history = history
		if len(history) > 0 {
			log.Printf("[INFO] Resumed session %s with %d turns", o.id, len(history))
		}
	}
	return o, nil
}

// ID returns the session id.
func (o *Orchestrator) ID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

// Index returns the live index holder.
func (o *Orchestrator) Index() *LiveIndex {
	return o.deps.Index
}

// Current implements tools.IndexSource.
func (o *Orchestrator) Current() *index.VectorIndex {
	return o.deps.Index.Current()
}

// History returns a copy of the transcript.
func (o *Orchestrator) History() []model.Turn {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]model.Turn(nil), o.history...)
}

// RequireCredentials reports model.ErrMissingCredentials when no
// pipeline was configured.
func (o *Orchestrator) RequireCredentials() error {
	if o.deps.Pipeline == nil {
		return fmt.Errorf("%w: no language model configured", model.ErrMissingCredentials)
	}
	return nil
}

// Ingest indexes a PDF and makes it the live index. On failure the prior
// index stays live. Ingestion is serialised with submissions and Reset,
// so a document always lands in the session that was current when it
// started.
func (o *Orchestrator) Ingest(ctx context.Context, name string, raw []byte) (*index.VectorIndex, error) {
	o.submit.Lock()
	defer o.submit.Unlock()

	if o.deps.Indexer == nil {
		return nil, fmt.Errorf("%w: no embedding client configured", model.ErrMissingCredentials)
	}

	x, err := o.deps.Indexer.Ingest(ctx, name, raw)
	if err != nil {
		return nil, err
	}
	if prev := o.deps.Index.Swap(x); prev != nil {
		log.Printf("[INFO] Replaced %s with %s", prev.Name(), x.Name())
	}

	if o.deps.Store != nil {
		rec := storage.DocumentRecord{
			SessionID:      o.ID(),
			Name:           name,
			Fingerprint:    x.Fingerprint(),
			Chunks:         x.Len(),
			EmbeddingModel: x.EmbeddingModel(),
			IngestedAt:     x.CreatedAt(),
		}
		if err := o.deps.Store.RecordDocument(ctx, rec); err != nil {
			log.Printf("[WARN] Failed to record ingestion of %s: %v", name, err)
		}
	}
	return x, nil
}

// SubmitText runs one typed query. Blank text is ignored. On pipeline
// failure the user turn stays in history, no assistant turn is added and
// the error is returned.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (Reply, error) {
	o.submit.Lock()
	defer o.submit.Unlock()

	if err := o.RequireCredentials(); err != nil {
		return Reply{}, err
	}
	return o.resolve(ctx, text)
}

// SubmitAudio transcribes a recording and runs it as a query. A recording
// identical to the previous one is ignored. Transcription failures and
// empty transcripts drop the turn: they are logged and the returned
// Reply has Dropped set, with a nil error.
func (o *Orchestrator) SubmitAudio(ctx context.Context, wav []byte) (Reply, error) {
	o.submit.Lock()
	defer o.submit.Unlock()

	if err := o.RequireCredentials(); err != nil {
		return Reply{}, err
	}
	if o.deps.Transcriber == nil {
		return Reply{}, fmt.Errorf("%w: no transcription service configured", model.ErrConfiguration)
	}

	fp := xxhash.Sum64(wav)
	o.mu.Lock()
	duplicate := o.haveAudio && o.lastAudio == fp
	o.lastAudio, o.haveAudio = fp, true
	o.mu.Unlock()
	if duplicate {
		return Reply{Dropped: true, Duplicate: true}, nil
	}

	res, err := o.deps.Transcriber.Transcribe(ctx, wav)
	if err != nil {
		log.Printf("[WARN] Dropping voice turn: %v", err)
		return Reply{Dropped: true}, nil
	}
	if strings.TrimSpace(res.Text) == "" {
		log.Printf("[INFO] Dropping voice turn: empty transcript")
		return Reply{Dropped: true}, nil
	}
	return o.resolve(ctx, res.Text)
}

// resolve runs a query. The caller holds o.submit.
func (o *Orchestrator) resolve(ctx context.Context, text string) (Reply, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return Reply{Dropped: true}, nil
	}

	start := time.Now()
	o.mu.Lock()
	o.history = append(o.history, model.UserTurn(query))
	chatHistory := model.RenderHistory(o.history, o.window)
	o.mu.Unlock()

	answer, err := o.deps.Pipeline.Run(ctx, query, chatHistory)
	if err != nil {
		o.persist(ctx)
		return Reply{Query: query, Elapsed: time.Since(start)}, err
	}

	o.mu.Lock()
	o.history = append(o.history, model.AssistantTurn(answer))
	o.mu.Unlock()
	o.persist(ctx)

	return Reply{Query: query, Answer: answer, Elapsed: time.Since(start)}, nil
}

func (o *Orchestrator) persist(ctx context.Context) {
	if o.deps.Store == nil {
		return
	}
	id, history := o.ID(), o.History()
	if err := o.deps.Store.Save(ctx, id, history); err != nil {
		log.Printf("[WARN] Failed to save session %s: %v", id, err)
	}
}

// Reset starts a new session: history, live index and the duplicate
// recording check are cleared and a fresh id is assigned. Stored
// sessions are kept.
func (o *Orchestrator) Reset() {
	o.submit.Lock()
	defer o.submit.Unlock()

	o.mu.Lock()
	o.id = uuid.NewString()
	o.history = nil
	o.lastAudio, o.haveAudio = 0, false
	o.mu.Unlock()
	o.deps.Index.Clear()
}
