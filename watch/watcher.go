// Package watch re-ingests PDFs dropped into a knowledge directory.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/richinex/docvoice/index"
)

// DefaultSettle is how long a file must stay quiet before it is read.
// Editors and copies emit several writes per file.
const DefaultSettle = 500 * time.Millisecond

// Ingester indexes a document and makes it live.
type Ingester interface {
	Ingest(ctx context.Context, name string, raw []byte) (*index.VectorIndex, error)
}

// NotifyFunc is called after every ingestion attempt.
type NotifyFunc func(path string, x *index.VectorIndex, err error)

// Watcher feeds created or modified PDFs in one directory to an Ingester.
// Files whose bytes have not changed since their last successful
// ingestion are skipped.
type Watcher struct {
	watcher  *fsnotify.Watcher
	ingester Ingester
	settle   time.Duration
	notify   NotifyFunc
	verbose  bool

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithNotify sets a callback for ingestion results.
func WithNotify(fn NotifyFunc) Option {
	return func(w *Watcher) { w.notify = fn }
}

// WithVerbose logs skipped files at debug level.
func WithVerbose(v bool) Option {
	return func(w *Watcher) { w.verbose = v }
}

// New creates a watcher feeding ingester.
func New(ingester Ingester, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		ingester: ingester,
		settle:   DefaultSettle,
		pending:  make(map[string]*time.Timer),
		seen:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches dir until ctx is done or Stop is called. Ingestion happens
// on this goroutine, one file at a time.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	log.Printf("[INFO] Watching %s for PDFs", dir)

	ready := make(chan string, 16)
	done := make(chan struct{})
	defer func() {
		close(done)
		w.stopTimers()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) || !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.schedule(event.Name, ready, done)
		case path := <-ready:
			w.ingest(ctx, path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] Watcher error: %v", err)
		}
	}
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string, ready chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case ready <- path:
		case <-done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		// removed or renamed before it settled
		log.Printf("[WARN] Skipping %s: %v", path, err)
		return
	}

	fp := index.Fingerprint(raw)
	w.mu.Lock()
	last, ok := w.seen[path]
	w.mu.Unlock()
	if ok && last == fp {
		if w.verbose {
			log.Printf("[DEBUG] %s unchanged, not re-ingesting", path)
		}
		return
	}

	x, err := w.ingester.Ingest(ctx, filepath.Base(path), raw)
	if err != nil {
		log.Printf("[ERROR] Ingesting %s: %v", path, err)
	} else {
		w.mu.Lock()
		w.seen[path] = fp
		w.mu.Unlock()
	}
	if w.notify != nil {
		w.notify(path, x, err)
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
