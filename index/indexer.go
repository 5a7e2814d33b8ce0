package index

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/richinex/docvoice/embedding"
	"github.com/richinex/docvoice/model"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 64

// Indexer builds a VectorIndex from raw PDF bytes.
type Indexer struct {
	embedder  embedding.Embedder
	splitter  *Splitter
	extract   ExtractFunc
	batchSize int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithExtractor replaces PDF text extraction.
func WithExtractor(fn ExtractFunc) Option {
	return func(ix *Indexer) { ix.extract = fn }
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithTempDir sets where uploads are staged during extraction.
func WithTempDir(dir string) Option {
	return func(ix *Indexer) { ix.extract = PDFExtractor{TempDir: dir}.Extract }
}

// NewIndexer creates an indexer. A nil embedder means no credentials were
// supplied and fails with model.ErrMissingCredentials.
func NewIndexer(e embedding.Embedder, s *Splitter, opts ...Option) (*Indexer, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no embedding client", model.ErrMissingCredentials)
	}
	if s == nil {
		var err error
		if s, err = NewSplitter(DefaultChunkSize, DefaultChunkOverlap); err != nil {
			return nil, err
		}
	}
	ix := &Indexer{
		embedder:  e,
		splitter:  s,
		extract:   PDFExtractor{}.Extract,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Chunk extracts and splits raw without embedding. Pages are split
// independently so no chunk spans a page break.
func (ix *Indexer) Chunk(raw []byte) ([]Chunk, error) {
	pages, err := ix.extract(raw)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, p := range pages {
		for _, text := range ix.splitter.Split(p.Text) {
			chunks = append(chunks, Chunk{Text: text, Offset: len(chunks), Page: p.Number})
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", model.ErrDocumentParse)
	}
	return chunks, nil
}

// Ingest extracts, splits and embeds raw into a fresh index. Nothing is
// shared with previously built indexes.
func (ix *Indexer) Ingest(ctx context.Context, name string, raw []byte) (*VectorIndex, error) {
	chunks, err := ix.Chunk(raw)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if !errors.Is(err, model.ErrEmbeddingProvider) {
				err = fmt.Errorf("%w: %w", model.ErrEmbeddingProvider, err)
			}
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", model.ErrEmbeddingProvider, len(vecs), len(texts))
		}
		vectors = append(vectors, vecs...)
	}

	x, err := NewVectorIndex(name, Fingerprint(raw), ix.embedder.Model(), chunks, vectors)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Indexed %s: %d chunks with %s", name, x.Len(), x.EmbeddingModel())
	return x, nil
}
