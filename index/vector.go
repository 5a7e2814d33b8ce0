// Package index turns PDF bytes into a searchable in-memory vector index.
package index

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/richinex/docvoice/model"
)

// Chunk is one window of document text.
type Chunk struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"` // ordinal position within the document
	Page   int    `json:"page"`   // 1-based source page
}

// Result is a chunk with its similarity to a query.
type Result struct {
	Chunk Chunk
	Score float64
}

// VectorIndex holds the chunks of one document and their normalised
// embeddings. It is read-only after construction and safe for concurrent
// searches.
type VectorIndex struct {
	name           string
	fingerprint    uint64
	embeddingModel string
	chunks         []Chunk
	vectors        [][]float32
	createdAt      time.Time
}

// Fingerprint hashes raw document or audio bytes.
func Fingerprint(raw []byte) uint64 {
	return xxhash.Sum64(raw)
}

// NewVectorIndex builds an index from parallel chunk and vector slices.
// Vectors are copied and L2-normalised.
func NewVectorIndex(name string, fingerprint uint64, embeddingModel string, chunks []Chunk, vectors [][]float32) (*VectorIndex, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", model.ErrEmbeddingProvider, len(chunks), len(vectors))
	}
	dim := -1
	normalised := make([][]float32, len(vectors))
	for i, v := range vectors {
		if dim == -1 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", model.ErrEmbeddingProvider, i, len(v), dim)
		}
		normalised[i] = normalise(v)
	}
	return &VectorIndex{
		name:           name,
		fingerprint:    fingerprint,
		embeddingModel: embeddingModel,
		chunks:         append([]Chunk(nil), chunks...),
		vectors:        normalised,
		createdAt:      time.Now(),
	}, nil
}

// Name returns the source document name.
func (x *VectorIndex) Name() string { return x.name }

// Fingerprint returns the hash of the source document bytes.
func (x *VectorIndex) Fingerprint() uint64 { return x.fingerprint }

// EmbeddingModel returns the model id the index was built with.
func (x *VectorIndex) EmbeddingModel() string { return x.embeddingModel }

// Len returns the number of chunks.
func (x *VectorIndex) Len() int { return len(x.chunks) }

// CreatedAt returns when the index was built.
func (x *VectorIndex) CreatedAt() time.Time { return x.createdAt }

// Chunks returns a copy of the indexed chunks in document order.
func (x *VectorIndex) Chunks() []Chunk {
	return append([]Chunk(nil), x.chunks...)
}

// Search returns the k chunks most similar to query by cosine similarity,
// highest first. Equal scores keep document order.
func (x *VectorIndex) Search(query []float32, k int) []Result {
	if k <= 0 || len(x.chunks) == 0 {
		return nil
	}
	q := normalise(query)

	results := make([]Result, len(x.chunks))
	for i, v := range x.vectors {
		results[i] = Result{Chunk: x.chunks[i], Score: dot(v, q)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalise returns a unit-length copy of v. A zero vector stays zero.
func normalise(v []float32) []float32 {
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
