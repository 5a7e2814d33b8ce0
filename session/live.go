package session

import (
	"sync/atomic"

	"github.com/richinex/docvoice/index"
)

// LiveIndex holds the one searchable index of a session. Readers never
// see a half-built index: a new one replaces the old in a single store.
type LiveIndex struct {
	p atomic.Pointer[index.VectorIndex]
}

// Current returns the live index, or nil before the first ingestion.
func (l *LiveIndex) Current() *index.VectorIndex {
	return l.p.Load()
}

// Swap installs x and returns the index it replaced.
func (l *LiveIndex) Swap(x *index.VectorIndex) *index.VectorIndex {
	return l.p.Swap(x)
}

// Clear drops the live index.
func (l *LiveIndex) Clear() {
	l.p.Store(nil)
}
