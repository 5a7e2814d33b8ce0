package index

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/richinex/docvoice/model"
)

// Default splitter window.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// defaultSeparators are tried in order. The empty separator cuts between runes.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter is a recursive character splitter. Text is cut on the coarsest
// separator present; pieces that still exceed the window are cut again on the
// next separator. Adjacent pieces are merged back into windows of at most
// size runes, and consecutive windows share up to overlap runes.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. overlap must be smaller than size.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", model.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", model.ErrConfiguration, overlap, size)
	}
	return &Splitter{size: size, overlap: overlap, separators: defaultSeparators}, nil
}

// Split cuts text into windows. Whitespace-only windows are dropped.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				chunks = append(chunks, t)
			}
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs consecutive pieces into windows, carrying trailing pieces
// worth at most overlap runes into the next window.
func (s *Splitter) merge(pieces []string) []string {
	var docs, current []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator splits text on sep, keeping each separator at the
// start of the piece that follows it. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		return strings.Split(text, "")
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
