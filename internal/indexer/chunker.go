// Package indexer provides document chunking and the ingestion flow into the vector store.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultSeparators is the boundary preference order: paragraph, line, sentence, word, character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Span is a chunk position in the source text as byte offsets [Start, End).
type Span struct {
	Start int
	End   int
}

// Chunker splits text into overlapping chunks of at most chunkSize characters.
// Sizes are measured in runes. Every chunk is an exact substring of the input.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Returns models.ErrConfiguration unless 0 <= overlap < size.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrConfiguration, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)",
			models.ErrConfiguration, chunkOverlap, chunkSize)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}, nil
}

// Split splits text with a one-off chunker. See Chunker.Split.
func Split(text string, chunkSize, chunkOverlap int) ([]string, error) {
	c, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// Split returns the chunks of text in source order. Empty text yields an empty slice.
func (c *Chunker) Split(text string) []string {
	spans := c.Spans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s.Start:s.End]
	}
	return out
}

// Spans returns chunk positions in source order. Consecutive spans are contiguous or
// overlap by at most chunkOverlap characters; the last span ends at len(text).
func (c *Chunker) Spans(text string) []Span {
	if text == "" {
		return []Span{}
	}
	pieces := c.pieces(text, 0, len(text), c.separators)
	return c.merge(pieces)
}

type piece struct {
	start, end int
	runes      int
}

// pieces cuts text[start:end] at the first separator present, keeping each separator at the
// end of the piece it terminates, and recurses into pieces still longer than chunkSize.
func (c *Chunker) pieces(text string, start, end int, separators []string) []piece {
	sep, rest := "", []string(nil)
	for i, s := range separators {
		if s == "" || strings.Contains(text[start:end], s) {
			sep, rest = s, separators[i+1:]
			break
		}
	}

	var out []piece
	emit := func(s, e int) {
		if s == e {
			return
		}
		n := utf8.RuneCountInString(text[s:e])
		if n <= c.chunkSize || len(rest) == 0 {
			out = append(out, piece{start: s, end: e, runes: n})
			return
		}
		out = append(out, c.pieces(text, s, e, rest)...)
	}

	if sep == "" {
		for i, r := range text[start:end] {
			s := start + i
			emit(s, s+utf8.RuneLen(r))
		}
		return out
	}

	pos := start
	for pos < end {
		idx := strings.Index(text[pos:end], sep)
		if idx < 0 {
			emit(pos, end)
			break
		}
		next := pos + idx + len(sep)
		emit(pos, next)
		pos = next
	}
	return out
}

// merge packs consecutive pieces into chunks. When a chunk is full, pieces are dropped from
// its front until at most chunkOverlap characters remain; those carry into the next chunk.
func (c *Chunker) merge(pieces []piece) []Span {
	spans := make([]Span, 0)
	window := make([]piece, 0)
	total := 0
	flush := func() {
		spans = append(spans, Span{Start: window[0].start, End: window[len(window)-1].end})
	}
	for _, p := range pieces {
		if len(window) > 0 && total+p.runes > c.chunkSize {
			flush()
			for len(window) > 0 && (total > c.chunkOverlap || total+p.runes > c.chunkSize) {
				total -= window[0].runes
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.runes
	}
	if len(window) > 0 {
		flush()
	}
	return spans
}
