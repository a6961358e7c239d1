// Package chunker splits extracted document text into overlapping passages.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTargetSize is the maximum chunk length in runes.
	DefaultTargetSize = 800
	// DefaultOverlap is the number of runes adjacent chunks may share.
	DefaultOverlap = 80
)

// separators are tried in order: paragraph, line, sentence, word. The empty
// separator is the fixed-width fallback.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one passage of a document.
type Chunk struct {
	Ordinal int // Position within the document (starts at 0)
	Text    string
}

// Chunker splits text at the coarsest boundary that keeps chunks within
// TargetSize runes. The output depends only on the input text and settings.
type Chunker struct {
	TargetSize int
	Overlap    int
}

// New creates a chunker. Overlap must be smaller than targetSize.
func New(targetSize, overlap int) (*Chunker, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %d", targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", targetSize, overlap)
	}
	return &Chunker{TargetSize: targetSize, Overlap: overlap}, nil
}

// Default returns a chunker with DefaultTargetSize and DefaultOverlap.
func Default() *Chunker {
	return &Chunker{TargetSize: DefaultTargetSize, Overlap: DefaultOverlap}
}

// Signature identifies the chunking settings. Changing it changes chunk identity.
func (c *Chunker) Signature() string {
	return fmt.Sprintf("recursive-%d-%d", c.TargetSize, c.Overlap)
}

// Chunk splits text into ordered chunks. Whitespace-only input yields none.
func (c *Chunker) Chunk(text string) []Chunk {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	parts := c.split(text, separators)
	chunks := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, Chunk{Ordinal: len(chunks), Text: p})
	}
	return chunks
}

// split breaks text on the first separator it contains, merges pieces that
// fit, and recurses into pieces that are still too long with the finer
// separators.
func (c *Chunker) split(text string, seps []string) []string {
	sep, rest := "", []string(nil)
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep, rest = s, seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.SplitAfter(text, sep)
	}

	var out, fitting []string
	for _, p := range pieces {
		if runeLen(p) <= c.TargetSize {
			fitting = append(fitting, p)
			continue
		}
		out = append(out, c.merge(fitting)...)
		fitting = nil
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, c.split(p, rest)...)
		}
	}
	return append(out, c.merge(fitting)...)
}

// merge packs consecutive pieces into chunks of at most TargetSize runes.
// When a chunk is emitted, its trailing pieces totalling no more than
// Overlap runes start the next one.
func (c *Chunker) merge(pieces []string) []string {
	var docs, window []string
	total := 0

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.TargetSize && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				docs = append(docs, doc)
			}
			for len(window) > 0 && (total > c.Overlap || total+n > c.TargetSize) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
