// Package chunking splits normalized text into overlapping word windows.
package chunking

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// Params configures the sliding word window.
type Params struct {
	WindowSize int // words per chunk
	Overlap    int // words shared by consecutive chunks
}

// Validate rejects parameters that would not advance the window.
func (p Params) Validate() error {
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", domain.ErrInvalidConfiguration, p.WindowSize)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfiguration, p.Overlap)
	}
	if p.Overlap >= p.WindowSize {
		return fmt.Errorf("%w: overlap %d must be smaller than window size %d",
			domain.ErrInvalidConfiguration, p.Overlap, p.WindowSize)
	}
	return nil
}

// Stride is the number of words the window advances per chunk.
func (p Params) Stride() int { return p.WindowSize - p.Overlap }

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split cuts the document text into word windows of p.WindowSize words, each
// starting p.Stride() words after the previous one. The last window may be shorter.
// Empty text yields no chunks.
func Split(doc domain.Document, p Params) ([]domain.Chunk, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(doc.Text)
	n := len(words)
	if n == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, Count(n, p))
	for offset := 0; offset < n; offset += p.Stride() {
		end := min(offset+p.WindowSize, n)
		chunks = append(chunks, domain.Chunk{
			Index:  len(chunks),
			Text:   strings.Join(words[offset:end], " "),
			Source: doc.Source,
		})
	}
	return chunks, nil
}

// Count returns how many chunks Split produces for n words: one per window
// start below n, i.e. ceil(n / stride). Invalid params yield 0.
func Count(n int, p Params) int {
	if n <= 0 || p.Validate() != nil {
		return 0
	}
	return (n + p.Stride() - 1) / p.Stride()
}
