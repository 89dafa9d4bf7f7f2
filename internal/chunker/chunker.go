// Package chunker splits raw document text into overlapping fixed-size
// windows suitable for embedding.
package chunker

import (
	"fmt"
	"strings"
)

const (
	// DefaultSize is the default window length in bytes
	DefaultSize = 1000

	// DefaultOverlap is the default overlap between windows in bytes
	DefaultOverlap = 200
)

// Chunker slides a fixed-size window over text. Window positions are
// measured in bytes; the same measure must be used for any future
// re-chunking of the same corpus.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. size must be positive and overlap must be in
// [0, size).
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a Chunker with the default size and overlap.
func Default() *Chunker {
	c, _ := New(DefaultSize, DefaultOverlap)
	return c
}

// Size returns the configured window length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into trimmed, non-empty chunks in reading order.
// Each window covers [start, start+size), clamped to the text length;
// consecutive windows overlap by the configured amount. Windows that
// are empty after trimming are skipped but still advance the cursor,
// so they leave no gaps in the sequence.
func (c *Chunker) Chunk(text string) []string {
	var chunks []string
	start := 0

	for start < len(text) {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		// The final window ends the scan regardless of overlap.
		if end == len(text) {
			break
		}

		// Advance with overlap; the cursor must strictly increase.
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}
