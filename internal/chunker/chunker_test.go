package chunker

import (
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", 1000, 200, false},
		{"no overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
		{"maximum overlap", 100, 99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestChunk_Empty(t *testing.T) {
	c := Default()
	if got := c.Chunk(""); len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(got))
	}
	if got := c.Chunk("   \n\t  "); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace input, got %d", len(got))
	}
}

func TestChunk_ShortInput(t *testing.T) {
	c := Default()
	chunks := c.Chunk("  hello world  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Errorf("expected trimmed chunk, got %q", chunks[0])
	}
}

func TestChunk_OverlapExample(t *testing.T) {
	c := Default()
	text := strings.Repeat("a", 1500)

	chunks := c.Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("expected exactly 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 {
		t.Errorf("expected first chunk of 1000, got %d", len(chunks[0]))
	}
	// Second window starts at offset 800 and runs to the end.
	if len(chunks[1]) != 700 {
		t.Errorf("expected second chunk of 700, got %d", len(chunks[1]))
	}
}

func TestChunk_Termination(t *testing.T) {
	c := Default()
	text := strings.Repeat("x", 10000)

	chunks := c.Chunk(text)
	// Windows advance by 800: starts 0, 800, ..., 9600 -> 13 windows.
	if len(chunks) != 13 {
		t.Errorf("expected 13 chunks, got %d", len(chunks))
	}
}

func TestChunk_ProgressWithExtremeOverlap(t *testing.T) {
	// overlap = size-1 advances one byte at a time but must terminate.
	c, err := New(3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks := c.Chunk("abcdef")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0] != "abc" {
		t.Errorf("expected first chunk %q, got %q", "abc", chunks[0])
	}
	if last := chunks[len(chunks)-1]; !strings.HasSuffix("abcdef", last) {
		t.Errorf("last chunk %q should end the input", last)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := Default()
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 100)

	first := c.Chunk(text)
	second := c.Chunk(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_Coverage(t *testing.T) {
	// Concatenating the non-overlapping prefix of each chunk must
	// reconstruct the original non-whitespace content.
	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := strings.Repeat("abcdefghij", 55) // 550 bytes, no whitespace

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, chunk := range chunks[1:] {
		rebuilt.WriteString(chunk[c.Overlap():])
	}

	if rebuilt.String() != text {
		t.Errorf("reconstructed content differs from input: %d vs %d bytes",
			rebuilt.Len(), len(text))
	}
}

func TestChunk_ReadingOrder(t *testing.T) {
	c, err := New(10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks := c.Chunk("0123456789abcdefghijklmnopqrst")
	want := []string{"0123456789", "abcdefghij", "klmnopqrst"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestChunk_SkipsWhitespaceWindows(t *testing.T) {
	// A window that is all whitespace is dropped without creating a
	// gap in the sequence.
	c, err := New(5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks := c.Chunk("abcde     fghij")
	want := []string{"abcde", "fghij"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}
