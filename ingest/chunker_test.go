package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_ShortNarrativeSingleChunk(t *testing.T) {
	c := newChunker(5, 1, 2000)
	chunks := c.chunk("A small fire started near the port. Crews contained it quickly.")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
}

func TestChunker_WindowsOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(". ")
	}
	c := newChunker(5, 1, 2000)
	chunks := c.chunk(b.String())
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks for 12 sentences with window 5 overlap 1, got %d", len(chunks))
	}
	// The last sentence of chunk 1 must reappear at the start of chunk 2.
	first := strings.Split(chunks[0], ". ")
	if !strings.HasPrefix(chunks[1], first[len(first)-1]) {
		t.Errorf("Expected chunk 2 to start with chunk 1's last sentence:\n%q\n%q", chunks[0], chunks[1])
	}
}

func TestChunker_NoTerminatorFallback(t *testing.T) {
	c := newChunker(5, 1, 2000)
	chunks := c.chunk("a narrative with no sentence terminator at all")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 fallback chunk, got %d", len(chunks))
	}
}

func TestChunker_BlankInput(t *testing.T) {
	c := newChunker(5, 1, 2000)
	if chunks := c.chunk("   \n\t "); chunks != nil {
		t.Errorf("Expected nil for blank input, got %v", chunks)
	}
}

func TestSplitLong_WordBoundaries(t *testing.T) {
	text := strings.Repeat("word ", 100)
	pieces := splitLong(strings.TrimSpace(text), 60)
	if len(pieces) < 2 {
		t.Fatalf("Expected multiple pieces, got %d", len(pieces))
	}
	for _, p := range pieces {
		if len(p) > 60 {
			t.Errorf("Piece exceeds budget: %d chars", len(p))
		}
		if strings.HasPrefix(p, " ") || strings.HasSuffix(p, " ") {
			t.Errorf("Piece not trimmed: %q", p)
		}
	}
}

func TestSplitLong_RuneBoundaries(t *testing.T) {
	// No spaces, so every cut takes the hard-split fallback path.
	text := strings.Repeat("災害対応の記録", 40)
	pieces := splitLong(text, 50)
	if len(pieces) < 2 {
		t.Fatalf("Expected multiple pieces, got %d", len(pieces))
	}
	total := 0
	for _, p := range pieces {
		if !utf8.ValidString(p) {
			t.Errorf("Piece cut inside a rune: %q", p)
		}
		if len(p) > 50 {
			t.Errorf("Piece exceeds budget: %d bytes", len(p))
		}
		total += len(p)
	}
	if total != len(text) {
		t.Errorf("Pieces lost bytes: %d of %d", total, len(text))
	}
}
