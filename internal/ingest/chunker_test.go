package ingest

import (
	"strings"
	"testing"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultChunkOverlap)

	chunks := c.Split("A short note about clinic hours.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultChunkOverlap)

	if chunks := c.Split("   \n\t "); chunks != nil {
		t.Fatalf("expected nil for blank input, got %#v", chunks)
	}
}

func TestChunker_SplitsWithOverlap(t *testing.T) {
	c := NewChunker(100, 20)

	sentence := "This is a sentence about patient care. "
	text := strings.Repeat(sentence, 20)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len([]rune(chunk)) > 100 {
			t.Fatalf("chunk %d exceeds size: %d runes", i, len([]rune(chunk)))
		}
	}
	// Overlap means consecutive chunks share text.
	tail := chunks[0][len(chunks[0])-10:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Fatalf("expected overlap between chunks:\n%q\n%q", chunks[0], chunks[1])
	}
}

func TestChunker_PrefersParagraphBreaks(t *testing.T) {
	c := NewChunker(100, 10)

	first := strings.Repeat("a", 85)
	second := strings.Repeat("b", 85)
	text := first + "\n\n" + second

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %d chunks", len(chunks))
	}
	if strings.Contains(chunks[0], "b") {
		t.Fatalf("first chunk crossed the paragraph break: %q", chunks[0])
	}
}

func TestChunker_CoversAllText(t *testing.T) {
	c := NewChunker(120, 20)

	var parts []string
	for i := 0; i < 30; i++ {
		parts = append(parts, "Sentence number with some medical content here.")
	}
	text := strings.Join(parts, " ")

	chunks := c.Split(text)
	joined := strings.Join(chunks, " ")
	// Every word of the source must appear somewhere in the chunks.
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Fatalf("word %q missing from chunks", word)
		}
	}
}
