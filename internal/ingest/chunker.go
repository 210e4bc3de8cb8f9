package ingest

import "strings"

const (
	// DefaultChunkSize and DefaultChunkOverlap match what the knowledge
	// corpus was originally embedded with; changing them invalidates
	// stored chunk boundaries.
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping chunks sized for embedding.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into chunks of roughly c.size runes with c.overlap runes
// repeated between consecutive chunks. Breaks prefer paragraph then sentence
// boundaries near the target so chunks read coherently.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		end = breakPoint(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint scans backwards from end for a paragraph break, then a sentence
// end, then whitespace, staying within the last quarter of the chunk so
// chunks do not collapse.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)*3/4

	for i := end; i > floor; i-- {
		if i < len(runes)-1 && runes[i] == '\n' && runes[i+1] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			return i
		}
	}
	for i := end; i > floor; i-- {
		if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' {
			return i
		}
	}
	return end
}
