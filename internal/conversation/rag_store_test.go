package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

func TestMemoryRAGStore_AddAndQuery(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewMemoryRAGStore(client, "text-embedding-3-small", logging.Default())

	client.nextVectors = [][]float32{
		{1, 0},
		{0.5, 0.5},
	}
	err := store.AddDocuments(context.Background(), "center-1", []Document{
		{SourceID: "hours#0", Content: "Opening hours overview"},
		{SourceID: "labs#0", Content: "Laboratory test catalogue"},
	})
	if err != nil {
		t.Fatalf("AddDocuments error: %v", err)
	}

	client.nextVectors = [][]float32{{0.9, 0.1}}
	results, err := store.Query(context.Background(), "center-1", "When are you open?", 2)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SourceID != "hours#0" {
		t.Fatalf("expected hours doc first, got %s", results[0].SourceID)
	}
}

func TestMemoryRAGStore_UsesGlobalDocs(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewMemoryRAGStore(client, "text-embedding-3-small", logging.Default())

	client.nextVectors = [][]float32{{1, 0}}
	_ = store.AddDocuments(context.Background(), "", []Document{{SourceID: "policy#0", Content: "Global privacy policy"}})

	client.nextVectors = [][]float32{{1, 0}}
	results, err := store.Query(context.Background(), "unknown-corpus", "privacy question", 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 1 || results[0].SourceID != "policy#0" {
		t.Fatalf("expected global doc returned, got %#v", results)
	}
}

func TestMemoryRAGStore_MinScoreFiltersIrrelevant(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewMemoryRAGStore(client, "text-embedding-3-small", logging.Default(), WithMinScore(0.25))

	client.nextVectors = [][]float32{{0, 1}}
	_ = store.AddDocuments(context.Background(), "c", []Document{{SourceID: "off-topic#0", Content: "Completely unrelated"}})

	// Orthogonal query vector scores 0, below the 0.25 floor.
	client.nextVectors = [][]float32{{1, 0}}
	results, err := store.Query(context.Background(), "c", "relevant question", 5)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results below min score, got %#v", results)
	}
}

func TestMemoryRAGStore_MMRPrefersDiversity(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewMemoryRAGStore(client, "text-embedding-3-small", logging.Default(), WithMMRLambda(0.3))

	// Two near-duplicates plus one distinct doc; with k=2 the distinct doc
	// should displace the second duplicate.
	client.nextVectors = [][]float32{
		{1, 0},
		{0.99, 0.01},
		{0.5, 0.5},
	}
	_ = store.AddDocuments(context.Background(), "c", []Document{
		{SourceID: "dup-a", Content: "duplicate a"},
		{SourceID: "dup-b", Content: "duplicate b"},
		{SourceID: "distinct", Content: "different topic"},
	})

	client.nextVectors = [][]float32{{1, 0}}
	results, err := store.Query(context.Background(), "c", "query", 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SourceID != "dup-a" {
		t.Fatalf("expected most relevant doc first, got %s", results[0].SourceID)
	}
	if results[1].SourceID != "distinct" {
		t.Fatalf("expected MMR to pick the distinct doc second, got %s", results[1].SourceID)
	}
}

func TestMemoryRAGStore_ReplaceDocuments(t *testing.T) {
	client := &stubEmbeddingClient{}
	store := NewMemoryRAGStore(client, "text-embedding-3-small", logging.Default())

	client.nextVectors = [][]float32{{1, 0}}
	_ = store.AddDocuments(context.Background(), "c", []Document{{SourceID: "old#0", Content: "old"}})

	client.nextVectors = [][]float32{{1, 0}}
	if err := store.ReplaceDocuments(context.Background(), "c", []Document{{SourceID: "new#0", Content: "new"}}); err != nil {
		t.Fatalf("ReplaceDocuments failed: %v", err)
	}

	client.nextVectors = [][]float32{{1, 0}}
	results, err := store.Query(context.Background(), "c", "anything", 5)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 1 || results[0].SourceID != "new#0" {
		t.Fatalf("expected only the replacement doc, got %#v", results)
	}
}

func TestMemoryRAGStore_EmbeddingError(t *testing.T) {
	client := &stubEmbeddingClient{err: errors.New("boom")}
	store := NewMemoryRAGStore(client, "text-embedding-3-small", logging.Default())

	if err := store.AddDocuments(context.Background(), "", []Document{{SourceID: "a", Content: "a"}}); err == nil {
		t.Fatal("expected error when embedding fails")
	}
	if _, err := store.Query(context.Background(), "", "q", 1); err == nil {
		t.Fatal("expected query error when embedding fails")
	}
}

type stubEmbeddingClient struct {
	nextVectors [][]float32
	err         error
	calls       int
}

func (s *stubEmbeddingClient) Embed(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.nextVectors) < len(texts) {
		return nil, errors.New("insufficient stub embeddings")
	}
	data := make([][]float32, len(texts))
	for i := range texts {
		data[i] = s.nextVectors[i]
	}
	s.calls++
	return data, nil
}
