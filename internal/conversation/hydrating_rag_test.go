package conversation

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

func newHydrationFixture(t *testing.T) (*RedisKnowledgeRepository, *MemoryRAGStore, *stubEmbeddingClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisKnowledgeRepository(client)
	embed := &stubEmbeddingClient{}
	store := NewMemoryRAGStore(embed, "text-embedding-3-small", logging.Default(), WithMinScore(0))
	return repo, store, embed
}

func TestHydratingRAGRetriever_EmbedsNewDocuments(t *testing.T) {
	repo, store, embed := newHydrationFixture(t)
	ctx := context.Background()

	h := NewHydratingRAGRetriever(ctx, repo, store, logging.Default())

	if err := repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "d#0", Content: "clinic hours"}}); err != nil {
		t.Fatal(err)
	}

	embed.nextVectors = [][]float32{{1, 0}}
	sources, err := h.Query(ctx, "center-a", "when are you open", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(sources) != 1 || sources[0].SourceID != "d#0" {
		t.Fatalf("expected hydrated doc returned, got %#v", sources)
	}
}

func TestHydratingRAGRetriever_HydratesCommittedCorpusOnFreshStore(t *testing.T) {
	repo, store, embed := newHydrationFixture(t)
	ctx := context.Background()

	// Documents committed by an earlier process: present in Redis, version
	// already bumped, but nothing embedded in this process's store yet.
	_ = repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "d#0", Content: "clinic hours"}})
	if err := repo.SetVersion(ctx, "center-a", 3); err != nil {
		t.Fatal(err)
	}

	h := NewHydratingRAGRetriever(ctx, repo, store, logging.Default())

	embed.nextVectors = [][]float32{{1, 0}}
	sources, err := h.Query(ctx, "center-a", "when are you open", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(sources) != 1 || sources[0].SourceID != "d#0" {
		t.Fatalf("committed corpus must be visible after restart, got %#v", sources)
	}
}

func TestHydratingRAGRetriever_IncrementalAppend(t *testing.T) {
	repo, store, embed := newHydrationFixture(t)
	ctx := context.Background()

	_ = repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "d#0", Content: "first"}})
	embed.nextVectors = [][]float32{{1, 0}}
	_ = store.AddDocuments(ctx, "center-a", []Document{{SourceID: "d#0", Content: "first"}})

	// The constructor seeds hydration state from the store, so the
	// already-embedded doc is not re-embedded.
	h := NewHydratingRAGRetriever(ctx, repo, store, logging.Default())

	_ = repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "d#1", Content: "second"}})
	callsBefore := embed.calls

	embed.nextVectors = [][]float32{{0, 1}}
	sources, err := h.Query(ctx, "center-a", "anything", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected both docs after incremental hydration, got %#v", sources)
	}
	// One embed call for the new doc, one for the query.
	if got := embed.calls - callsBefore; got != 2 {
		t.Fatalf("expected 2 embed calls, got %d", got)
	}
}

func TestHydratingRAGRetriever_VersionBumpForcesReplace(t *testing.T) {
	repo, store, embed := newHydrationFixture(t)
	ctx := context.Background()

	_ = repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "old#0", Content: "old"}})
	embed.nextVectors = [][]float32{{1, 0}}
	_ = store.AddDocuments(ctx, "center-a", []Document{{SourceID: "old#0", Content: "old"}})

	h := NewHydratingRAGRetriever(ctx, repo, store, logging.Default())

	// Rebuild the corpus out-of-band and bump the version; the retriever
	// must throw away its incremental state and re-embed from scratch.
	if err := repo.ReplaceDocuments(ctx, "center-a", []Document{{SourceID: "new#0", Content: "new"}}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetVersion(ctx, "center-a", 1); err != nil {
		t.Fatal(err)
	}

	embed.nextVectors = [][]float32{{1, 0}}
	sources, err := h.Query(ctx, "center-a", "anything", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(sources) != 1 || sources[0].SourceID != "new#0" {
		t.Fatalf("expected rebuilt corpus only, got %#v", sources)
	}
}
