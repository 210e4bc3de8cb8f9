package conversation

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisKnowledgeRepository_AppendAndGet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisKnowledgeRepository(client)
	ctx := context.Background()

	docs := []Document{
		{SourceID: "hours#0", Content: "Open 8am to 6pm."},
		{SourceID: "hours#1", Content: "Closed Sundays."},
	}
	if err := repo.AppendDocuments(ctx, "center-a", docs); err != nil {
		t.Fatalf("AppendDocuments failed: %v", err)
	}

	got, err := repo.GetDocuments(ctx, "center-a")
	if err != nil {
		t.Fatalf("GetDocuments failed: %v", err)
	}
	if len(got) != 2 || got[0].SourceID != "hours#0" || got[1].Content != "Closed Sundays." {
		t.Fatalf("unexpected docs: %#v", got)
	}
}

func TestRedisKnowledgeRepository_ReplaceDocuments(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisKnowledgeRepository(client)
	ctx := context.Background()

	_ = repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "old#0", Content: "stale"}})
	if err := repo.ReplaceDocuments(ctx, "center-a", []Document{{SourceID: "new#0", Content: "fresh"}}); err != nil {
		t.Fatalf("ReplaceDocuments failed: %v", err)
	}

	got, err := repo.GetDocuments(ctx, "center-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].SourceID != "new#0" {
		t.Fatalf("expected only replacement docs, got %#v", got)
	}
}

func TestRedisKnowledgeRepository_Versioning(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisKnowledgeRepository(client)
	ctx := context.Background()

	version, err := repo.GetVersion(ctx, "center-a")
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 for unknown corpus, got %d", version)
	}

	if err := repo.SetVersion(ctx, "center-a", 3); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	version, err = repo.GetVersion(ctx, "center-a")
	if err != nil {
		t.Fatal(err)
	}
	if version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
}

func TestRedisKnowledgeRepository_LoadAll(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisKnowledgeRepository(client)
	ctx := context.Background()

	_ = repo.AppendDocuments(ctx, "center-a", []Document{{SourceID: "a#0", Content: "a"}})
	_ = repo.AppendDocuments(ctx, "center-b", []Document{{SourceID: "b#0", Content: "b"}, {SourceID: "b#1", Content: "bb"}})
	// Version keys share the prefix and must not be decoded as documents.
	_ = repo.SetVersion(ctx, "center-a", 1)

	all, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 corpora, got %#v", all)
	}
	if len(all["center-a"]) != 1 || len(all["center-b"]) != 2 {
		t.Fatalf("unexpected corpus sizes: %#v", all)
	}
}
