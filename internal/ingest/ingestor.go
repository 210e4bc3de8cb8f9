package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/assistant-platform/internal/conversation"
	"github.com/mediconnect/assistant-platform/pkg/logging"
)

const manifestKey = "ingest:manifest"

// ManifestStore remembers the content hash of every ingested document so
// unchanged documents are skipped on re-ingest.
type ManifestStore interface {
	GetHash(ctx context.Context, docID string) (string, error)
	SetHash(ctx context.Context, docID, hash string) error
}

// RedisManifestStore keeps the manifest in a Redis hash.
type RedisManifestStore struct {
	client *redis.Client
}

func NewRedisManifestStore(client *redis.Client) *RedisManifestStore {
	if client == nil {
		panic("ingest: redis client cannot be nil")
	}
	return &RedisManifestStore{client: client}
}

func (s *RedisManifestStore) GetHash(ctx context.Context, docID string) (string, error) {
	hash, err := s.client.HGet(ctx, manifestKey, docID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("ingest: get manifest hash: %w", err)
	}
	return hash, nil
}

func (s *RedisManifestStore) SetHash(ctx context.Context, docID, hash string) error {
	if err := s.client.HSet(ctx, manifestKey, docID, hash).Err(); err != nil {
		return fmt.Errorf("ingest: set manifest hash: %w", err)
	}
	return nil
}

// Ingestor chunks documents and feeds them into the knowledge repository.
type Ingestor struct {
	repo     conversation.KnowledgeRepository
	manifest ManifestStore
	chunker  *Chunker
	logger   *logging.Logger
}

func NewIngestor(repo conversation.KnowledgeRepository, manifest ManifestStore, chunker *Chunker, logger *logging.Logger) *Ingestor {
	if repo == nil {
		panic("ingest: knowledge repository cannot be nil")
	}
	if manifest == nil {
		panic("ingest: manifest store cannot be nil")
	}
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingestor{repo: repo, manifest: manifest, chunker: chunker, logger: logger}
}

// Result reports what one ingest call did.
type Result struct {
	DocID   string
	Chunks  int
	Skipped bool
}

// IngestDocument chunks and stores one document. Documents whose content
// hash matches the manifest are skipped. A changed document appends its new
// chunks; the stale chunks from the earlier version remain until the corpus
// is rebuilt, which the warning log calls out.
func (i *Ingestor) IngestDocument(ctx context.Context, corpusID, docID, text string) (Result, error) {
	hash := contentHash(text)

	previous, err := i.manifest.GetHash(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	if previous == hash {
		i.logger.Info("document unchanged, skipping", "doc_id", docID)
		return Result{DocID: docID, Skipped: true}, nil
	}
	if previous != "" {
		i.logger.Warn("document content changed, older chunks remain until corpus rebuild",
			"doc_id", docID)
	}

	chunks := i.chunker.Split(text)
	if len(chunks) == 0 {
		return Result{DocID: docID, Skipped: true}, nil
	}

	docs := make([]conversation.Document, len(chunks))
	for n, chunk := range chunks {
		docs[n] = conversation.Document{
			SourceID: fmt.Sprintf("%s#%d", docID, n),
			Content:  chunk,
		}
	}

	if err := i.repo.AppendDocuments(ctx, corpusID, docs); err != nil {
		return Result{}, err
	}
	if err := i.manifest.SetHash(ctx, docID, hash); err != nil {
		return Result{}, err
	}

	i.logger.Info("ingested document", "doc_id", docID, "corpus_id", corpusID, "chunks", len(chunks))
	return Result{DocID: docID, Chunks: len(chunks)}, nil
}

// RebuildCorpus replaces the corpus with the provided documents and bumps
// the knowledge version so running retrievers re-hydrate.
func (i *Ingestor) RebuildCorpus(ctx context.Context, corpusID string, documents map[string]string) error {
	var all []conversation.Document
	for docID, text := range documents {
		chunks := i.chunker.Split(text)
		for n, chunk := range chunks {
			all = append(all, conversation.Document{
				SourceID: fmt.Sprintf("%s#%d", docID, n),
				Content:  chunk,
			})
		}
	}

	replacer, ok := i.repo.(conversation.KnowledgeReplacer)
	if !ok {
		return fmt.Errorf("ingest: repository does not support replace")
	}
	if err := replacer.ReplaceDocuments(ctx, corpusID, all); err != nil {
		return err
	}

	for docID, text := range documents {
		if err := i.manifest.SetHash(ctx, docID, contentHash(text)); err != nil {
			return err
		}
	}

	if versioner, ok := i.repo.(conversation.KnowledgeVersioner); ok {
		version, err := versioner.GetVersion(ctx, corpusID)
		if err != nil {
			return err
		}
		if err := versioner.SetVersion(ctx, corpusID, version+1); err != nil {
			return err
		}
	}

	i.logger.Info("rebuilt corpus", "corpus_id", corpusID, "documents", len(documents), "chunks", len(all))
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
